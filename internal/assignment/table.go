package assignment

import (
	"math"
	"sync"
)

// Table is an append-only, ordered collection of assignments. It is safe for
// concurrent use.
type Table struct {
	mu   sync.RWMutex
	rows []Assignment
}

// NewTable returns a table holding a copy of rows.
func NewTable(rows ...Assignment) *Table {
	t := &Table{}
	t.Extend(rows)
	return t
}

// Extend appends rows in order.
func (t *Table) Extend(rows []Assignment) {
	if len(rows) == 0 {
		return
	}
	t.mu.Lock()
	t.rows = append(t.rows, rows...)
	t.mu.Unlock()
}

// Concat appends every row of other.
func (t *Table) Concat(other *Table) {
	if other == nil {
		return
	}
	t.Extend(other.Rows())
}

// Rows returns a copy of the rows.
func (t *Table) Rows() []Assignment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Assignment, len(t.rows))
	copy(out, t.rows)
	return out
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// ObjectIDs lists the distinct object ids in first-seen order.
func (t *Table) ObjectIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[string]bool)
	var ids []string
	for _, r := range t.rows {
		if !seen[r.ObjectID] {
			seen[r.ObjectID] = true
			ids = append(ids, r.ObjectID)
		}
	}
	return ids
}

// TimeSpan returns the earliest start and latest end over all rows. end is
// Forever if any row never ends. ok is false for an empty table.
func (t *Table) TimeSpan() (start, end float64, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return span(t.rows)
}

func span(rows []Assignment) (start, end float64, ok bool) {
	if len(rows) == 0 {
		return 0, 0, false
	}
	start, end = math.Inf(1), math.Inf(-1)
	forever := false
	for _, r := range rows {
		start = math.Min(start, r.StartTimeSec)
		if r.Forever() {
			forever = true
			continue
		}
		end = math.Max(end, r.EndTimeSec)
	}
	if forever {
		end = Forever
	}
	return start, end, true
}
