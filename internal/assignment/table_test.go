package assignment

import (
	"sync"
	"testing"
)

func TestTable_ExtendConcatRows(t *testing.T) {
	tbl := NewTable(Assignment{ODID: 1, ObjectID: "a", StartTimeSec: 5, EndTimeSec: 10})
	tbl.Extend([]Assignment{{ODID: 2, ObjectID: "b", StartTimeSec: 0, EndTimeSec: 20}})
	other := NewTable(Assignment{ODID: 3, ObjectID: "a", StartTimeSec: 1, EndTimeSec: 2})
	tbl.Concat(other)
	tbl.Concat(nil)

	if tbl.Len() != 3 {
		t.Fatalf("Len = %d, want 3", tbl.Len())
	}
	rows := tbl.Rows()
	rows[0].ODID = 99
	if tbl.Rows()[0].ODID != 1 {
		t.Fatalf("Rows must return a copy")
	}
	ids := tbl.ObjectIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("ObjectIDs = %v, want [a b]", ids)
	}
	start, end, ok := tbl.TimeSpan()
	if !ok || start != 0 || end != 20 {
		t.Fatalf("TimeSpan = %v, %v, %v; want 0, 20, true", start, end, ok)
	}
}

func TestTable_TimeSpanForever(t *testing.T) {
	tbl := NewTable(
		Assignment{StartTimeSec: 3, EndTimeSec: 4},
		Assignment{StartTimeSec: 4, EndTimeSec: Forever},
	)
	start, end, _ := tbl.TimeSpan()
	if start != 3 || end != Forever {
		t.Fatalf("TimeSpan = %v, %v; want 3, -1", start, end)
	}
	if _, _, ok := NewTable().TimeSpan(); ok {
		t.Fatalf("empty table should report ok=false")
	}
}

func TestTable_ConcurrentExtend(t *testing.T) {
	tbl := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			tbl.Extend([]Assignment{{ODID: id}, {ODID: id}})
		}(i)
	}
	wg.Wait()
	if tbl.Len() != 16 {
		t.Fatalf("Len = %d, want 16", tbl.Len())
	}
}

func TestDefaultStyleKeepsOverrides(t *testing.T) {
	off := false
	s := Style{Map: MapStyle{Color: "blue", Arrows: &off}, Globe: GlobeStyle{Opacity: 0.3}}.withDefaults()
	if s.Map.Color != "blue" || *s.Map.Arrows || s.Globe.Opacity != 0.3 {
		t.Fatalf("overrides lost: %+v", s)
	}
	if s.Map.Weight != DefaultWeight || s.Globe.Color != DefaultColor || s.LoiterColor != DefaultLoiterColor {
		t.Fatalf("defaults missing: %+v", s)
	}
	d := DefaultStyle()
	if d.Map.CurveType != DefaultCurveType || d.Map.LineStyle != DefaultLineStyle {
		t.Fatalf("DefaultStyle = %+v", d)
	}
}
