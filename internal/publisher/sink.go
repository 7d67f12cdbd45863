package publisher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trajectory-builder/internal/assignment"
	"trajectory-builder/internal/geo"
	"trajectory-builder/internal/timeline"
)

// Sink receives built groups and replayed positions.
type Sink interface {
	PublishGroup(ctx context.Context, msg GroupMessage) error
	PublishPosition(ctx context.Context, msg PositionMessage) error
	Close() error
}

type PublisherMetrics interface {
	PublishedInc(sink string)
	PublishErrInc(sink string)
	PublishObserve(d time.Duration)
	SetConnected(connected bool)
}

// GroupMessage announces one timeline group.
type GroupMessage struct {
	RunID        string           `json:"runId"`
	Key          string           `json:"key"`
	ODID         int              `json:"odID"`
	ObjectID     string           `json:"objectID"`
	Action       string           `json:"action"`
	Model        assignment.Model `json:"model"`
	StartTimeSec float64          `json:"startTimeSec"`
	EndTimeSec   float64          `json:"endTimeSec"`
	Forever      bool             `json:"forever"`
	Path         []geo.Location   `json:"path"`
}

func NewGroupMessage(runID string, g timeline.Group) GroupMessage {
	return GroupMessage{
		RunID:        runID,
		Key:          g.Key,
		ODID:         g.ODID,
		ObjectID:     g.ObjectID,
		Action:       string(g.Action),
		Model:        g.Model,
		StartTimeSec: g.StartTimeSec,
		EndTimeSec:   g.EndTimeSec,
		Forever:      g.Forever(),
		Path:         g.Path(),
	}
}

type PositionMessage struct {
	RunID     string    `json:"runId"`
	ODID      int       `json:"odID"`
	ObjectID  string    `json:"objectID"`
	Key       string    `json:"key"`
	SimTime   float64   `json:"simTimeSec"`
	Timestamp time.Time `json:"timestamp"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Alt       float64   `json:"alt"`
	Bearing   float64   `json:"bearing"`
	Progress  float64   `json:"progress"`
	SpeedMps  float64   `json:"speedMps"`
}

// Subject returns "<objectID>.<odID>" with each part made NATS-safe.
func Subject(objectID string, odID int) string {
	return fmt.Sprintf("%s.%s", subjectToken(objectID), subjectToken(strconv.Itoa(odID)))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}

// Discard drops every message.
type Discard struct{}

func (Discard) PublishGroup(context.Context, GroupMessage) error       { return nil }
func (Discard) PublishPosition(context.Context, PositionMessage) error { return nil }
func (Discard) Close() error                                           { return nil }
