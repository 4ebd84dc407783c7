package session

import (
	"sync"
	"time"

	"github.com/handiism/stimulus/internal/model"
)

// EventLog collects the timestamped events of one run. It is safe for
// concurrent use.
type EventLog struct {
	start time.Time

	mu      sync.Mutex
	entries []model.Event
}

// NewEventLog creates an empty log whose clock starts at start.
func NewEventLog(start time.Time) *EventLog {
	return &EventLog{start: start}
}

// Start returns the instant all times are measured from.
func (l *EventLog) Start() time.Time {
	return l.start
}

// Elapsed converts an instant to milliseconds since the start of the log.
func (l *EventLog) Elapsed(at time.Time) int64 {
	return at.Sub(l.start).Milliseconds()
}

// Log appends an event.
func (l *EventLog) Log(e model.Event) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// LogExhibition appends an onset or offset event for ex.
func (l *EventLog) LogExhibition(intended time.Duration, at time.Time, typ model.EventType, ex model.Exhibition, file string) {
	l.Log(model.Event{
		IntendedMS: intended.Milliseconds(),
		ActualMS:   l.Elapsed(at),
		Type:       typ,
		Label:      ex.Image.File,
		Slot:       ex.Slot,
		Group:      ex.Group.Name,
		ImageID:    ex.Image.ID,
		File:       file,
	})
}

// LogResponse appends a response to key. ex is the exhibition on screen, or
// nil before the first one.
func (l *EventLog) LogResponse(at time.Time, key string, ex *model.Exhibition, file string) {
	ms := l.Elapsed(at)
	e := model.Event{IntendedMS: ms, ActualMS: ms, Type: model.EventResponse, Label: key, Slot: -1}
	if ex != nil {
		e.Slot = ex.Slot
		e.Group = ex.Group.Name
		e.ImageID = ex.Image.ID
		e.File = file
	}
	l.Log(e)
}

// Events returns a copy of the logged events.
func (l *EventLog) Events() []model.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of logged events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
