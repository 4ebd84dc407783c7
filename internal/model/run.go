package model

import "time"

// EventType names what happened at a logged instant.
type EventType string

const (
	// EventOnset is logged when an image appears.
	EventOnset EventType = "EXHIBITION_ONSET"

	// EventOffset is logged when an image is cleared.
	EventOffset EventType = "EXHIBITION_OFFSET"

	// EventResponse is logged for every recorded interaction.
	EventResponse EventType = "RESPONSE"
)

// Event is one row of a run log.
//
// IntendedMS is the planned time and ActualMS the measured time, both in
// milliseconds since the run started. A response has no planned time, so
// both fields carry the measured time.
type Event struct {
	IntendedMS int64
	ActualMS   int64
	Type       EventType

	// Label is the image file for exhibition events and the key for
	// responses.
	Label string

	// Slot, Group, ImageID and File identify the exhibition on screen when
	// the event happened. Slot is -1 before the first exhibition.
	Slot    int
	Group   string
	ImageID int
	File    string
}

// Run is the result of presenting an experiment.
type Run struct {
	Experiment   string
	Seed         uint64
	Started      time.Time
	Finished     time.Time
	Completed    bool
	Presentation Presentation
	Events       []Event
}

// Onsets returns the onset events in order.
func (r *Run) Onsets() []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == EventOnset {
			out = append(out, e)
		}
	}
	return out
}

// Responses returns the response events in order.
func (r *Run) Responses() []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == EventResponse {
			out = append(out, e)
		}
	}
	return out
}
