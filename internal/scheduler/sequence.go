package scheduler

import (
	"errors"
	"io"
	"iter"

	"github.com/handiism/stimulus/internal/model"
)

// Next returns the next exhibition of the run.
//
// It returns io.EOF once AmountOfExhibitions exhibitions have been produced.
// Any other error aborts the run: every later call returns the same error.
func (s *Scheduler) Next() (model.Exhibition, error) {
	if s.err != nil {
		return model.Exhibition{}, s.err
	}
	if s.produced >= s.cfg.AmountOfExhibitions {
		return model.Exhibition{}, io.EOF
	}

	g, i, err := s.step()
	if err != nil {
		s.err = err
		return model.Exhibition{}, err
	}

	slot := &s.groups[g]
	ex := model.Exhibition{
		Slot:  s.produced,
		Group: slot.group,
		Image: slot.images[i].image,
	}
	s.produced++
	return ex, nil
}

// All returns an iterator over the remaining exhibitions. Iteration stops
// after the first error.
func (s *Scheduler) All() iter.Seq2[model.Exhibition, error] {
	return func(yield func(model.Exhibition, error) bool) {
		for {
			ex, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ex, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains the remaining exhibitions. On error no partial sequence is
// returned.
func (s *Scheduler) Collect() ([]model.Exhibition, error) {
	out := make([]model.Exhibition, 0, s.Remaining())
	for ex, err := range s.All() {
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

// Produced returns how many exhibitions have been yielded so far.
func (s *Scheduler) Produced() int {
	return s.produced
}

// Remaining returns how many exhibitions are left to produce.
func (s *Scheduler) Remaining() int {
	if s.err != nil {
		return 0
	}
	return s.cfg.AmountOfExhibitions - s.produced
}

// ImageState is a copy of the derived selection state of one image.
type ImageState struct {
	Image  *model.Image
	Weight int
	Load   int
	Valid  bool
}

// GroupState is a copy of the derived selection state of one group.
type GroupState struct {
	Group     *model.Group
	Weight    int
	Load      int
	Valid     bool
	LastImage *model.Image
	Images    []ImageState
}

// Snapshot returns the current weights, loads and cursors of every group.
// Load is only meaningful under deterministic rates.
func (s *Scheduler) Snapshot() []GroupState {
	out := make([]GroupState, len(s.groups))
	for g := range s.groups {
		slot := &s.groups[g]
		state := GroupState{
			Group:     slot.group,
			Weight:    slot.weight,
			Load:      slot.load,
			Valid:     s.groupValid(g),
			LastImage: slot.images[slot.last].image,
			Images:    make([]ImageState, len(slot.images)),
		}
		for i := range slot.images {
			state.Images[i] = ImageState{
				Image:  slot.images[i].image,
				Weight: slot.images[i].weight,
				Load:   slot.images[i].load,
				Valid:  s.imageValid(g, i),
			}
		}
		out[g] = state
	}
	return out
}

// LastGroup returns the sequential group cursor.
func (s *Scheduler) LastGroup() *model.Group {
	return s.groups[s.lastGroup].group
}
