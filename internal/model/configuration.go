package model

import (
	"fmt"
	"strings"
	"time"
)

// Order controls how the next group or image is picked.
type Order int

const (
	// OrderRandom picks by weighted random choice.
	OrderRandom Order = iota

	// OrderSequential walks the configured order, wrapping around.
	OrderSequential
)

// String returns the label used in experiment files.
func (o Order) String() string {
	switch o {
	case OrderRandom:
		return "Random"
	case OrderSequential:
		return "Sequential"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// Valid reports whether o is a known order.
func (o Order) Valid() bool {
	return o == OrderRandom || o == OrderSequential
}

// ParseOrder converts an experiment-file label to an Order.
func ParseOrder(s string) (Order, error) {
	switch normalizeLabel(s) {
	case "random":
		return OrderRandom, nil
	case "sequential":
		return OrderSequential, nil
	}
	return 0, fmt.Errorf("unknown order %q", s)
}

// IntergroupBehaviour decides when a new group is selected.
type IntergroupBehaviour int

const (
	// SelectOnEachShow picks a new group for every exhibition.
	SelectOnEachShow IntergroupBehaviour = iota

	// SelectOnDepletionOfCurrent keeps drawing from the current group
	// until it is depleted.
	SelectOnDepletionOfCurrent

	// SelectOnceAllImagesShown keeps drawing from the current group until
	// its images have all been shown once.
	SelectOnceAllImagesShown
)

// String returns the label used in experiment files.
func (b IntergroupBehaviour) String() string {
	switch b {
	case SelectOnEachShow:
		return "Select a new group on each show"
	case SelectOnDepletionOfCurrent:
		return "Select a new group on depletion of the current"
	case SelectOnceAllImagesShown:
		return "Select a new group once all images have been shown"
	default:
		return fmt.Sprintf("IntergroupBehaviour(%d)", int(b))
	}
}

// Valid reports whether b is a known behaviour.
func (b IntergroupBehaviour) Valid() bool {
	return b >= SelectOnEachShow && b <= SelectOnceAllImagesShown
}

// ParseIntergroupBehaviour converts an experiment-file label to an
// IntergroupBehaviour. Both the long labels and the short forms
// "on-each-show", "on-depletion" and "once-all-shown" are accepted.
func ParseIntergroupBehaviour(s string) (IntergroupBehaviour, error) {
	switch normalizeLabel(s) {
	case "select_a_new_group_on_each_show", "on_each_show", "each_show":
		return SelectOnEachShow, nil
	case "select_a_new_group_on_depletion_of_the_current", "on_depletion_of_current", "on_depletion":
		return SelectOnDepletionOfCurrent, nil
	case "select_a_new_group_once_all_images_have_been_shown", "once_all_images_shown", "once_all_shown":
		return SelectOnceAllImagesShown, nil
	}
	return 0, fmt.Errorf("unknown intergroup behaviour %q", s)
}

// RateBehaviour decides how rates turn into selections.
type RateBehaviour int

const (
	// RateDeterministic turns rates into exact quotas over the run.
	RateDeterministic RateBehaviour = iota

	// RateProbabilistic uses rates as relative selection probabilities.
	RateProbabilistic
)

// String returns the label used in experiment files.
func (r RateBehaviour) String() string {
	switch r {
	case RateDeterministic:
		return "Deterministic"
	case RateProbabilistic:
		return "Probabilistic"
	default:
		return fmt.Sprintf("RateBehaviour(%d)", int(r))
	}
}

// Valid reports whether r is a known rate behaviour.
func (r RateBehaviour) Valid() bool {
	return r == RateDeterministic || r == RateProbabilistic
}

// ParseRateBehaviour converts an experiment-file label to a RateBehaviour.
func ParseRateBehaviour(s string) (RateBehaviour, error) {
	switch normalizeLabel(s) {
	case "deterministic":
		return RateDeterministic, nil
	case "probabilistic":
		return RateProbabilistic, nil
	}
	return 0, fmt.Errorf("unknown rate behaviour %q", s)
}

// normalizeLabel lowercases s and folds spaces, newlines and hyphens into
// underscores, so "Select a new\ngroup on each show" and
// "select-a-new-group-on-each-show" compare equal.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\t', '-':
			return '_'
		}
		return r
	}, s)
}

// Configuration is the scheduler input.
//
// A Configuration is treated as immutable once handed to the scheduler.
type Configuration struct {
	IntergroupOrder     Order
	IntragroupOrder     Order
	IntergroupBehaviour IntergroupBehaviour
	RateBehaviour       RateBehaviour

	// AllowImageRepeat lets an image be shown more than once per run.
	AllowImageRepeat bool

	// AmountOfExhibitions is the exact length of the produced sequence.
	AmountOfExhibitions int

	// Groups holds the configured groups in order.
	Groups []*Group
}

// GroupByName returns the group with the given name, or nil.
func (c *Configuration) GroupByName(name string) *Group {
	for _, g := range c.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// ImageCount returns the total number of images across all groups.
func (c *Configuration) ImageCount() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Images)
	}
	return n
}

// Presentation holds the timing and interaction settings of an experiment.
type Presentation struct {
	// ShowTime is how long each image stays on screen.
	ShowTime time.Duration

	// IntervalTime is the blank gap after each image.
	IntervalTime time.Duration

	// InteractionKey is the key recorded as a response. Empty records any key.
	InteractionKey string

	// SkipOnInteraction ends the current exhibition early on a response.
	SkipOnInteraction bool

	// Screen is the display index requested for full-screen presentation.
	Screen int
}

// SlotDuration returns the time taken by one exhibition including its interval.
func (p Presentation) SlotDuration() time.Duration {
	return p.ShowTime + p.IntervalTime
}

// Exhibition is one produced slot of a run.
type Exhibition struct {
	// Slot is the 0-based position in the sequence.
	Slot int

	// Group is the configured group the image was drawn from.
	Group *Group

	// Image is the configured image to show.
	Image *Image
}

// String implements fmt.Stringer.
func (e Exhibition) String() string {
	return fmt.Sprintf("%d: %s / %s", e.Slot+1, e.Group.Name, e.Image.Name())
}
