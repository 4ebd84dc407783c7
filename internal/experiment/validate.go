package experiment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/handiism/stimulus/internal/model"
)

// ErrInvalidExperiment is matched by every ValidationError.
var ErrInvalidExperiment = errors.New("invalid experiment")

// ValidationError lists every problem found in an experiment.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid experiment: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid experiment: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Is reports whether target is ErrInvalidExperiment.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidExperiment
}

// Validate checks an experiment before it is run.
//
// It reports the problems an editor would flag: unnamed or empty groups,
// images without a file, negative rates and unusable timings. Quota checks
// that depend on the rate behaviour are left to scheduler.New.
func Validate(exp *model.Experiment) error {
	if exp == nil || exp.Config == nil {
		return &ValidationError{Problems: []string{"no configuration"}}
	}

	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	cfg := exp.Config
	if cfg.AmountOfExhibitions < 1 {
		add("amount of exhibitions must be at least 1")
	}
	if exp.Presentation.ShowTime <= 0 {
		add("show time must be positive")
	}
	if exp.Presentation.IntervalTime < 0 {
		add("interval time must not be negative")
	}
	if exp.Presentation.Screen < 0 {
		add("screen index must not be negative")
	}
	if len(cfg.Groups) == 0 {
		add("no groups")
	}

	seen := make(map[string]bool, len(cfg.Groups))
	for i, g := range cfg.Groups {
		label := fmt.Sprintf("group %d", i+1)
		if g.Name == "" {
			add("%s has no name", label)
		} else {
			label = fmt.Sprintf("group %q", g.Name)
			if seen[g.Name] {
				add("%s is defined twice", label)
			}
			seen[g.Name] = true
		}
		if g.Rate < 0 {
			add("%s has a negative rate", label)
		}
		if len(g.Images) == 0 {
			add("%s has no images", label)
		}
		for j, img := range g.Images {
			if strings.TrimSpace(img.File) == "" {
				add("%s: image %d has no file", label, j+1)
			}
			if img.Rate < 0 {
				add("%s: image %d has a negative rate", label, j+1)
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
