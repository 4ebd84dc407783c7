// Package scheduler produces the sequence of images shown during an
// experiment run.
//
// A Scheduler is built once from a model.Configuration. Construction binds
// the four policy axes to selection functions:
//
//   - Rate behaviour: Deterministic turns rates into exact quotas ("loads")
//     over the run; Probabilistic uses rates as selection weights.
//   - Repeat policy: when repeats are disallowed, a selected image is
//     removed from the rest of the run.
//   - Intergroup and intragroup order: Random draws by weight, Sequential
//     walks the configured order starting after the previous selection.
//   - Intergroup behaviour: a new group on each show, on depletion of the
//     current group, or once all of its images have been shown.
//
// # Usage
//
//	s, err := scheduler.New(cfg, scheduler.WithSeed(42))
//	if err != nil {
//	    return err // wraps ErrConfiguration
//	}
//	for ex, err := range s.All() {
//	    if err != nil {
//	        return err // wraps ErrExhaustion
//	    }
//	    fmt.Println(ex.Group.Name, ex.Image.File)
//	}
//
// The same seed and configuration always produce the same sequence.
//
// # Concurrency
//
// A Scheduler is a single-pass sequence: every call to Next advances shared
// weights, loads and cursors. It must be consumed by one goroutine. UIs
// should run it off their event loop and forward only the produced
// exhibitions.
package scheduler
