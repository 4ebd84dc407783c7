// Package session runs a loaded experiment: it prepares the stimuli,
// presents the scheduled exhibitions with their timing and records every
// onset, offset and response for the report.
//
// # Manager
//
// The Manager coordinates one experiment session:
//
//  1. Load and validate the experiment file
//  2. Build the schedule and fix its seed
//  3. Probe (and optionally decode) every image concurrently
//  4. Present the exhibitions through a Presenter
//  5. Write the run report and archive the experiment file
//
// # Basic Usage
//
//	manager := session.NewManager(settings, func(event session.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	if err := manager.Initialize(ctx, "faces.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	run, err := manager.Run(ctx, presenter)
//	if err != nil && !errors.Is(err, session.ErrAborted) {
//	    log.Fatal(err)
//	}
//
//	path, err := manager.SaveReport(ctx)
//
// # Timing
//
// Deadlines are measured from the start of the run, so a slow Presenter
// delays one onset without shifting the rest. Slot n is intended to appear
// at n*(ShowTime+IntervalTime). When SkipOnInteraction is set and a
// response ends an image early, later slots are planned from that moment.
//
// # Responses
//
// Respond may be called from any goroutine while Run is in progress, for
// example from a key handler. Responses during an interval belong to the
// exhibition that was just cleared.
//
// # Reproducibility
//
// The seed is drawn once in Initialize (or taken from the settings). Every
// Run and Plan call after that produces the same sequence.
package session
