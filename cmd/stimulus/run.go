package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/handiism/stimulus/internal/model"
	"github.com/handiism/stimulus/internal/session"
)

var noInput bool

var runFlags = []cli.Flag{
	cli.BoolFlag{
		Name:        "no-input",
		Usage:       "do not read responses from standard input",
		Destination: &noInput,
	},
	strictFlag,
}

// barPresenter reports exhibitions on a progress bar instead of a screen.
type barPresenter struct {
	bar     *mpb.Bar
	current atomic.Pointer[string]
}

func newBarPresenter(p *mpb.Progress, total int) *barPresenter {
	bp := &barPresenter{}
	blank := "+"
	bp.current.Store(&blank)

	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")
	name := "Presenting"
	bp.bar = p.New(int64(total),
		barStyle,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.OnComplete(
				decor.Any(func(decor.Statistics) string { return *bp.current.Load() }), "Complete",
			),
		),
	)
	return bp
}

func (bp *barPresenter) Show(_ context.Context, ex model.Exhibition, stim *session.Stimulus) error {
	label := ex.Group.Name + " / " + ex.Image.Name()
	if stim == nil || stim.Missing {
		label += " (missing)"
	}
	bp.current.Store(&label)
	return nil
}

func (bp *barPresenter) Clear(context.Context) error {
	blank := "+"
	bp.current.Store(&blank)
	bp.bar.Increment()
	return nil
}

// finish stops the bar of an incomplete run so the progress container can
// shut down.
func (bp *barPresenter) finish() {
	if !bp.bar.Completed() {
		bp.bar.Abort(false)
	}
}

// forwardResponses turns every input line into a response. An empty line
// stands for the experiment's interaction key.
func forwardResponses(r io.Reader, manager *session.Manager, key string) {
	if key == "" {
		key = "enter"
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			line = key
		}
		manager.Respond(line)
	}
}

func runExperiment(ctx *cli.Context) error {
	path, err := requireArg(ctx, "experiment")
	if err != nil {
		return err
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	settings.StrictFiles = settings.StrictFiles || strict

	runCtx, cancel := signalContext()
	defer cancel()

	manager := session.NewManager(settings, printProgress(settings))

	fmt.Println("🖼  Stimulus")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	if err := manager.Initialize(runCtx, path); err != nil {
		return cli.NewExitError(fmt.Sprintf("Error initializing: %v", err), 1)
	}

	exp := manager.Experiment()
	if !noInput {
		go forwardResponses(os.Stdin, manager, exp.Presentation.InteractionKey)
	}

	p := mpb.New(mpb.WithWidth(64))
	presenter := newBarPresenter(p, exp.Config.AmountOfExhibitions)

	run, runErr := manager.Run(runCtx, presenter)
	presenter.finish()
	p.Wait()

	if run != nil {
		report, err := manager.SaveReport(context.Background())
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("Error saving report: %v", err), 1)
		}
		fmt.Println()
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		shown, total := manager.GetProgress()
		fmt.Printf("✨ Shown %d/%d exhibitions, %d responses (seed %d)\n", shown, total, len(run.Responses()), run.Seed)
		fmt.Printf("   Report: %s\n", report)
	}

	switch {
	case errors.Is(runErr, session.ErrAborted):
		fmt.Println("\nRun cancelled.")
		return cli.NewExitError("", 130)
	case runErr != nil:
		return cli.NewExitError(fmt.Sprintf("Error during run: %v", runErr), 1)
	}
	return nil
}
