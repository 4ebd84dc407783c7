package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/handiism/stimulus/internal/config"
	"github.com/handiism/stimulus/internal/session"
)

const description = `Stimulus presents image stimuli in the order chosen by an experiment file
and records when every image appeared and disappeared, together with the
participant's responses.

For interactive mode, use: stimulus-tui`

var (
	settingsPath string
	envFile      string
	outputDir    string
	reportFormat string
	stimuliDir   string
	seed         uint64
	verbose      bool
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "settings, c",
		Usage:       "path to a settings JSON file",
		Destination: &settingsPath,
	},
	cli.StringFlag{
		Name:        "env-file",
		Usage:       "dotenv file with STIMULUS_* overrides",
		Value:       ".env",
		Destination: &envFile,
	},
	cli.StringFlag{
		Name:        "output, o",
		Usage:       "directory reports are written to (overrides settings)",
		Destination: &outputDir,
	},
	cli.StringFlag{
		Name:        "format, f",
		Usage:       "report format: csv, tsv, json or m3u (overrides settings)",
		Destination: &reportFormat,
	},
	cli.StringFlag{
		Name:        "stimuli",
		Usage:       "directory relative image paths are resolved against",
		Destination: &stimuliDir,
	},
	cli.Uint64Flag{
		Name:        "seed",
		Usage:       "seed of the random selection (0 draws a new one)",
		Destination: &seed,
	},
	cli.BoolFlag{
		Name:        "verbose, v",
		Usage:       "show verbose output",
		Destination: &verbose,
	},
}

func main() {
	app := cli.App{
		Name:        "stimulus",
		HelpName:    "stimulus",
		Usage:       "Present image stimuli and record their timing.",
		UsageText:   "stimulus [global options] <command> [arguments...]",
		Version:     "1.0.0",
		Description: description,
		Flags:       globalFlags,
		Commands: []cli.Command{
			{
				Name:      "run",
				Aliases:   []string{"r"},
				Usage:     "present an experiment and save its report",
				ArgsUsage: "<experiment>",
				Action:    runExperiment,
				Flags:     runFlags,
			},
			{
				Name:      "sequence",
				Aliases:   []string{"seq"},
				Usage:     "print the exhibitions a run would show",
				ArgsUsage: "<experiment>",
				Action:    printSequence,
			},
			{
				Name:      "validate",
				Usage:     "check an experiment file and its images",
				ArgsUsage: "<experiment>",
				Action:    validateExperiment,
				Flags:     validateFlags,
			},
			{
				Name:      "scan",
				Usage:     "write an experiment skeleton for a folder of images",
				ArgsUsage: "<directory>",
				Action:    scanFolder,
				Flags:     scanFlags,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings builds the settings from the settings file, the environment
// and the global flags, in that order of precedence.
func loadSettings() (*config.Settings, error) {
	settings := config.DefaultSettings()
	if settingsPath != "" {
		var err error
		settings, err = config.Load(settingsPath)
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
	}

	if err := config.LoadEnv(envFile); err != nil {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}
	settings.ApplyEnv()

	if outputDir != "" {
		settings.OutputDir = outputDir
	}
	if reportFormat != "" {
		settings.ReportFormat = reportFormat
	}
	if stimuliDir != "" {
		settings.StimuliDir = stimuliDir
	}
	if seed != 0 {
		settings.Seed = seed
	}
	if verbose {
		settings.Verbose = true
	}
	return settings, nil
}

// signalContext is cancelled on the first interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted, stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// printProgress writes session events to stderr so they do not mix with
// command output.
func printProgress(settings *config.Settings) func(session.ProgressEvent) {
	return func(event session.ProgressEvent) {
		if event.Level == session.LevelVerbose && !settings.Verbose {
			return
		}

		prefix := ""
		switch event.Level {
		case session.LevelError:
			prefix = "❌ "
		case session.LevelWarning:
			prefix = "⚠️  "
		case session.LevelSuccess:
			prefix = "✅ "
		case session.LevelInfo:
			prefix = "ℹ️  "
		default:
			prefix = "   "
		}

		fmt.Fprintln(os.Stderr, prefix+event.Message)
	}
}

func requireArg(ctx *cli.Context, name string) (string, error) {
	arg := ctx.Args().First()
	if arg == "" {
		return "", cli.NewExitError(fmt.Sprintf("%s: missing %s argument", ctx.Command.FullName(), name), 2)
	}
	return arg, nil
}
