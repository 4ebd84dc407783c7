package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/handiism/stimulus/internal/experiment"
	ioutils "github.com/handiism/stimulus/internal/io"
	"github.com/handiism/stimulus/internal/session"
)

var (
	scanName   string
	scanOutput string
	strict     bool
)

var scanFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "name, n",
		Usage:       "experiment name (default: the directory name)",
		Destination: &scanName,
	},
	cli.StringFlag{
		Name:        "out",
		Usage:       "experiment file to write (default: <directory>/<name>.yaml)",
		Destination: &scanOutput,
	},
}

var strictFlag = cli.BoolFlag{
	Name:        "strict",
	Usage:       "fail when an image file cannot be read",
	Destination: &strict,
}

var validateFlags = []cli.Flag{strictFlag}

// printSequence lists the exhibitions without presenting them.
func printSequence(ctx *cli.Context) error {
	path, err := requireArg(ctx, "experiment")
	if err != nil {
		return err
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	manager := session.NewManager(settings, printProgress(settings))
	if err := manager.Initialize(context.Background(), path); err != nil {
		return cli.NewExitError(fmt.Sprintf("Error initializing: %v", err), 1)
	}

	plan, err := manager.Plan()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Error planning: %v", err), 1)
	}

	exp := manager.Experiment()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tGROUP\tID\tIMAGE")
	for _, ex := range plan {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", ex.Slot+1, ex.Group.Name, ex.Image.ID, exp.ResolvePath(ex.Image))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "seed %d\n", manager.Seed())
	return nil
}

// validateExperiment loads an experiment, checks its quotas and probes
// every image.
func validateExperiment(ctx *cli.Context) error {
	path, err := requireArg(ctx, "experiment")
	if err != nil {
		return err
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	settings.StrictFiles = settings.StrictFiles || strict

	manager := session.NewManager(settings, printProgress(settings))
	if err := manager.Initialize(context.Background(), path); err != nil {
		return cli.NewExitError(fmt.Sprintf("%s is not valid: %v", path, err), 1)
	}
	if _, err := manager.Plan(); err != nil {
		return cli.NewExitError(fmt.Sprintf("%s cannot be scheduled: %v", path, err), 1)
	}

	for _, g := range manager.GetGroupNames() {
		fmt.Printf("  ♪ %s\n", g)
	}
	if n := manager.MissingCount(); n > 0 {
		fmt.Printf("⚠️  %s is valid but %d image file(s) could not be read\n", path, n)
		return nil
	}
	fmt.Printf("✅ %s is valid\n", path)
	return nil
}

// scanFolder writes an experiment skeleton for the images under a
// directory, one group per subdirectory.
func scanFolder(ctx *cli.Context) error {
	dir, err := requireArg(ctx, "directory")
	if err != nil {
		return err
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return err
	}

	name := scanName
	if name == "" {
		name = filepath.Base(dir)
	}
	out := scanOutput
	if out == "" {
		out = filepath.Join(dir, ioutils.SanitizeFileName(name)+".yaml")
	}
	out, err = filepath.Abs(out)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	exp, err := experiment.NewFolder(fs).Skeleton(context.Background(), name, dir)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Error scanning %s: %v", dir, err), 1)
	}

	// Image paths are written relative to the experiment file.
	for _, img := range exp.Images() {
		img.File = filepath.Join(dir, img.File)
	}
	exp.BaseDir = filepath.Dir(out)

	if err := experiment.Save(context.Background(), fs, out, exp); err != nil {
		return cli.NewExitError(fmt.Sprintf("Error writing %s: %v", out, err), 1)
	}
	fmt.Printf("✅ Wrote %s: %d groups, %d images\n", out, len(exp.Config.Groups), exp.Config.ImageCount())
	return nil
}
