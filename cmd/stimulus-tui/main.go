package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/handiism/stimulus/internal/config"
	"github.com/handiism/stimulus/internal/tui"
)

func main() {
	settingsFlag := flag.String("settings", "", "Path to settings file")
	envFlag := flag.String("env-file", ".env", "dotenv file with STIMULUS_* overrides")
	flag.Parse()

	settings := config.DefaultSettings()
	if *settingsFlag != "" {
		var err error
		settings, err = config.Load(*settingsFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
			os.Exit(1)
		}
	}
	if err := config.LoadEnv(*envFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", *envFlag, err)
		os.Exit(1)
	}
	settings.ApplyEnv()

	if err := tui.Run(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
