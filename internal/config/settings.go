package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/handiism/stimulus/internal/model"
)

// Settings holds all configuration options.
type Settings struct {
	// Output settings
	OutputDir      string `json:"output_dir"`
	ReportFormat   string `json:"report_format"` // csv, tsv, json, m3u
	FileNameFormat string `json:"file_name_format"`

	// ArchiveExperiment copies the experiment file next to each report.
	ArchiveExperiment bool `json:"archive_experiment"`

	// Scheduling. Seed 0 draws a fresh seed for every run.
	Seed uint64 `json:"seed"`

	// Preload settings
	MaxConcurrentPreload int  `json:"max_concurrent_preload"`
	PreloadPixels        bool `json:"preload_pixels"`
	FitToScreen          bool `json:"fit_to_screen"`
	ScreenWidth          int  `json:"screen_width"`
	ScreenHeight         int  `json:"screen_height"`
	StrictFiles          bool `json:"strict_files"`

	// StimuliDir overrides the directory image paths are resolved against.
	// Empty means the directory of the experiment file.
	StimuliDir string `json:"stimuli_dir"`

	Verbose bool `json:"verbose"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		OutputDir:      filepath.Join(homeDir, "Stimulus", "results"),
		ReportFormat:   "csv",
		FileNameFormat: "{experiment}_{date}-{time}",

		ArchiveExperiment: true,

		MaxConcurrentPreload: 4,
		PreloadPixels:        false,
		FitToScreen:          true,
		ScreenWidth:          1920,
		ScreenHeight:         1080,
		StrictFiles:          false,
	}
}

// Load reads settings from a JSON file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LoadEnv loads the given .env files into the process environment, or
// ".env" when none are given. Missing files are not an error. Variables
// already set in the environment win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overlays STIMULUS_* environment variables on s.
//
// Recognised variables: STIMULUS_OUTPUT_DIR, STIMULUS_REPORT_FORMAT,
// STIMULUS_FILE_NAME_FORMAT, STIMULUS_ARCHIVE_EXPERIMENT, STIMULUS_SEED,
// STIMULUS_MAX_CONCURRENT_PRELOAD, STIMULUS_PRELOAD_PIXELS, STIMULUS_FIT_TO_SCREEN, STIMULUS_SCREEN_WIDTH,
// STIMULUS_SCREEN_HEIGHT, STIMULUS_STRICT_FILES, STIMULUS_STIMULI_DIR and
// STIMULUS_VERBOSE. Unparsable values are ignored.
func (s *Settings) ApplyEnv() {
	s.OutputDir = getEnv("STIMULUS_OUTPUT_DIR", s.OutputDir)
	s.ReportFormat = getEnv("STIMULUS_REPORT_FORMAT", s.ReportFormat)
	s.FileNameFormat = getEnv("STIMULUS_FILE_NAME_FORMAT", s.FileNameFormat)
	s.ArchiveExperiment = getEnvAsBool("STIMULUS_ARCHIVE_EXPERIMENT", s.ArchiveExperiment)
	s.Seed = getEnvAsUint64("STIMULUS_SEED", s.Seed)
	s.MaxConcurrentPreload = getEnvAsInt("STIMULUS_MAX_CONCURRENT_PRELOAD", s.MaxConcurrentPreload)
	s.PreloadPixels = getEnvAsBool("STIMULUS_PRELOAD_PIXELS", s.PreloadPixels)
	s.FitToScreen = getEnvAsBool("STIMULUS_FIT_TO_SCREEN", s.FitToScreen)
	s.ScreenWidth = getEnvAsInt("STIMULUS_SCREEN_WIDTH", s.ScreenWidth)
	s.ScreenHeight = getEnvAsInt("STIMULUS_SCREEN_HEIGHT", s.ScreenHeight)
	s.StrictFiles = getEnvAsBool("STIMULUS_STRICT_FILES", s.StrictFiles)
	s.StimuliDir = getEnv("STIMULUS_STIMULI_DIR", s.StimuliDir)
	s.Verbose = getEnvAsBool("STIMULUS_VERBOSE", s.Verbose)
}

// ToReportConfig converts settings to ReportConfig. Unknown formats fall
// back to CSV.
func (s *Settings) ToReportConfig() *model.ReportConfig {
	format, err := model.ParseReportFormat(s.ReportFormat)
	if err != nil {
		format = model.ReportFormatCSV
	}
	return &model.ReportConfig{
		OutputDir:      s.OutputDir,
		FileNameFormat: s.FileNameFormat,
		Format:         format,
	}
}

// PreloadLimit returns the errgroup limit for preloading stimuli.
func (s *Settings) PreloadLimit() int {
	if s.MaxConcurrentPreload < 1 {
		return 1
	}
	return s.MaxConcurrentPreload
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
