package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ReportFormat represents the supported result file formats.
type ReportFormat int

const (
	// ReportFormatCSV writes one comma separated row per event.
	ReportFormatCSV ReportFormat = iota

	// ReportFormatTSV writes one tab separated row per event.
	ReportFormatTSV

	// ReportFormatJSON writes the run metadata and its events as one document.
	ReportFormatJSON

	// ReportFormatM3U writes the shown images as an extended M3U playlist.
	ReportFormatM3U
)

// Extension returns the file extension for the report format, including the dot.
func (rf ReportFormat) Extension() string {
	switch rf {
	case ReportFormatCSV:
		return ".csv"
	case ReportFormatTSV:
		return ".tsv"
	case ReportFormatJSON:
		return ".json"
	case ReportFormatM3U:
		return ".m3u"
	default:
		return ".csv"
	}
}

// String returns the settings label of the format.
func (rf ReportFormat) String() string {
	return strings.TrimPrefix(rf.Extension(), ".")
}

// ParseReportFormat converts a settings label ("csv", "tsv", "json", "m3u")
// to a ReportFormat.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return ReportFormatCSV, nil
	case "tsv":
		return ReportFormatTSV, nil
	case "json":
		return ReportFormatJSON, nil
	case "m3u", "m3u8":
		return ReportFormatM3U, nil
	}
	return ReportFormatCSV, fmt.Errorf("unknown report format %q", s)
}

// ReportConfig holds where and how run results are written.
//
// FileNameFormat supports placeholders:
//   - {experiment} - experiment name
//   - {date} - run start as 20060102
//   - {time} - run start as 150405
//   - {seed} - seed of the scheduler
type ReportConfig struct {
	// OutputDir is the directory reports are written to.
	OutputDir string

	// FileNameFormat is the file name template, without extension.
	FileNameFormat string

	// Format determines the report encoding and extension.
	Format ReportFormat
}

// ReportPath computes the report file path of a run.
func (c *ReportConfig) ReportPath(experiment string, seed uint64, started time.Time) string {
	name := c.FileNameFormat
	if name == "" {
		name = "{experiment}_{date}-{time}"
	}
	name = strings.ReplaceAll(name, "{experiment}", sanitizeFileName(experiment))
	name = strings.ReplaceAll(name, "{date}", started.Format("20060102"))
	name = strings.ReplaceAll(name, "{time}", started.Format("150405"))
	name = strings.ReplaceAll(name, "{seed}", strconv.FormatUint(seed, 10))
	name = sanitizeFileName(name)
	if name == "" {
		name = "results"
	}
	return filepath.Join(c.OutputDir, name+c.Format.Extension())
}

var (
	invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots     = regexp.MustCompile(`\.+$`)
	repeatedSpace    = regexp.MustCompile(`\s+`)
)

func sanitizeFileName(name string) string {
	name = invalidFileChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
