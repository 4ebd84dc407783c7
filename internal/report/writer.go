package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/handiism/stimulus/internal/model"
)

// Header is the column order of CSV and TSV reports.
var Header = []string{"intended_ms", "actual_ms", "type", "label", "slot", "group", "image_id"}

// Writer renders a run into a report file.
//
// Each format serves a different reader:
//   - CSV/TSV: one row per event, for analysis scripts
//   - JSON: the run metadata plus its events, for tools
//   - M3U: the shown images as a playlist, to replay the sequence in a viewer
//
// Example:
//
//	w := NewWriter(model.ReportFormatCSV)
//	data, err := w.Render(run)
//	os.WriteFile("faces_20240309-140507.csv", data, 0644)
//
//	// Result:
//	// intended_ms,actual_ms,type,label,slot,group,image_id
//	// 0,1,EXHIBITION_ONSET,happy/a.png,1,happy,1
//	// 1000,1002,EXHIBITION_OFFSET,happy/a.png,1,happy,1
type Writer struct {
	format model.ReportFormat
}

// NewWriter creates a new Writer for the given format.
func NewWriter(format model.ReportFormat) *Writer {
	return &Writer{format: format}
}

// Format returns the format the writer renders.
func (w *Writer) Format() model.ReportFormat {
	return w.format
}

// Render encodes run in the writer's format.
func (w *Writer) Render(run *model.Run) ([]byte, error) {
	switch w.format {
	case model.ReportFormatCSV:
		return w.renderDelimited(run, ',')
	case model.ReportFormatTSV:
		return w.renderDelimited(run, '\t')
	case model.ReportFormatJSON:
		return w.renderJSON(run)
	case model.ReportFormatM3U:
		return []byte(w.renderM3U(run)), nil
	default:
		return nil, fmt.Errorf("unknown report format %d", int(w.format))
	}
}

// renderDelimited writes one row per event. Slots are written 1-based;
// events before the first exhibition have slot 0.
func (w *Writer) renderDelimited(run *model.Run, comma rune) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Comma = comma

	if err := cw.Write(Header); err != nil {
		return nil, err
	}
	for _, e := range run.Events {
		record := []string{
			strconv.FormatInt(e.IntendedMS, 10),
			strconv.FormatInt(e.ActualMS, 10),
			string(e.Type),
			e.Label,
			strconv.Itoa(e.Slot + 1),
			e.Group,
			strconv.Itoa(e.ImageID),
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type jsonEvent struct {
	IntendedMS int64  `json:"intended_ms"`
	ActualMS   int64  `json:"actual_ms"`
	Type       string `json:"type"`
	Label      string `json:"label"`
	Slot       int    `json:"slot"`
	Group      string `json:"group,omitempty"`
	ImageID    int    `json:"image_id,omitempty"`
	File       string `json:"file,omitempty"`
}

type jsonRun struct {
	Experiment     string      `json:"experiment"`
	Seed           string      `json:"seed"`
	Started        time.Time   `json:"started"`
	Finished       time.Time   `json:"finished"`
	Completed      bool        `json:"completed"`
	ShowTimeMS     int64       `json:"show_time_ms"`
	IntervalTimeMS int64       `json:"interval_time_ms"`
	InteractionKey string      `json:"interaction_key,omitempty"`
	Events         []jsonEvent `json:"events"`
}

// renderJSON writes the run as one indented document. The seed is written
// as a string so 64-bit values survive JSON readers that use doubles.
func (w *Writer) renderJSON(run *model.Run) ([]byte, error) {
	out := jsonRun{
		Experiment:     run.Experiment,
		Seed:           strconv.FormatUint(run.Seed, 10),
		Started:        run.Started,
		Finished:       run.Finished,
		Completed:      run.Completed,
		ShowTimeMS:     run.Presentation.ShowTime.Milliseconds(),
		IntervalTimeMS: run.Presentation.IntervalTime.Milliseconds(),
		InteractionKey: run.Presentation.InteractionKey,
		Events:         make([]jsonEvent, len(run.Events)),
	}
	for i, e := range run.Events {
		out.Events[i] = jsonEvent{
			IntendedMS: e.IntendedMS,
			ActualMS:   e.ActualMS,
			Type:       string(e.Type),
			Label:      e.Label,
			Slot:       e.Slot + 1,
			Group:      e.Group,
			ImageID:    e.ImageID,
			File:       e.File,
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// renderM3U generates an extended M3U playlist of the shown images.
//
//	#EXTM3U
//	#PLAYLIST:faces (seed 42)
//	#EXTINF:1,happy - a.png
//	/stimuli/happy/a.png
//
// The EXTINF duration is the measured on-screen time in whole seconds,
// rounded up, or the configured show time when the image was never cleared.
func (w *Writer) renderM3U(run *model.Run) string {
	var sb strings.Builder

	sb.WriteString("#EXTM3U\n")
	sb.WriteString(fmt.Sprintf("#PLAYLIST:%s (seed %d)\n", run.Experiment, run.Seed))

	offsets := make(map[int]int64)
	for _, e := range run.Events {
		if e.Type == model.EventOffset {
			offsets[e.Slot] = e.ActualMS
		}
	}

	for _, e := range run.Onsets() {
		shownMS := run.Presentation.ShowTime.Milliseconds()
		if off, ok := offsets[e.Slot]; ok {
			shownMS = off - e.ActualMS
		}
		seconds := (shownMS + 999) / 1000
		file := e.File
		if file == "" {
			file = e.Label
		}
		sb.WriteString(fmt.Sprintf("#EXTINF:%d,%s - %s\n", seconds, e.Group, filepath.Base(e.Label)))
		sb.WriteString(file + "\n")
	}

	return sb.String()
}
