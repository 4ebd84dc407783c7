// Package report renders the result of a presentation run.
//
// A run is a list of timestamped events (image onset, image offset,
// response) plus the experiment name, the scheduler seed and the start
// time. The Writer turns it into one of the formats of model.ReportFormat:
//
//	w := report.NewWriter(model.ReportFormatCSV)
//	data, err := w.Render(run)
//
// Supported formats:
//   - CSV and TSV, one row per event (intended_ms, actual_ms, type, label,
//     slot, group, image_id)
//   - JSON, with the run metadata
//   - M3U, the shown sequence as a playlist
package report
