package tui

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"mclaunch/internal/download"
)

// InstallColumns lays out the install progress table.
var InstallColumns = []Column{
	{Header: "BATCH", Width: 16},
	{Header: "FILES", Width: 11},
	{Header: "STATUS", Width: 11},
}

// BatchReporter forwards download progress into a running ProgressModel,
// one row per batch label.
type BatchReporter struct {
	send func(tea.Msg)
}

// NewBatchReporter returns a reporter that delivers messages through send.
func NewBatchReporter(send func(tea.Msg)) *BatchReporter {
	return &BatchReporter{send: send}
}

// Report implements download.Reporter.
func (r *BatchReporter) Report(p download.Progress) {
	r.send(RowUpdateMsg{Key: p.Label, Fields: map[string]string{
		"BATCH":  p.Label,
		"FILES":  fmt.Sprintf("%d/%d", p.Done, p.Total),
		"STATUS": batchStatus(p),
	}})
	r.send(BatchProgressMsg{Key: p.Label, Percent: batchPercent(p)})
}

// StepRow returns the row update that shows a mod-loader step in the table.
func StepRow(loader string, n, total int, name string) RowUpdateMsg {
	return RowUpdateMsg{Key: "step:" + loader, Fields: map[string]string{
		"BATCH":  loader,
		"FILES":  fmt.Sprintf("step %d/%d", n, total),
		"STATUS": name,
	}}
}

// LineReporter prints one line per finished batch. It is used when the
// output is not an interactive terminal.
type LineReporter struct {
	w       io.Writer
	mu      sync.Mutex
	skipped map[string]int
}

// NewLineReporter returns a LineReporter writing to w.
func NewLineReporter(w io.Writer) *LineReporter {
	return &LineReporter{w: w, skipped: make(map[string]int)}
}

// Report implements download.Reporter.
func (r *LineReporter) Report(p download.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.Skipped {
		r.skipped[p.Label]++
	}
	if !p.Finished {
		return
	}
	skipped := r.skipped[p.Label]
	delete(r.skipped, p.Label)
	if p.Err != nil {
		fmt.Fprintf(r.w, "%s: failed after %d/%d: %v\n", p.Label, p.Done, p.Total, p.Err)
		return
	}
	if skipped > 0 {
		fmt.Fprintf(r.w, "%s: %d/%d (%d cached)\n", p.Label, p.Done, p.Total, skipped)
		return
	}
	fmt.Fprintf(r.w, "%s: %d/%d\n", p.Label, p.Done, p.Total)
}

func batchStatus(p download.Progress) string {
	switch {
	case p.Finished && p.Err != nil:
		return "error"
	case p.Finished && p.Total == 0:
		return "skipped"
	case p.Finished:
		return "complete"
	default:
		return "downloading"
	}
}

func batchPercent(p download.Progress) float64 {
	if p.Total == 0 {
		if p.Finished {
			return 1
		}
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}
