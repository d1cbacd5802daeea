package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"

	"mclaunch/internal/download"
)

// StatusWriter keeps a single spinner line up to date on w. It is used for
// short phases that do not warrant the full progress table, such as loading
// the version catalog. It also accepts download progress so the line can
// show how far the phase's fetches have come.
type StatusWriter struct {
	w       io.Writer
	frames  spinner.Spinner
	mu      sync.Mutex
	message string
	detail  string
	started time.Time
	done    chan struct{}
	stopped bool
}

// NewStatusWriter starts redrawing the status line on w.
func NewStatusWriter(w io.Writer) *StatusWriter {
	sw := &StatusWriter{
		w:       w,
		frames:  spinner.MiniDot,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go sw.loop()
	return sw
}

// Update replaces the phase text and restarts the elapsed timer.
func (sw *StatusWriter) Update(msg string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.message = msg
	sw.detail = ""
	sw.started = time.Now()
}

// Report implements download.Reporter by appending the batch counter to the
// current phase text.
func (sw *StatusWriter) Report(p download.Progress) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.detail = fmt.Sprintf("%s %d/%d", p.Label, p.Done, p.Total)
}

// Stop clears the status line. It is safe to call more than once.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return
	}
	sw.stopped = true
	sw.mu.Unlock()
	close(sw.done)
	fmt.Fprint(sw.w, "\r\033[K")
}

func (sw *StatusWriter) line(frame int) string {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	text := sw.message
	if sw.detail != "" {
		text += " [" + sw.detail + "]"
	}
	glyph := sw.frames.Frames[frame%len(sw.frames.Frames)]
	return fmt.Sprintf("\r\033[K%s %s (%s)", glyph, text, formatElapsed(time.Since(sw.started)))
}

func (sw *StatusWriter) loop() {
	ticker := time.NewTicker(sw.frames.FPS)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			fmt.Fprint(sw.w, sw.line(frame))
		}
	}
}

func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
