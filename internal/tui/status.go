package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StatusWriter keeps a single spinner line updated in place while a long
// call runs, such as paging through release listings.
type StatusWriter struct {
	w       io.Writer
	mu      sync.Mutex
	message string
	started time.Time
	done    chan struct{}
	wg      sync.WaitGroup
	stopped bool
}

// NewStatusWriter starts redrawing the status line on w every 100ms.
func NewStatusWriter(w io.Writer) *StatusWriter {
	sw := &StatusWriter{
		w:       w,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	sw.wg.Add(1)
	go sw.loop()
	return sw
}

// Updatef replaces the status text. Elapsed time keeps counting from start.
func (sw *StatusWriter) Updatef(format string, args ...any) {
	sw.mu.Lock()
	sw.message = fmt.Sprintf(format, args...)
	sw.mu.Unlock()
}

// Stop clears the line and waits for the redraw loop to exit.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return
	}
	sw.stopped = true
	sw.mu.Unlock()
	close(sw.done)
	sw.wg.Wait()
	fmt.Fprint(sw.w, "\r\033[K")
}

func (sw *StatusWriter) loop() {
	defer sw.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			sw.mu.Lock()
			msg := sw.message
			sw.mu.Unlock()
			fmt.Fprintf(sw.w, "\r\033[K%s %s (%s)", spinnerFrames[frame%len(spinnerFrames)], msg, formatElapsed(time.Since(sw.started)))
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
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
