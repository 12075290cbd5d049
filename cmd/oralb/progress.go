package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/srg/oralb/internal/groutine"
	"golang.org/x/term"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ProgressPrinter shows "<prefix> (<phase> Ns)" while a blocking step runs.
// It prints nothing unless its writer is a terminal.
//
// A ProgressPrinter is single-use: Start at most once, then Stop.
type ProgressPrinter struct {
	w       io.Writer
	prefix  string
	phase   string
	enabled bool

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// NewProgressPrinter creates a progress printer that counts up the elapsed seconds.
func NewProgressPrinter(w io.Writer, prefix, phase string) *ProgressPrinter {
	return &ProgressPrinter{
		w:       w,
		prefix:  prefix,
		phase:   phase,
		enabled: isTerminal(w),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressPrinter) Start(ctx context.Context) {
	if !p.enabled || p.stop != nil {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	started := time.Now()

	fmt.Fprintf(p.w, "\r%s (%s...)   ", p.prefix, p.phase)
	groutine.Go(ctx, "progress-printer", func(ctx context.Context) {
		defer close(p.done)

		ticker := time.NewTicker(progressUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if secs := int(time.Since(started).Seconds()); secs > 0 {
					fmt.Fprintf(p.w, "\r%s (%s %ds)   ", p.prefix, p.phase, secs)
				}
			}
		}
	})
}

// Stop stops the progress display and clears the line. Safe to call more than once.
func (p *ProgressPrinter) Stop() {
	if p.stop == nil {
		return
	}
	p.once.Do(func() {
		close(p.stop)
		<-p.done
		fmt.Fprint(p.w, clearLineSequence)
	})
}
