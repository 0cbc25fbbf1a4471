package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer writes one line per event.
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	styles Styles
	quiet  bool
	errors []ErrorEvent
}

// NewPlainRenderer creates a line-oriented renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:    cfg.Output,
		styles: GetStyles(cfg.NoColor),
		quiet:  cfg.Quiet,
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer.
//
// Format: [STAGE] repository current/total - message
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.quiet && event.Stage != StageComplete {
		return
	}

	prefix := r.styles.stageStyle(event.Stage).Render("[" + event.Stage.Icon() + "]")
	if event.Repository != "" {
		prefix += " " + event.Repository
	}

	switch {
	case event.Total > 0:
		_, _ = fmt.Fprintf(r.out, "%s %d/%d - %s\n", prefix, event.Current, event.Total, event.Message)
	case event.Message != "":
		_, _ = fmt.Fprintf(r.out, "%s %s\n", prefix, event.Message)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := r.styles.Error.Render("ERROR")
	if event.IsWarn {
		prefix = r.styles.Warning.Render("WARN")
	}

	if event.Repository != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.Repository, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "%s %d entries from %d groups in %d pages (%d repositories) in %s",
		r.styles.Success.Render("Complete:"),
		stats.Entries, stats.Groups, stats.Pages, stats.Repositories,
		stats.Duration.Round(100*time.Millisecond))

	if stats.Skipped > 0 {
		_, _ = fmt.Fprintf(r.out, ", %d skipped", stats.Skipped)
	}
	if stats.Errors > 0 || stats.Warnings > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d errors, %d warnings)", stats.Errors, stats.Warnings)
	}

	_, _ = fmt.Fprintln(r.out)
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

// Errors returns the errors reported so far.
func (r *PlainRenderer) Errors() []ErrorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorEvent, len(r.errors))
	copy(out, r.errors)
	return out
}
