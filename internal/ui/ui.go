// Package ui provides terminal progress display for indexing runs.
package ui

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage represents a step of a repository indexing run.
type Stage int

const (
	// StageIngesting is the storage scan that attaches coordinates.
	StageIngesting Stage = iota
	// StageCounting counts the repository's artifact groups.
	StageCounting
	// StageFetching loads one page of groups.
	StageFetching
	// StageBuilding filters entries and resolves siblings.
	StageBuilding
	// StageSubmitting hands a page batch to the index backend.
	StageSubmitting
	// StageComplete indicates the run is complete.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageIngesting:
		return "Ingesting"
	case StageCounting:
		return "Counting"
	case StageFetching:
		return "Fetching"
	case StageBuilding:
		return "Building"
	case StageSubmitting:
		return "Submitting"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage icon for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageIngesting:
		return "INGEST"
	case StageCounting:
		return "COUNT"
	case StageFetching:
		return "FETCH"
	case StageBuilding:
		return "BUILD"
	case StageSubmitting:
		return "SUBMIT"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage      Stage
	Repository string
	Current    int
	Total      int
	Message    string
}

// ErrorEvent represents an error during processing.
type ErrorEvent struct {
	Repository string
	Err        error
	IsWarn     bool
}

// CompletionStats contains final run statistics.
type CompletionStats struct {
	Repositories int
	Pages        int
	Groups       int64
	Entries      int
	Skipped      int
	Duration     time.Duration
	Errors       int
	Warnings     int
}

// Renderer defines the interface for progress display.
// Implementations must be safe for concurrent use: repositories are indexed
// in parallel and report through the same renderer.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Quiet      bool
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain selects line output even on a terminal.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithQuiet suppresses per-page progress lines.
func WithQuiet(quiet bool) ConfigOption {
	return func(c *Config) {
		c.Quiet = quiet
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer picks the interactive view for terminals outside CI and line
// output everywhere else. Quiet runs only print the summary, so they are
// always line based. Colors need a terminal and are off under CI or
// NO_COLOR.
func NewRenderer(cfg Config) Renderer {
	tty := IsTTY(cfg.Output)
	ci := DetectCI()
	if !tty || ci || DetectNoColor() {
		cfg.NoColor = true
	}

	if cfg.ForcePlain || cfg.Quiet || !tty || ci {
		return NewPlainRenderer(cfg)
	}

	r, err := NewTUIRenderer(cfg)
	if err != nil {
		slog.Debug("interactive view unavailable, using line output", slog.String("error", err.Error()))
		return NewPlainRenderer(cfg)
	}
	return r
}

// Nop returns a renderer that discards everything.
func Nop() Renderer {
	return nopRenderer{}
}

type nopRenderer struct{}

func (nopRenderer) Start(context.Context) error   { return nil }
func (nopRenderer) UpdateProgress(ProgressEvent) {}
func (nopRenderer) AddError(ErrorEvent)          {}
func (nopRenderer) Complete(CompletionStats)     {}
func (nopRenderer) Stop() error                  { return nil }

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
