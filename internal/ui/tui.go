package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer draws a live view of every repository run with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *indexingModel
	tracker *ProgressTracker
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTUIRenderer creates an interactive renderer. It fails when the output
// is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newIndexingModel(tracker)
	model.styles = GetStyles(cfg.NoColor || DetectNoColor())

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer. The program does not read stdin, so Ctrl+C
// reaches the command's signal handler and cancels ctx.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		return nil
	}

	opts := []tea.ProgramOption{tea.WithInput(nil)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	program := r.program
	go func() {
		defer close(r.done)
		_, _ = program.Run()
	}()
	go func() {
		select {
		case <-ctx.Done():
			program.Send(cancelledMsg{})
		case <-r.done:
		}
	}()

	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.tracker.Update(event)
	r.send(progressUpdateMsg(event))
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.tracker.AddError(event)
	r.send(errorMsg(event))
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.send(completeMsg(stats))
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()
	if program != nil {
		program.Send(msg)
	}
}

// Stop implements Renderer. It waits for the final frame so output written
// afterwards lands below the view, and may be called more than once.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	program := r.program
	r.program = nil
	r.mu.Unlock()

	if program == nil {
		return nil
	}
	program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

type progressUpdateMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats
type cancelledMsg struct{}
type tickMsg time.Time

// pipelineStages are the per-page steps shown for every repository.
var pipelineStages = []struct {
	stage Stage
	name  string
}{
	{StageCounting, "Count"},
	{StageFetching, "Fetch"},
	{StageBuilding, "Build"},
	{StageSubmitting, "Submit"},
}

type indexingModel struct {
	tracker     *ProgressTracker
	width       int
	cancelled   bool
	complete    bool
	stats       CompletionStats
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
}

func newIndexingModel(tracker *ProgressTracker) *indexingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTeal))

	return &indexingModel{
		tracker: tracker,
		spinner: s,
		progressBar: progress.New(
			progress.WithSolidFill(ColorTeal),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
		width:  80,
	}
}

// Init implements tea.Model.
func (m *indexingModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *indexingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(msg.Width-30, 20)

	case progressUpdateMsg, errorMsg:
		// The tracker already holds the event; the next frame shows it.
		return m, nil

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case cancelledMsg:
		m.cancelled = true
		return m, tea.Quit

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *indexingModel) View() string {
	if m.complete {
		return m.renderComplete()
	}

	stats := m.tracker.Stats()
	width := max(m.width-4, 40)

	sections := []string{m.styles.Header.Render("pkgindex")}
	for _, p := range stats.Repositories {
		sections = append(sections, m.renderRepository(p))
	}
	if len(stats.Repositories) == 0 {
		sections = append(sections, m.spinner.View()+" "+m.styles.Dim.Render("Preparing..."))
	}
	sections = append(sections,
		m.styles.Border.Render(strings.Repeat("─", width)),
		m.renderProgress(stats),
		m.renderStatusBar(stats),
	)

	view := strings.Join(sections, "\n")
	if m.cancelled {
		view += "\n" + m.styles.Warning.Render("Cancelled.")
	}
	return view + "\n"
}

// renderRepository renders one repository row:
// name, stage indicators and page position.
func (m *indexingModel) renderRepository(p RepositoryProgress) string {
	name := m.styles.Label.Render(fmt.Sprintf("%-20s", p.Repository))

	switch {
	case p.Failed:
		return name + " " + m.styles.Error.Render("✗ failed")
	case p.Stage == StageComplete:
		return name + " " + m.styles.Success.Render("✓ "+p.Message)
	}

	parts := make([]string, 0, len(pipelineStages))
	for _, s := range pipelineStages {
		switch {
		case s.stage == p.Stage:
			parts = append(parts, m.styles.Active.Render(m.spinner.View()+" "+s.name))
		case s.stage < p.Stage:
			parts = append(parts, m.styles.Success.Render("● "+s.name))
		default:
			parts = append(parts, m.styles.Dim.Render("○ "+s.name))
		}
	}
	row := name + " " + strings.Join(parts, m.styles.Dim.Render(" → "))
	if p.Pages > 0 {
		row += "  " + m.styles.Count.Render(fmt.Sprintf("page %d/%d", p.Page, p.Pages))
	}
	return row
}

// renderProgress renders the bar over all pages, speed and ETA.
func (m *indexingModel) renderProgress(stats ProgressStats) string {
	if stats.PagesTotal == 0 {
		return m.styles.Dim.Render("Counting groups...")
	}

	bar := m.progressBar.ViewAs(stats.Progress)
	pct := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", stats.Progress*100))
	line := fmt.Sprintf("%d / %d pages  •  %d/%d repositories  •  %.1f pages/s",
		stats.PagesDone, stats.PagesTotal, stats.Done, len(stats.Repositories), stats.Speed)
	if stats.ETA > 0 {
		line += "  •  ETA " + formatDuration(stats.ETA)
	}
	return bar + "  " + pct + "\n" + m.styles.Label.Render(line)
}

func (m *indexingModel) renderStatusBar(stats ProgressStats) string {
	var parts []string
	if stats.WarnCount > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", stats.WarnCount)))
	}
	if stats.ErrorCount > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", stats.ErrorCount)))
	}
	if stats.LastError != "" {
		parts = append(parts, m.styles.Dim.Render(truncate(stats.LastError, 60)))
	}
	if len(parts) == 0 {
		return m.styles.Dim.Render("Ctrl+C to cancel")
	}
	return strings.Join(parts, m.styles.Dim.Render("  │  "))
}

func (m *indexingModel) renderComplete() string {
	s := m.stats
	header := m.styles.Success.Render("✓ Indexing Complete")
	if s.Errors > 0 {
		header = m.styles.Warning.Render(fmt.Sprintf("Indexing Complete with %d errors", s.Errors))
	}

	lines := []string{header, ""}
	for _, f := range []struct {
		label string
		value string
	}{
		{"Repositories:", fmt.Sprintf("%d", s.Repositories)},
		{"Groups:", fmt.Sprintf("%d", s.Groups)},
		{"Pages:", fmt.Sprintf("%d", s.Pages)},
		{"Entries:", fmt.Sprintf("%d", s.Entries)},
		{"Skipped:", fmt.Sprintf("%d", s.Skipped)},
		{"Duration:", formatDuration(s.Duration)},
	} {
		lines = append(lines, m.styles.Label.Render(fmt.Sprintf("%-14s", f.label))+m.styles.Active.Render(f.value))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDarkGray)).
		Padding(0, 1)
	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration formats a duration as "4s", "2m 5s" or "1h 3m".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
