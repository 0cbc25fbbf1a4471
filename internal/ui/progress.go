package ui

import (
	"sync"
	"time"
)

// RepositoryProgress is the latest known state of one repository run.
type RepositoryProgress struct {
	Repository string
	Stage      Stage
	Page       int
	Pages      int
	Message    string
	Failed     bool
}

// pagesDone counts the pages already submitted. A page is done once the
// run has moved past it.
func (p RepositoryProgress) pagesDone() int {
	switch {
	case p.Stage == StageComplete:
		return p.Pages
	case p.Page > 0:
		return p.Page - 1
	default:
		return 0
	}
}

// ProgressStats is a snapshot of every repository run.
type ProgressStats struct {
	Repositories []RepositoryProgress
	Done         int
	PagesDone    int
	PagesTotal   int
	Progress     float64 // 0.0 to 1.0
	Speed        float64 // pages per second
	Elapsed      time.Duration
	ETA          time.Duration
	ErrorCount   int
	WarnCount    int
	LastError    string
}

// ProgressTracker aggregates progress events of concurrent repository runs.
type ProgressTracker struct {
	mu        sync.Mutex
	start     time.Time
	now       func() time.Time
	order     []string
	repos     map[string]*RepositoryProgress
	errors    int
	warns     int
	lastError string
}

// NewProgressTracker creates a tracker whose clock starts now.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		start: time.Now(),
		now:   time.Now,
		repos: make(map[string]*RepositoryProgress),
	}
}

// Update records a progress event. Events without a page total keep the
// last known page position.
func (t *ProgressTracker) Update(event ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.repository(event.Repository)
	p.Stage = event.Stage
	p.Message = event.Message
	if event.Total > 0 {
		p.Page = event.Current
		p.Pages = event.Total
	}
}

// AddError records an error or warning.
func (t *ProgressTracker) AddError(event ErrorEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if event.IsWarn {
		t.warns++
		return
	}
	t.errors++
	if event.Err != nil {
		t.lastError = event.Err.Error()
	}
	if event.Repository != "" {
		t.repository(event.Repository).Failed = true
	}
}

// Stats returns a snapshot with repositories in first-seen order.
func (t *ProgressTracker) Stats() ProgressStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := ProgressStats{
		Repositories: make([]RepositoryProgress, 0, len(t.order)),
		Elapsed:      t.now().Sub(t.start),
		ErrorCount:   t.errors,
		WarnCount:    t.warns,
		LastError:    t.lastError,
	}
	for _, name := range t.order {
		p := *t.repos[name]
		stats.Repositories = append(stats.Repositories, p)
		if p.Stage == StageComplete || p.Failed {
			stats.Done++
		}
		stats.PagesDone += p.pagesDone()
		stats.PagesTotal += p.Pages
	}

	if stats.PagesTotal > 0 {
		stats.Progress = float64(stats.PagesDone) / float64(stats.PagesTotal)
	}
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		stats.Speed = float64(stats.PagesDone) / secs
	}
	if stats.Speed > 0 && stats.PagesDone < stats.PagesTotal {
		remaining := float64(stats.PagesTotal - stats.PagesDone)
		stats.ETA = time.Duration(remaining / stats.Speed * float64(time.Second))
	}
	return stats
}

func (t *ProgressTracker) repository(name string) *RepositoryProgress {
	p, ok := t.repos[name]
	if !ok {
		p = &RepositoryProgress{Repository: name}
		t.repos[name] = p
		t.order = append(t.order, name)
	}
	return p
}
