package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(elapsed time.Duration) *ProgressTracker {
	t := NewProgressTracker()
	start := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	t.start = start
	t.now = func() time.Time { return start.Add(elapsed) }
	return t
}

func TestProgressTracker_PagesAcrossRepositories(t *testing.T) {
	// Given: one repository on its third of four pages and one finished
	tracker := newTestTracker(4 * time.Second)
	tracker.Update(ProgressEvent{Stage: StageCounting, Repository: "releases"})
	tracker.Update(ProgressEvent{Stage: StageFetching, Repository: "releases", Current: 3, Total: 4})
	tracker.Update(ProgressEvent{Stage: StageSubmitting, Repository: "pypi", Current: 2, Total: 2})
	tracker.Update(ProgressEvent{Stage: StageComplete, Repository: "pypi", Message: "10 entries in 2 pages"})

	// When: taking a snapshot
	stats := tracker.Stats()

	// Then: pages and repositories add up in first-seen order
	require.Len(t, stats.Repositories, 2)
	assert.Equal(t, "releases", stats.Repositories[0].Repository)
	assert.Equal(t, StageFetching, stats.Repositories[0].Stage)
	assert.Equal(t, 3, stats.Repositories[0].Page)
	assert.Equal(t, 2, stats.Repositories[1].Pages)
	assert.Equal(t, 1, stats.Done)
	assert.Equal(t, 4, stats.PagesDone)
	assert.Equal(t, 6, stats.PagesTotal)
	assert.InDelta(t, 4.0/6.0, stats.Progress, 0.001)
	assert.InDelta(t, 1.0, stats.Speed, 0.001)
	assert.Equal(t, 2*time.Second, stats.ETA)
}

func TestProgressTracker_Errors(t *testing.T) {
	tracker := newTestTracker(time.Second)
	tracker.Update(ProgressEvent{Stage: StageFetching, Repository: "releases", Current: 1, Total: 3})

	tracker.AddError(ErrorEvent{Repository: "releases", Err: errors.New("submit failed")})
	tracker.AddError(ErrorEvent{Repository: "pypi", Err: errors.New("slow"), IsWarn: true})

	stats := tracker.Stats()
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 1, stats.WarnCount)
	assert.Equal(t, "submit failed", stats.LastError)
	require.Len(t, stats.Repositories, 1)
	assert.True(t, stats.Repositories[0].Failed)
	assert.Equal(t, 1, stats.Done)
}

func TestProgressTracker_Empty(t *testing.T) {
	stats := newTestTracker(0).Stats()

	assert.Empty(t, stats.Repositories)
	assert.Zero(t, stats.Progress)
	assert.Zero(t, stats.Speed)
	assert.Zero(t, stats.ETA)
}
