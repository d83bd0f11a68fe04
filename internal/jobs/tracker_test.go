package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker(time.Hour)

	ctx, id := tr.Start(context.Background(), "example.com", "http://hook")
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	scan, err := tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, scan.Status)
	assert.Equal(t, 1, tr.Active())

	tr.MarkRunning(id)
	tr.Finish(id, 3, nil)

	scan, err = tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, scan.Status)
	assert.Equal(t, 3, scan.Records)
	assert.Error(t, ctx.Err(), "finished scans release their context")
	assert.Equal(t, 0, tr.Active())
}

func TestTrackerFailure(t *testing.T) {
	tr := NewTracker(time.Hour)
	_, id := tr.Start(context.Background(), "example.com", "")
	tr.Finish(id, 0, errors.New("malformed domain"))

	scan, err := tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, scan.Status)
	assert.Equal(t, "malformed domain", scan.Error)
}

func TestTrackerCancel(t *testing.T) {
	tr := NewTracker(time.Hour)
	ctx, id := tr.Start(context.Background(), "example.com", "")
	tr.MarkRunning(id)

	require.NoError(t, tr.Cancel(id))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	tr.Finish(id, 0, ctx.Err())
	scan, _ := tr.Get(id)
	assert.Equal(t, StatusCancelled, scan.Status)

	assert.ErrorIs(t, tr.Cancel(id), ErrFinished)
	assert.ErrorIs(t, tr.Cancel("nope"), ErrNotFound)
}

func TestTrackerCancelledWhilePendingStaysCancelled(t *testing.T) {
	tr := NewTracker(time.Hour)
	_, id := tr.Start(context.Background(), "example.com", "")

	require.NoError(t, tr.Cancel(id))
	tr.MarkRunning(id)

	scan, err := tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, scan.Status)

	tr.Finish(id, 4, nil)
	scan, err = tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, scan.Status)
}

func TestTrackerSupersedes(t *testing.T) {
	tr := NewTracker(time.Hour)
	first, firstID := tr.Start(context.Background(), "example.com", "http://hook")
	other, _ := tr.Start(context.Background(), "example.com", "http://other")
	second, secondID := tr.Start(context.Background(), "example.com", "http://hook")

	assert.ErrorIs(t, first.Err(), context.Canceled)
	assert.NoError(t, other.Err(), "different callback is a different scan")
	assert.NoError(t, second.Err())

	scan, _ := tr.Get(firstID)
	assert.Equal(t, StatusCancelled, scan.Status)
	assert.Contains(t, scan.Error, secondID)

	// The superseded scan finishing late does not clear the new one.
	tr.Finish(firstID, 5, nil)
	scan, _ = tr.Get(firstID)
	assert.Equal(t, StatusCancelled, scan.Status)
	assert.Equal(t, 2, tr.Active())
}

func TestTrackerCancelAll(t *testing.T) {
	tr := NewTracker(time.Hour)
	a, _ := tr.Start(context.Background(), "a.com", "")
	b, _ := tr.Start(context.Background(), "b.com", "")
	_, done := tr.Start(context.Background(), "c.com", "")
	tr.Finish(done, 0, nil)

	assert.Equal(t, 2, tr.CancelAll())
	assert.Error(t, a.Err())
	assert.Error(t, b.Err())
	assert.Equal(t, 0, tr.Active())
}

func TestTrackerPrunesOldScans(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(time.Minute)
	tr.now = func() time.Time { return now }

	_, old := tr.Start(context.Background(), "a.com", "")
	tr.Finish(old, 0, nil)

	now = now.Add(2 * time.Minute)
	_, _ = tr.Start(context.Background(), "b.com", "")

	_, err := tr.Get(old)
	assert.ErrorIs(t, err, ErrNotFound)
}
