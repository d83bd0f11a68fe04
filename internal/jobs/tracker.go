// Package jobs tracks background scans started through the API so they can
// be inspected, cancelled, or superseded. State lives in memory only.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("scan not found")
	ErrFinished = errors.New("scan already finished")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Scan is a point-in-time view of a tracked scan.
type Scan struct {
	ID          string    `json:"scan_id"`
	Domain      string    `json:"domain"`
	CallbackURL string    `json:"callback_url,omitempty"`
	Status      Status    `json:"status"`
	Records     int       `json:"records"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type entry struct {
	Scan
	key    string
	cancel context.CancelFunc
}

type Tracker struct {
	mu        sync.Mutex
	scans     map[string]*entry
	active    map[string]string // domain+callback -> scan id
	retention time.Duration
	now       func() time.Time
}

// NewTracker keeps finished scans for retention before Prune drops them.
func NewTracker(retention time.Duration) *Tracker {
	return &Tracker{
		scans:     make(map[string]*entry),
		active:    make(map[string]string),
		retention: retention,
		now:       time.Now,
	}
}

// Start registers a scan and returns its context and id. The context derives
// from parent, not from any request. A still-running scan for the same domain
// and callback is cancelled.
func (t *Tracker) Start(parent context.Context, domain, callbackURL string) (context.Context, string) {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.New().String()
	key := domain + "|" + callbackURL
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.active[key]; ok {
		if e := t.scans[prev]; e != nil && !e.Status.Finished() {
			e.cancel()
			e.Status = StatusCancelled
			e.Error = "superseded by " + id
			e.UpdatedAt = now
		}
	}

	t.scans[id] = &entry{
		Scan: Scan{
			ID:          id,
			Domain:      domain,
			CallbackURL: callbackURL,
			Status:      StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		key:    key,
		cancel: cancel,
	}
	t.active[key] = id
	t.pruneLocked(now)
	return ctx, id
}

// MarkRunning moves a pending scan to running. Any other status is kept.
func (t *Tracker) MarkRunning(id string) {
	t.update(id, func(e *entry) {
		if e.Status == StatusPending {
			e.Status = StatusRunning
		}
	})
}

// Finish records the outcome. A scan whose context was cancelled is reported
// as cancelled whatever err says.
func (t *Tracker) Finish(id string, records int, err error) {
	t.update(id, func(e *entry) {
		e.Records = records
		switch {
		case e.Status == StatusCancelled:
		case errors.Is(err, context.Canceled):
			e.Status = StatusCancelled
		case err != nil:
			e.Status = StatusFailed
			e.Error = err.Error()
		default:
			e.Status = StatusCompleted
		}
		e.cancel()
		if t.active[e.key] == e.ID {
			delete(t.active, e.key)
		}
	})
}

// Cancel stops a pending or running scan.
func (t *Tracker) Cancel(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.scans[id]
	if !ok {
		return ErrNotFound
	}
	if e.Status.Finished() {
		return ErrFinished
	}
	e.cancel()
	e.Status = StatusCancelled
	e.UpdatedAt = t.now()
	return nil
}

// CancelAll stops every unfinished scan. Used on shutdown.
func (t *Tracker) CancelAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, e := range t.scans {
		if e.Status.Finished() {
			continue
		}
		e.cancel()
		e.Status = StatusCancelled
		e.UpdatedAt = t.now()
		n++
	}
	return n
}

func (t *Tracker) Get(id string) (Scan, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.scans[id]
	if !ok {
		return Scan{}, ErrNotFound
	}
	return e.Scan, nil
}

// Active counts scans that have not finished.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, e := range t.scans {
		if !e.Status.Finished() {
			n++
		}
	}
	return n
}

func (t *Tracker) update(id string, fn func(*entry)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.scans[id]; ok {
		fn(e)
		e.UpdatedAt = t.now()
	}
}

func (t *Tracker) pruneLocked(now time.Time) {
	if t.retention <= 0 {
		return
	}
	for id, e := range t.scans {
		if e.Status.Finished() && now.Sub(e.UpdatedAt) > t.retention {
			delete(t.scans, id)
		}
	}
}
