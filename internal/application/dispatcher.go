package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/evanrhall/driftnote/internal/domain/model"
)

// job is one queued fan-out.
type job struct {
	profile model.Profile
	text    string
	sel     model.Selections
	noteID  int64
}

// Dispatcher runs cross-post fan-outs on a bounded worker pool so note
// creation never waits on external networks. Delivery is best effort: a
// full queue drops the job with a log line rather than blocking.
type Dispatcher struct {
	service *CrosspostService
	workers int
	queue   chan job
}

// NewDispatcher creates a Dispatcher with the given worker count and a
// queue of queueSize pending jobs.
func NewDispatcher(service *CrosspostService, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	return &Dispatcher{
		service: service,
		workers: workers,
		queue:   make(chan job, queueSize),
	}
}

// Enqueue submits a fan-out without blocking. Returns false when the queue
// is full and the job was dropped.
func (d *Dispatcher) Enqueue(profile model.Profile, text string, sel model.Selections, noteID int64) bool {
	select {
	case d.queue <- job{profile: profile, text: text, sel: sel, noteID: noteID}:
		return true
	default:
		slog.Warn("crosspost queue full, dropping job", "note_id", noteID, "user_id", profile.UserID)
		return false
	}
}

// Start runs the worker pool. It blocks until the context is canceled and
// all workers have drained.
func (d *Dispatcher) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}

	wg.Wait()
	slog.Info("crosspost dispatcher stopped")
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-d.queue:
			d.run(ctx, j)
		}
	}
}

// run executes one job, containing panics so a bad adapter cannot take the
// worker down.
func (d *Dispatcher) run(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("crosspost worker panic", "note_id", j.noteID, "panic", r)
		}
	}()

	d.service.Dispatch(ctx, j.profile, j.text, j.sel, j.noteID)
}
