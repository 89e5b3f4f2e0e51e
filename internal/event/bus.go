package event

import (
	"context"
	"log/slog"
	"sync"

	"draftforge.app/engine/common/logger"
)

const subscriberBuffer = 200

// Bus is an in-process publish/subscribe hub for job progress events.
// Each job gets its own bounded history; new subscribers receive a replay
// of the retained history before live events.
//
// Emit never blocks: a subscriber whose channel is full misses events
// rather than stalling the pipeline.
type Bus struct {
	mu         sync.RWMutex
	historyCap int
	history    map[string][]Event
	subs       map[string]map[int64]chan Event
	taps       []func(Event)
}

// NewBus creates a bus retaining at most historyCap events per job.
// A non-positive cap falls back to a sensible default.
func NewBus(historyCap int) *Bus {
	if historyCap <= 0 {
		historyCap = 500
	}
	return &Bus{
		historyCap: historyCap,
		history:    make(map[string][]Event),
		subs:       make(map[string]map[int64]chan Event),
	}
}

// Emit records ev in the job's history and fans it out to subscribers.
// Registered taps run after delivery, outside the bus lock.
func (b *Bus) Emit(ctx context.Context, ev Event) {
	b.mu.Lock()

	hist := append(b.history[ev.JobID], ev)
	if len(hist) > b.historyCap {
		hist = hist[len(hist)-b.historyCap:]
	}
	b.history[ev.JobID] = hist

	// Sends are non-blocking, so holding the lock here is cheap and keeps
	// delivery ordered with respect to Subscribe's replay and cancel's close.
	for _, ch := range b.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
			slog.WarnContext(ctx, "event subscriber channel full, dropping event",
				"job_id", ev.JobID, "event_type", string(ev.Type))
		}
	}

	taps := b.taps
	b.mu.Unlock()

	for _, tap := range taps {
		tap(ev)
	}
}

// Tap registers fn to be called for every event emitted on the bus,
// regardless of job. Taps may block briefly but run on the emitter's
// goroutine, so slow taps slow the pipeline. Taps cannot be removed.
func (b *Bus) Tap(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taps = append(b.taps, fn)
}

// Subscribe returns a channel of events for the given job, pre-loaded with
// the retained history. The returned cancel function must be called to
// release the subscription; the channel is closed on cancel.
func (b *Bus) Subscribe(ctx context.Context, jobID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	for _, ev := range b.history[jobID] {
		select {
		case ch <- ev:
		default:
		}
	}

	key := nextSubID()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[int64]chan Event)
	}
	b.subs[jobID][key] = ch
	b.mu.Unlock()

	slog.DebugContext(ctx, "event subscriber attached",
		"job_id", jobID, "subscribers", b.subscriberCount(jobID))

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[jobID], key)
			if len(b.subs[jobID]) == 0 {
				delete(b.subs, jobID)
			}
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// History returns a copy of the retained events for a job, oldest first.
func (b *Bus) History(jobID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	hist := b.history[jobID]
	out := make([]Event, len(hist))
	copy(out, hist)
	return out
}

// Clear drops the retained history for a job. Live subscribers are kept.
func (b *Bus) Clear(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.history, jobID)
}

func (b *Bus) subscriberCount(jobID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[jobID])
}

var (
	subIDMu sync.Mutex
	subID   int64
)

func nextSubID() int64 {
	subIDMu.Lock()
	defer subIDMu.Unlock()
	subID++
	return subID
}

// Emitter is a convenience wrapper binding a bus to a single job.
type Emitter struct {
	bus   *Bus
	jobID string
}

// NewEmitter binds the bus to one job.
func NewEmitter(bus *Bus, jobID string) *Emitter {
	return &Emitter{bus: bus, jobID: jobID}
}

func (e *Emitter) JobID() string { return e.jobID }

// Emit publishes an event for the bound job, stamping the stage from
// the log fields on ctx when present.
func (e *Emitter) Emit(ctx context.Context, typ Type, stage, message string, data map[string]any) {
	if e == nil || e.bus == nil {
		return
	}
	if stage == "" {
		if f := logger.GetLogFields(ctx); f.Stage != nil {
			stage = *f.Stage
		}
	}
	e.bus.Emit(ctx, New(e.jobID, typ, stage, message, data))
}
