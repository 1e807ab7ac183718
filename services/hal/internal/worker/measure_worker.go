// Package worker runs the split-phase Trigger/Collect cycle for adaptors on
// one bus. One worker goroutine per bus keeps measurements on that bus in
// order; control traffic is serialised separately by the bus shim.
package worker

import (
	"context"
	"errors"
	"time"

	"sc16is752-go/services/hal/internal/halcore"
	"sc16is752-go/services/hal/internal/util"
)

type MeasureWorker struct {
	cfg  halcore.WorkerConfig
	reqQ chan halcore.MeasureReq
	sink chan<- halcore.Result

	// Owned by the worker goroutine.
	inflight map[string]*pending
	again    map[string]bool // prio request arrived while in flight
	queue    []*pending
	timer    *time.Timer
}

type pending struct {
	id      string
	adaptor halcore.Adaptor
	due     time.Time
	retries int
}

func New(cfg halcore.WorkerConfig, sink chan<- halcore.Result) *MeasureWorker {
	if cfg.TriggerTimeout <= 0 {
		cfg.TriggerTimeout = 100 * time.Millisecond
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 250 * time.Millisecond
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 15 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 6
	}
	if cfg.InputQueueSize <= 0 {
		cfg.InputQueueSize = 16
	}
	return &MeasureWorker{
		cfg:      cfg,
		reqQ:     make(chan halcore.MeasureReq, cfg.InputQueueSize),
		sink:     sink,
		inflight: map[string]*pending{},
		again:    map[string]bool{},
		timer:    time.NewTimer(time.Hour),
	}
}

// Submit queues a request without blocking. Prio requests wait briefly for
// queue space before giving up.
func (w *MeasureWorker) Submit(req halcore.MeasureReq) bool {
	select {
	case w.reqQ <- req:
		return true
	default:
	}
	if !req.Prio {
		return false
	}
	select {
	case w.reqQ <- req:
		return true
	case <-time.After(5 * time.Millisecond):
		return false
	}
}

func (w *MeasureWorker) Start(ctx context.Context) {
	if !w.timer.Stop() {
		util.DrainTimer(w.timer)
	}
	go w.run(ctx)
}

func (w *MeasureWorker) run(ctx context.Context) {
	for {
		if next := w.earliest(); next.IsZero() {
			util.ResetTimer(w.timer, time.Hour)
		} else {
			util.ResetTimer(w.timer, time.Until(next))
		}
		select {
		case <-ctx.Done():
			return
		case req := <-w.reqQ:
			if _, busy := w.inflight[req.ID]; busy {
				if req.Prio {
					w.again[req.ID] = true
				}
				continue
			}
			w.trigger(ctx, &pending{id: req.ID, adaptor: req.Adaptor})
		case <-w.timer.C:
			w.collectDue(ctx, time.Now())
		}
	}
}

// trigger starts a cycle and queues the collect. A trigger error is
// reported at once.
func (w *MeasureWorker) trigger(ctx context.Context, p *pending) bool {
	tctx, cancel := context.WithTimeout(ctx, w.cfg.TriggerTimeout)
	after, err := p.adaptor.Trigger(tctx)
	cancel()
	if err != nil {
		w.emit(ctx, halcore.Result{ID: p.id, Err: err})
		return false
	}
	p.retries = 0
	p.due = time.Now().Add(after)
	w.inflight[p.id] = p
	w.queue = append(w.queue, p)
	return true
}

func (w *MeasureWorker) collectDue(ctx context.Context, now time.Time) {
	queue := w.queue
	w.queue = nil
	for _, p := range queue {
		if now.Before(p.due) {
			w.queue = append(w.queue, p)
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, w.cfg.CollectTimeout)
		s, err := p.adaptor.Collect(cctx)
		cancel()

		if errors.Is(err, halcore.ErrNotReady) && p.retries < w.cfg.MaxRetries {
			p.retries++
			p.due = now.Add(w.cfg.RetryBackoff)
			w.queue = append(w.queue, p)
			continue
		}
		delete(w.inflight, p.id)
		if err != nil {
			w.emit(ctx, halcore.Result{ID: p.id, Err: err})
		} else {
			w.emit(ctx, halcore.Result{ID: p.id, Sample: s})
		}
		if w.again[p.id] {
			delete(w.again, p.id)
			w.trigger(ctx, p)
		}
	}
}

// emit blocks until the service takes the result or ctx ends.
func (w *MeasureWorker) emit(ctx context.Context, r halcore.Result) {
	select {
	case w.sink <- r:
	case <-ctx.Done():
	}
}

func (w *MeasureWorker) earliest() time.Time {
	var min time.Time
	for _, p := range w.queue {
		if min.IsZero() || p.due.Before(min) {
			min = p.due
		}
	}
	return min
}
