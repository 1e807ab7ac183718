package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sc16is752-go/services/hal/internal/halcore"
)

type fakeAdaptor struct {
	mu          sync.Mutex
	id          string
	delay       time.Duration
	collectErrs int // number of consecutive ErrNotReady before success
	failErr     error
	triggers    int
}

func (f *fakeAdaptor) ID() string                      { return f.id }
func (f *fakeAdaptor) Capabilities() []halcore.CapInfo { return nil }
func (f *fakeAdaptor) Trigger(ctx context.Context) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers++
	if f.failErr != nil {
		return 0, f.failErr
	}
	return f.delay, nil
}
func (f *fakeAdaptor) Collect(ctx context.Context) (halcore.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collectErrs > 0 {
		f.collectErrs--
		return nil, halcore.ErrNotReady
	}
	if f.failErr != nil {
		return nil, f.failErr
	}
	return halcore.Sample{{Kind: "uart", Payload: 3, TsMs: time.Now().UnixMilli()}}, nil
}
func (f *fakeAdaptor) Control(string, string, any) (any, error) { return nil, halcore.ErrUnsupported }

func TestMeasureWorkerSuccessWithRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 1)
	w := New(halcore.WorkerConfig{
		TriggerTimeout: 5 * time.Millisecond,
		CollectTimeout: 10 * time.Millisecond,
		RetryBackoff:   2 * time.Millisecond,
		MaxRetries:     5,
		InputQueueSize: 4,
	}, results)
	w.Start(ctx)

	ad := &fakeAdaptor{id: "dev1", delay: 1 * time.Millisecond, collectErrs: 2}
	if !w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad}) {
		t.Fatal("submit failed")
	}

	select {
	case r := <-results:
		if r.Err != nil || len(r.Sample) == 0 {
			t.Fatalf("unexpected result: %+v", r)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for result")
	}
}

func TestMeasureWorkerRetriesExhausted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 1)
	w := New(halcore.WorkerConfig{RetryBackoff: time.Millisecond, MaxRetries: 2}, results)
	w.Start(ctx)

	ad := &fakeAdaptor{id: "slow", collectErrs: 10}
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})

	select {
	case r := <-results:
		if !errors.Is(r.Err, halcore.ErrNotReady) {
			t.Fatalf("expected ErrNotReady after retries, got %+v", r)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for result")
	}
}

func TestMeasureWorkerTriggerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 2)
	w := New(halcore.WorkerConfig{}, results)
	w.Start(ctx)

	ad := &fakeAdaptor{id: "devX", delay: 1 * time.Millisecond, failErr: errors.New("boom")}
	if !w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad}) {
		t.Fatal("submit failed")
	}
	if !w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad, Prio: true}) {
		t.Fatal("prio submit failed")
	}
	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if r.Err == nil || r.ID != "devX" {
				t.Fatalf("expected error result, got %+v", r)
			}
		case <-time.After(200 * time.Millisecond):
			t.Fatal("timeout waiting for error result")
		}
	}
}

func TestMeasureWorkerPrioWhileInflight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 4)
	w := New(halcore.WorkerConfig{}, results)
	w.Start(ctx)

	ad := &fakeAdaptor{id: "d", delay: 20 * time.Millisecond}
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})             // dropped: in flight
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad, Prio: true}) // re-run after collect

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if r.Err != nil {
				t.Fatalf("unexpected error %v", r.Err)
			}
		case <-time.After(300 * time.Millisecond):
			t.Fatalf("timeout waiting for result %d", i)
		}
	}
	ad.mu.Lock()
	n := ad.triggers
	ad.mu.Unlock()
	if n != 2 {
		t.Fatalf("expected 2 triggers, got %d", n)
	}
}
