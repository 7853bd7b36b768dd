package executor

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gcsync/internal/entry"
)

type fakeSink struct {
	mu         sync.Mutex
	putCalls   []entry.RelativeKey
	delCalls   []entry.RelativeKey
	putErr     error
	delErr     error
	putDelay   time.Duration
	inFlight   int32
	maxInFlight int32
}

func (f *fakeSink) Put(ctx context.Context, key entry.RelativeKey, src entry.Descriptor, body entry.OpenFunc) (entry.Descriptor, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		old := atomic.LoadInt32(&f.maxInFlight)
		if n <= old || atomic.CompareAndSwapInt32(&f.maxInFlight, old, n) {
			break
		}
	}
	defer atomic.AddInt32(&f.inFlight, -1)

	if f.putDelay > 0 {
		select {
		case <-time.After(f.putDelay):
		case <-ctx.Done():
			return entry.Descriptor{}, ctx.Err()
		}
	}

	f.mu.Lock()
	f.putCalls = append(f.putCalls, key)
	f.mu.Unlock()

	if f.putErr != nil {
		return entry.Descriptor{}, f.putErr
	}
	if body != nil {
		r, err := body(ctx)
		if err == nil {
			io.ReadAll(r)
			r.Close()
		}
	}
	return entry.Descriptor{Key: key, Size: src.Size}, nil
}

func (f *fakeSink) Delete(ctx context.Context, key entry.RelativeKey) error {
	f.mu.Lock()
	f.delCalls = append(f.delCalls, key)
	f.mu.Unlock()
	return f.delErr
}

func (f *fakeSink) Lookup(ctx context.Context, key entry.RelativeKey) (entry.Descriptor, bool, error) {
	return entry.Descriptor{}, false, nil
}

func (f *fakeSink) Exists(ctx context.Context, key entry.RelativeKey) (bool, error) {
	return false, nil
}

func actionsChan(actions ...entry.SyncAction) <-chan entry.SyncAction {
	ch := make(chan entry.SyncAction, len(actions))
	for _, a := range actions {
		ch <- a
	}
	close(ch)
	return ch
}

func key(s string) entry.RelativeKey {
	k, _ := entry.NewRelativeKey(s)
	return k
}

func collect(out <-chan entry.Outcome) []entry.Outcome {
	var outcomes []entry.Outcome
	for o := range out {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func TestSkipIsNoopOutcome(t *testing.T) {
	sink := &fakeSink{}
	actions := actionsChan(entry.SyncAction{Kind: entry.ActionSkip, Key: key("a.txt")})

	out := Run(context.Background(), actions, sink, entry.RunConfig{MaxConcurrency: 4})
	outcomes := collect(out)

	if len(outcomes) != 1 || outcomes[0].Status != entry.OutcomeOK {
		t.Fatalf("got %v", outcomes)
	}
	if len(sink.putCalls) != 0 || len(sink.delCalls) != 0 {
		t.Fatal("skip must not touch the sink")
	}
}

func TestUpsertCallsPutAndReadsBody(t *testing.T) {
	sink := &fakeSink{}
	src := entry.Descriptor{Size: 2, Open: func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("hi")), nil
	}}
	actions := actionsChan(entry.SyncAction{Kind: entry.ActionUpsert, Key: key("a.txt"), Src: src})

	out := Run(context.Background(), actions, sink, entry.RunConfig{MaxConcurrency: 4})
	outcomes := collect(out)

	if len(outcomes) != 1 || outcomes[0].Status != entry.OutcomeOK {
		t.Fatalf("got %v", outcomes)
	}
	if len(sink.putCalls) != 1 || sink.putCalls[0] != key("a.txt") {
		t.Fatalf("got put calls %v", sink.putCalls)
	}
}

func TestDeleteCallsDelete(t *testing.T) {
	sink := &fakeSink{}
	actions := actionsChan(entry.SyncAction{Kind: entry.ActionDelete, Key: key("a.txt")})

	out := Run(context.Background(), actions, sink, entry.RunConfig{MaxConcurrency: 4})
	outcomes := collect(out)

	if len(outcomes) != 1 || outcomes[0].Status != entry.OutcomeOK {
		t.Fatalf("got %v", outcomes)
	}
	if len(sink.delCalls) != 1 {
		t.Fatalf("got delete calls %v", sink.delCalls)
	}
}

func TestPutErrorProducesErrOutcomeWithoutFailFast(t *testing.T) {
	sink := &fakeSink{putErr: errors.New("boom")}
	actions := actionsChan(
		entry.SyncAction{Kind: entry.ActionUpsert, Key: key("a.txt"), Src: entry.Descriptor{}},
		entry.SyncAction{Kind: entry.ActionDelete, Key: key("b.txt")},
	)

	out := Run(context.Background(), actions, sink, entry.RunConfig{MaxConcurrency: 1})
	outcomes := collect(out)

	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want both actions driven", len(outcomes))
	}
}

func TestFailFastStopsSchedulingAfterFirstError(t *testing.T) {
	sink := &fakeSink{putErr: errors.New("boom"), putDelay: 10 * time.Millisecond}
	var actions []entry.SyncAction
	for i := 0; i < 50; i++ {
		actions = append(actions, entry.SyncAction{Kind: entry.ActionUpsert, Key: key("a.txt"), Src: entry.Descriptor{}})
	}

	out := Run(context.Background(), actionsChan(actions...), sink, entry.RunConfig{MaxConcurrency: 2, FailFast: true})
	outcomes := collect(out)

	if len(outcomes) >= len(actions) {
		t.Fatalf("fail-fast should have aborted before driving all %d actions, got %d", len(actions), len(outcomes))
	}
	foundErr := false
	for _, o := range outcomes {
		if o.Status == entry.OutcomeErr {
			foundErr = true
		}
	}
	if !foundErr {
		t.Fatal("expected at least one error outcome")
	}
}

func TestConcurrencyIsBoundedByMaxConcurrency(t *testing.T) {
	sink := &fakeSink{putDelay: 20 * time.Millisecond}
	var actions []entry.SyncAction
	for i := 0; i < 12; i++ {
		actions = append(actions, entry.SyncAction{Kind: entry.ActionUpsert, Key: key("a.txt"), Src: entry.Descriptor{}})
	}

	out := Run(context.Background(), actionsChan(actions...), sink, entry.RunConfig{MaxConcurrency: 3})
	collect(out)

	if sink.maxInFlight > 3 {
		t.Fatalf("observed %d concurrent Put calls, want at most 3", sink.maxInFlight)
	}
	if sink.maxInFlight < 2 {
		t.Fatalf("observed only %d concurrent Put calls, pool looks serialized", sink.maxInFlight)
	}
}

func TestUnboundedWhenMaxConcurrencyNonPositive(t *testing.T) {
	sink := &fakeSink{}
	actions := actionsChan(entry.SyncAction{Kind: entry.ActionDelete, Key: key("a.txt")})

	out := Run(context.Background(), actions, sink, entry.RunConfig{MaxConcurrency: 0})
	outcomes := collect(out)

	if len(outcomes) != 1 {
		t.Fatalf("got %v", outcomes)
	}
}
