package serde

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolSubmitRunsJob(t *testing.T) {
	p := NewPool[int](2, 4)
	defer p.Close()

	got, err := p.Submit(context.Background(), func() (int, error) { return 42, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestPoolSubmitPropagatesError(t *testing.T) {
	p := NewPool[int](1, 1)
	defer p.Close()

	boom := errors.New("boom")
	_, err := p.Submit(context.Background(), func() (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestPoolSubmitConcurrent(t *testing.T) {
	p := NewPool[int](4, 8)
	defer p.Close()

	var sum int64
	const n = 50
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			_, err := p.Submit(context.Background(), func() (int, error) {
				atomic.AddInt64(&sum, int64(i))
				return i, nil
			})
			done <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-done; err != nil {
			t.Errorf("submit %d failed: %v", i, err)
		}
	}
	want := int64(n * (n - 1) / 2)
	if sum != want {
		t.Fatalf("sum = %d, want %d", sum, want)
	}
}

func TestPoolSubmitRespectsContextCancellation(t *testing.T) {
	// A pool with zero free capacity: one worker permanently blocked.
	p := NewPool[int](1, 0)
	defer p.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	go p.Submit(context.Background(), func() (int, error) {
		close(started)
		<-block
		return 0, nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Submit(ctx, func() (int, error) { return 1, nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	close(block)
}

func TestPoolCloseStopsWorkers(t *testing.T) {
	p := NewPool[int](2, 2)
	p.Close()

	// Submit after Close must not hang forever; either ErrPoolClosed or a
	// context error is acceptable depending on timing, but it must return.
	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		p.Submit(ctx, func() (int, error) { return 0, nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit after Close did not return")
	}
}
