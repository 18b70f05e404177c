package worker

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSameKeyRunsInOrder(t *testing.T) {
	pool := NewPool(context.Background(), 4, nil)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 20; i++ {
		i := i
		if err := pool.Submit(7, func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	pool.Close()

	if len(got) != 20 {
		t.Fatalf("expected 20 jobs, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("jobs out of order: %v", got)
		}
	}
}

func TestSlowKeyDoesNotBlockOthers(t *testing.T) {
	pool := NewPool(context.Background(), 2, nil)
	release := make(chan struct{})
	done := make(chan struct{})

	_ = pool.Submit(1, func(context.Context) { <-release })
	_ = pool.Submit(2, func(context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job for another key was blocked")
	}
	close(release)
	pool.Close()
}

func TestPanicIsContained(t *testing.T) {
	pool := NewPool(context.Background(), 1, nil)
	ran := make(chan struct{}, 1)

	_ = pool.Submit(1, func(context.Context) { panic("boom") })
	_ = pool.Submit(1, func(context.Context) { ran <- struct{}{} })
	pool.Close()

	select {
	case <-ran:
	default:
		t.Fatalf("job after a panic did not run")
	}
}

func TestSubmitAfterClose(t *testing.T) {
	pool := NewPool(context.Background(), 1, nil)
	pool.Close()
	if err := pool.Submit(1, func(context.Context) {}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
