package workspace

import (
	"testing"
	"time"
)

func TestEventBatcherEmitsOnFullBuffer(t *testing.T) {
	out := make(chan []FileEvent, 4)
	b := NewEventBatcher(3, time.Hour, out)
	defer b.Close()

	b.Add(FileEvent{Path: "a"})
	b.Add(FileEvent{Path: "b"})
	select {
	case <-out:
		t.Fatal("should not emit before buffer is full")
	default:
	}
	b.Add(FileEvent{Path: "c"})

	select {
	case batch := <-out:
		if len(batch) != 3 {
			t.Fatalf("expected batch of 3, got %d", len(batch))
		}
	case <-time.After(time.Second):
		t.Fatal("expected a batch after buffer filled")
	}
}

func TestEventBatcherEmitsOnTimeout(t *testing.T) {
	out := make(chan []FileEvent, 4)
	b := NewEventBatcher(100, 20*time.Millisecond, out)
	defer b.Close()

	b.Add(FileEvent{Path: "a"})

	select {
	case batch := <-out:
		if len(batch) != 1 {
			t.Fatalf("expected batch of 1, got %d", len(batch))
		}
	case <-time.After(time.Second):
		t.Fatal("expected timeout flush")
	}
}

func TestEventBatcherNeverEmitsEmpty(t *testing.T) {
	out := make(chan []FileEvent, 4)
	b := NewEventBatcher(100, 10*time.Millisecond, out)
	defer b.Close()

	select {
	case batch := <-out:
		t.Fatalf("unexpected empty batch: %v", batch)
	case <-time.After(50 * time.Millisecond):
	}
}
