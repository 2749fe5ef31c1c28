package workspace

import (
	"sync"
	"time"
)

const (
	DefaultBatchSize    = 100
	DefaultBatchTimeout = 100 * time.Millisecond
)

// EventBatcher accumulates FileEvents into a bounded buffer and emits
// batches either when the buffer fills or a flush timeout elapses
// since the last emission. Empty batches are never emitted.
type EventBatcher struct {
	batchSize int
	timeout   time.Duration
	out       chan<- []FileEvent

	mu       sync.Mutex
	pending  []FileEvent
	lastEmit time.Time

	stop chan struct{}
	once sync.Once
}

func NewEventBatcher(batchSize int, timeout time.Duration, out chan<- []FileEvent) *EventBatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if timeout <= 0 {
		timeout = DefaultBatchTimeout
	}
	b := &EventBatcher{
		batchSize: batchSize,
		timeout:   timeout,
		out:       out,
		lastEmit:  time.Now(),
		stop:      make(chan struct{}),
	}
	go b.tickLoop()
	return b
}

// Add appends an event and emits a batch immediately if the buffer is
// now full.
func (b *EventBatcher) Add(ev FileEvent) {
	b.mu.Lock()
	b.pending = append(b.pending, ev)
	shouldEmit := len(b.pending) >= b.batchSize
	var batch []FileEvent
	if shouldEmit {
		batch = b.drainLocked()
	}
	b.mu.Unlock()
	if batch != nil {
		b.out <- batch
	}
}

// tickLoop force-flushes a stale non-empty batch once the timeout has
// elapsed since the last emission.
func (b *EventBatcher) tickLoop() {
	ticker := time.NewTicker(b.timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.mu.Lock()
			var batch []FileEvent
			if len(b.pending) > 0 && time.Since(b.lastEmit) >= b.timeout {
				batch = b.drainLocked()
			}
			b.mu.Unlock()
			if batch != nil {
				b.out <- batch
			}
		}
	}
}

// drainLocked must be called with mu held. It returns the current
// pending events and resets the buffer and lastEmit clock.
func (b *EventBatcher) drainLocked() []FileEvent {
	batch := b.pending
	b.pending = nil
	b.lastEmit = time.Now()
	return batch
}

func (b *EventBatcher) Close() {
	b.once.Do(func() { close(b.stop) })
}
