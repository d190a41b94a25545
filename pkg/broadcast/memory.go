package broadcast

import (
	"context"
	"sync"
)

type subscriber[T any] struct {
	ch     chan T
	done   chan struct{}
	closed bool
	mu     sync.Mutex
	parent *MemorySlot[T]
}

func (s *subscriber[T]) Receive() <-chan T {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	if s.parent != nil {
		s.parent.unsubscribe(s)
	}
	s.closeChannel()
	return nil
}

func (s *subscriber[T]) closeChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		close(s.done)
		s.closed = true
	}
}

// send delivers without blocking; a full buffer means the value is dropped
// for this subscriber.
func (s *subscriber[T]) send(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.ch <- value:
	default:
	}
}

// MemorySlot is the in-memory Broadcaster. It remembers the latest published
// value and replays it to every new subscriber, so a late consumer observes
// the current state without waiting for the next publish.
type MemorySlot[T any] struct {
	mu          sync.Mutex
	subscribers map[*subscriber[T]]struct{}
	latest      T
	hasLatest   bool
	bufferSize  int
	closed      bool
	cleanupWg   sync.WaitGroup
}

// NewMemorySlot creates an in-memory broadcaster whose subscribers buffer up
// to bufferSize values. A minimum buffer of 1 is enforced so the replayed
// latest value always fits.
func NewMemorySlot[T any](bufferSize int) *MemorySlot[T] {
	return &MemorySlot[T]{
		subscribers: make(map[*subscriber[T]]struct{}),
		bufferSize:  max(bufferSize, 1),
	}
}

// Subscribe registers a subscriber and immediately queues the latest value,
// if one has been published. The subscription is removed when ctx is
// cancelled. Subscribing to a closed slot yields an already-closed subscriber.
func (b *MemorySlot[T]) Subscribe(ctx context.Context) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber[T]{
		ch:     make(chan T, b.bufferSize),
		done:   make(chan struct{}),
		parent: b,
	}

	if b.closed {
		sub.closeChannel()
		return sub
	}

	b.subscribers[sub] = struct{}{}
	if b.hasLatest {
		sub.ch <- b.latest
	}

	if ctx.Done() != nil {
		b.cleanupWg.Add(1)
		go func() {
			defer b.cleanupWg.Done()
			select {
			case <-ctx.Done():
				_ = sub.Close()
			case <-sub.done:
			}
		}()
	}

	return sub
}

// Broadcast records value as the latest state and delivers it to all
// subscribers without blocking.
func (b *MemorySlot[T]) Broadcast(ctx context.Context, value T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	b.latest = value
	b.hasLatest = true

	for sub := range b.subscribers {
		sub.send(value)
	}
	return nil
}

// Latest returns the most recently published value and whether one exists.
func (b *MemorySlot[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.hasLatest
}

// Close shuts the slot down and closes all subscribers. Safe to call twice.
func (b *MemorySlot[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	for sub := range b.subscribers {
		sub.closeChannel()
	}
	clear(b.subscribers)
	b.mu.Unlock()

	b.cleanupWg.Wait()
	return nil
}

func (b *MemorySlot[T]) unsubscribe(sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, sub)
}

var _ Broadcaster[int] = (*MemorySlot[int])(nil)
