package mailer

import (
	"context"
	"sync"
)

// MemoryQueue is a bounded in-process queue. Messages are lost on restart.
type MemoryQueue struct {
	ch     chan Message
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates a queue holding at most size messages
func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{
		ch:   make(chan Message, size),
		done: make(chan struct{}),
	}
}

// Enqueue adds msg, failing fast when the buffer is full
func (q *MemoryQueue) Enqueue(ctx context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Dequeue waits for the next message. Buffered messages are drained after Close.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Message, error) {
	select {
	case msg := <-q.ch:
		return msg, nil
	default:
	}

	select {
	case msg := <-q.ch:
		return msg, nil
	case <-q.done:
		select {
		case msg := <-q.ch:
			return msg, nil
		default:
			return Message{}, ErrQueueClosed
		}
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Len returns the number of buffered messages
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// Close stops accepting messages and wakes waiting consumers
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}
