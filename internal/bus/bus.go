// SPDX-License-Identifier: MIT

/*
Package bus implements the single-producer multicast registry at the
heart of the capture pipeline. Each registered consumer owns a bounded
FIFO queue; Broadcast pushes an independent copy of every block into
every queue that was registered before the broadcast, in production
order.

A full queue blocks the broadcaster. That back-pressure is deliberate:
a slow consumer stalls the producer (and transitively every other
consumer) until it drains or unregisters. The bus itself never drops
blocks and never evicts a consumer.
*/
package bus

import "sync"

// DefaultCapacity is the per-queue block count used when no byte budget
// is configured. Channels are inherently bounded, so "unbounded" is
// realized as a generous fixed cap.
const DefaultCapacity = 1 << 16

// Queue is a bounded FIFO of sample blocks owned by one consumer.
type Queue struct {
	ch   chan []complex64
	done chan struct{}
	once sync.Once
}

// Pop blocks until a block is available. ok is false once the bus has
// been closed and the queue drained.
func (q *Queue) Pop() ([]complex64, bool) {
	block, ok := <-q.ch
	return block, ok
}

// C exposes the receive side for callers that need to select against
// other events (e.g. a client disconnect).
func (q *Queue) C() <-chan []complex64 {
	return q.ch
}

// Len returns the number of blocks currently buffered.
func (q *Queue) Len() int {
	return len(q.ch)
}

func (q *Queue) abandon() {
	q.once.Do(func() { close(q.done) })
}

// Bus fans blocks out to registered queues.
type Bus struct {
	mu       sync.Mutex
	queues   map[*Queue]struct{}
	capacity int
	closed   bool
}

// New creates a bus whose queues hold capacity blocks each; capacity
// <= 0 selects DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		queues:   make(map[*Queue]struct{}),
		capacity: capacity,
	}
}

// CapacityForBudget converts a byte budget to a block count for blocks
// of blockSamples I/Q samples (8 bytes each).
func CapacityForBudget(budgetBytes int64, blockSamples int) int {
	if budgetBytes <= 0 || blockSamples <= 0 {
		return 0
	}
	n := budgetBytes / int64(blockSamples*8)
	if n < 1 {
		return 1
	}
	return int(n)
}

// Register creates a fresh queue and adds it to the registry. A queue
// registered after Close is returned already closed.
func (b *Bus) Register() *Queue {
	q := &Queue{
		ch:   make(chan []complex64, b.capacity),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(q.ch)
		return q
	}
	b.queues[q] = struct{}{}
	return q
}

// Unregister removes the queue from the registry. Safe to call more
// than once. An in-flight Broadcast blocked on this queue is released.
func (b *Bus) Unregister(q *Queue) {
	b.mu.Lock()
	delete(b.queues, q)
	b.mu.Unlock()
	q.abandon()
}

// Broadcast delivers one copy of block to every registered queue. The
// registry is snapshotted under the lock; registrations or removals
// during the broadcast do not affect it. The push into a full queue
// blocks until the consumer drains or unregisters.
func (b *Bus) Broadcast(block []complex64) {
	b.mu.Lock()
	snapshot := make([]*Queue, 0, len(b.queues))
	for q := range b.queues {
		snapshot = append(snapshot, q)
	}
	b.mu.Unlock()

	for _, q := range snapshot {
		cp := make([]complex64, len(block))
		copy(cp, block)
		select {
		case q.ch <- cp:
		case <-q.done:
		}
	}
}

// Close closes every registered queue and marks the bus closed. Only
// the producer may call it, after its last Broadcast.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for q := range b.queues {
		q.abandon()
		close(q.ch)
		delete(b.queues, q)
	}
}
