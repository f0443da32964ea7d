/*
   Copyright 2025 The flowlog Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package queue is the bounded, single-consumer line queue sitting
// between producers and the consumer. Put is safe for any number of
// concurrent producer goroutines; Get/Drain/Len are meant to be called
// from a single consumer goroutine at a time.
package queue

import (
	"container/list"
	"context"
	"sync"

	"github.com/flowlog/core/apis/destination/policy"
	"github.com/flowlog/core/runtime/diag"
)

// Queue is a FIFO of opaque lines with one of four backpressure policies
// applied once Capacity is reached. Capacity <= 0 means unbounded.
type Queue struct {
	capacity int
	policy   policy.Backpressure
	log      diag.Logger

	mu     sync.Mutex
	items  *list.List
	notify chan struct{}
	closed bool
}

// New constructs a Queue with the given capacity (<=0 for unbounded) and
// backpressure policy, applied when Put is called against a full queue.
// The queue logs to diag.Default() until SetLogger is called.
func New(capacity int, bp policy.Backpressure) *Queue {
	return &Queue{
		capacity: capacity,
		policy:   bp,
		log:      diag.Default(),
		items:    list.New(),
		notify:   make(chan struct{}, 1),
	}
}

// SetLogger overrides the queue's diagnostics logger. Callers should set
// this, if at all, before any producer starts calling Put. A nil log is
// ignored.
func (q *Queue) SetLogger(log diag.Logger) {
	if log == nil {
		return
	}
	q.mu.Lock()
	q.log = log
	q.mu.Unlock()
}

// wake signals a blocked Get, coalescing multiple Puts into a single
// wakeup the way a buffered channel would.
func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Put enqueues line according to the queue's backpressure policy. It
// returns accepted=true if the line itself was admitted to the queue,
// false if it was dropped per policy. evicted reports whether admitting
// line required evicting the front-of-queue line (DropOldest only); the
// caller must account the evicted line as dropped separately from
// accepted/enqueued for line itself. Put is a no-op (accepted=false)
// after Stop.
func (q *Queue) Put(line []byte) (accepted, evicted bool) {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		return false, false
	}

	full := q.capacity > 0 && q.items.Len() >= q.capacity
	if !full {
		q.items.PushBack(line)
		q.mu.Unlock()
		q.wake()
		return true, false
	}

	switch q.policy {
	case policy.BackpressureDropNewest:
		q.mu.Unlock()
		return false, false

	case policy.BackpressureDropOldest:
		q.items.Remove(q.items.Front())
		q.items.PushBack(line)
		q.mu.Unlock()
		q.wake()
		return true, true

	case policy.BackpressureWarn:
		// Same admission outcome as DropNewest: the line is rejected, not
		// appended. The only difference is the diagnostic emitted here.
		log := q.log
		q.mu.Unlock()
		if log != nil {
			log.Warnw("queue: dropping line, queue full under WARN backpressure", "capacity", q.capacity)
		}
		return false, false

	case policy.BackpressureBlock:
		fallthrough
	default:
		// Block treats capacity as advisory: a plain Put against a full
		// Block queue appends the line anyway and never waits. Callers
		// that want to wait for room use PutBlocking instead.
		q.items.PushBack(line)
		q.mu.Unlock()
		q.wake()
		return true, false
	}
}

// PutBlocking enqueues line, waiting for room if the policy is Block and
// the queue is at capacity. It returns false if ctx is done before room
// becomes available, or if the queue is closed.
func (q *Queue) PutBlocking(ctx context.Context, line []byte) bool {
	if q.policy != policy.BackpressureBlock || q.capacity <= 0 {
		accepted, _ := q.Put(line)
		return accepted
	}

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return false
		}
		if q.items.Len() < q.capacity {
			q.items.PushBack(line)
			q.mu.Unlock()
			q.wake()
			return true
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
			// Something drained; loop and recheck capacity.
		case <-ctx.Done():
			return false
		}
	}
}

// Get blocks until a line is available, the queue is stopped, or ctx is
// done. stopped is true once the queue has been drained after Stop.
func (q *Queue) Get(ctx context.Context) (line []byte, stopped bool) {
	for {
		q.mu.Lock()
		if q.items.Len() > 0 {
			front := q.items.Front()
			q.items.Remove(front)
			q.mu.Unlock()
			q.wake() // room was made; let a waiting PutBlocking recheck
			return front.Value.([]byte), false
		}
		if q.closed {
			q.mu.Unlock()
			return nil, true
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Drain removes and returns every line currently queued, without
// blocking. It does not itself report the stopped state; callers check
// IsStopped separately.
func (q *Queue) Drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		return nil
	}
	out := make([][]byte, 0, q.items.Len())
	for e := q.items.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.([]byte))
	}
	q.items.Init()
	q.wake()
	return out
}

// Stop marks the queue as closed. Further Put calls are rejected; Get
// returns (nil, true) once all previously enqueued lines are drained.
// Stop is idempotent.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// IsStopped reports whether Stop has been called.
func (q *Queue) IsStopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of lines currently pending in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
