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

// Package metrics holds the writer's monotonic counters.
//
// Enqueued/Dropped are incremented from the producer's Send path via
// atomic operations; Written/Errors/FlushCount are incremented only by the
// single consumer goroutine. Snapshot is the only way to read a consistent
// view across all five.
package metrics

import "sync/atomic"

// Counters holds the writer's live, mutable counters. The zero value is
// ready to use.
type Counters struct {
	enqueued   atomic.Uint64
	written    atomic.Uint64
	dropped    atomic.Uint64
	errors     atomic.Uint64
	flushCount atomic.Uint64
}

// Snapshot is an immutable, point-in-time view of a Counters.
type Snapshot struct {
	Enqueued   uint64
	Written    uint64
	Dropped    uint64
	Errors     uint64
	FlushCount uint64
}

// Pending returns enqueued - written - dropped, the number of lines
// accepted by the queue but not yet accounted for as written or dropped.
func (s Snapshot) Pending() uint64 {
	return s.Enqueued - s.Written - s.Dropped
}

// AddEnqueued increments the enqueued counter by one. Called from the
// producer's Send path.
func (c *Counters) AddEnqueued() { c.enqueued.Add(1) }

// AddDropped increments the dropped counter by n. Called from the
// producer's Send path (DropNewest/DropOldest/Warn) or from the consumer
// when a flushed batch is ultimately discarded after exhausting retries.
func (c *Counters) AddDropped(n uint64) { c.dropped.Add(n) }

// AddWritten increments the written counter by n. Called only by the
// consumer goroutine after a successful WriteBatch.
func (c *Counters) AddWritten(n uint64) { c.written.Add(n) }

// AddErrors increments the errors counter by one. Called only by the
// consumer goroutine after a failed WriteBatch/Flush.
func (c *Counters) AddErrors() { c.errors.Add(1) }

// AddFlush increments the flush-count counter by one. Called only by the
// consumer goroutine after a batch is handed to the destination,
// regardless of success.
func (c *Counters) AddFlush() { c.flushCount.Add(1) }

// Snapshot returns a consistent-enough point-in-time view of all counters.
// Individual fields are read with independent atomic loads, so under
// concurrent writers Pending() may transiently read as non-zero even
// across a quiescent point; this mirrors the "relaxed-consistency
// snapshot" guarantee the writer documents for Metrics().
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Enqueued:   c.enqueued.Load(),
		Written:    c.written.Load(),
		Dropped:    c.dropped.Load(),
		Errors:     c.errors.Load(),
		FlushCount: c.flushCount.Load(),
	}
}
