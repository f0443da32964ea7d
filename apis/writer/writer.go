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

// Package writer defines the contract for the async log writer facade:
// the composition of a queue, a consumer and a destination behind a single
// handle that producers call Send on.
package writer

import (
	"context"
	"time"

	"github.com/flowlog/core/runtime/metrics"
)

// Mode selects the consumer's operating loop.
type Mode uint8

const (
	// Trigger blocks on the queue and wakes on each message, draining
	// opportunistically and flushing on batch-size or flush-interval.
	Trigger Mode = iota
	// Loop wakes on a periodic timer and drains whatever is available on
	// each tick.
	Loop
	// Manual waits for an explicit Trigger() call (or shutdown) before
	// draining and flushing.
	Manual
)

// String returns the canonical lowercase name of the mode.
func (m Mode) String() string {
	switch m {
	case Trigger:
		return "trigger"
	case Loop:
		return "loop"
	case Manual:
		return "manual"
	default:
		return "unknown"
	}
}

// Status is a normalized, tri-state summary of a Writer's Health.
type Status string

const (
	// StatusHealthy means the consumer is keeping up with the queue.
	StatusHealthy Status = "healthy"
	// StatusDegraded means the writer is draining (shutting down) or the
	// queue still holds lines after Stop was called.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy means the consumer has reached Closed: no further
	// lines will ever be written.
	StatusUnhealthy Status = "unhealthy"
)

// Health is a point-in-time report of a Writer's internal pressure and
// consumer liveness: the two domain signals the writer can speak to
// directly, as opposed to a generic, unstructured health check.
type Health struct {
	// Name identifies the writer (its Config.Name).
	Name string
	// Status summarizes the fields below as a single tri-state value.
	Status Status
	// ObservedAt is when this Health was computed.
	ObservedAt time.Time
	// QueuePending is the number of lines currently sitting in the queue,
	// accepted but not yet written or dropped.
	QueuePending int
	// QueueStopped reports whether Stop/Close has been called.
	QueueStopped bool
	// ConsumerState is the consumer's lifecycle state: "initializing",
	// "running", "draining" or "closed".
	ConsumerState string
}

// Writer is the facade producers and operators interact with.
//
// Implementations must be safe for concurrent Send calls from any number of
// goroutines. Trigger/Stop/Close/Metrics/Health may be called from any
// goroutine as well, but there is exactly one internal consumer goroutine
// driving the destination.
type Writer interface {
	// Send forwards line to the queue using the writer's configured
	// backpressure policy. It returns true if the line was accepted
	// (enqueued), false if it was dropped per policy. After Stop/Close,
	// Send returns false and line is rejected as ProducerClosed.
	Send(line []byte) bool

	// Trigger asks the consumer to drain and flush now. It is a no-op
	// unless the writer's Mode is Manual.
	Trigger()

	// Stop initiates graceful shutdown: Send starts rejecting immediately,
	// the consumer finishes draining and flushing, then closes the
	// destination. Stop blocks until the consumer has finished or ctx is
	// done, whichever comes first; ctx.Err() is returned on timeout. Stop
	// is idempotent.
	Stop(ctx context.Context) error

	// Close is equivalent to Stop(context.Background()) followed by
	// discarding any timeout signal; it always waits for the consumer to
	// finish. Close is idempotent.
	Close() error

	// Metrics returns a point-in-time snapshot of the writer's counters.
	Metrics() metrics.Snapshot

	// Health reports whether the writer is keeping up: queue pressure and
	// consumer liveness summarized into a single Health value.
	Health(ctx context.Context) Health
}
