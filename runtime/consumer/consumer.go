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

// Package consumer drives the single goroutine that pulls batches from a
// queue.Queue and hands them to a destination.Destination, implementing
// the three mode loops (Trigger/Loop/Manual) and the
// Initializing/Running/Draining/Closed state machine.
package consumer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	adst "github.com/flowlog/core/apis/destination"
	"github.com/flowlog/core/apis/destination/policy"
	awriter "github.com/flowlog/core/apis/writer"
	"github.com/flowlog/core/runtime/diag"
	"github.com/flowlog/core/runtime/metrics"
	"github.com/flowlog/core/runtime/queue"
)

// State is the consumer's lifecycle state. Transitions are monotonic:
// Initializing -> Running -> Draining -> Closed.
type State int32

const (
	Initializing State = iota
	Running
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// manualStopPoll is the internal tick MANUAL mode uses to notice a Stop
// request while otherwise waiting for an external Trigger.
const manualStopPoll = 50 * time.Millisecond

// minLoopTick is the floor applied to Loop mode's tick period (its
// FlushInterval) so a zero interval cannot turn into a busy loop.
const minLoopTick = time.Millisecond

// Config configures a Consumer.
type Config struct {
	Mode          awriter.Mode
	BatchSize     int
	FlushInterval time.Duration
	Tick          time.Duration
	Retry         policy.Retry
}

// Consumer owns the single goroutine that drains q and writes batches to
// dest. Construct with New and start with Run in its own goroutine.
type Consumer struct {
	q      *queue.Queue
	dest   adst.Destination
	cfg    Config
	log    diag.Logger
	counts *metrics.Counters

	state    atomic.Int32
	triggerC chan struct{}
	doneC    chan struct{}
	once     sync.Once
}

// New constructs a Consumer in the Initializing state.
func New(q *queue.Queue, dest adst.Destination, cfg Config, counts *metrics.Counters, log diag.Logger) *Consumer {
	if cfg.Tick <= 0 {
		cfg.Tick = minLoopTick
	}
	if log == nil {
		log = diag.Default()
	}
	return &Consumer{
		q:        q,
		dest:     dest,
		cfg:      cfg,
		log:      log,
		counts:   counts,
		triggerC: make(chan struct{}, 1),
		doneC:    make(chan struct{}),
	}
}

// State returns the consumer's current lifecycle state.
func (c *Consumer) State() State { return State(c.state.Load()) }

func (c *Consumer) transition(to State) {
	from := State(c.state.Swap(int32(to)))
	if from > to {
		panic("consumer: non-monotonic state transition " + from.String() + " -> " + to.String())
	}
}

// Trigger wakes the consumer if it is running in Manual mode. It is a
// no-op for other modes.
func (c *Consumer) Trigger() {
	if c.cfg.Mode != awriter.Manual {
		return
	}
	select {
	case c.triggerC <- struct{}{}:
	default:
	}
}

// Done returns a channel closed once Run has returned.
func (c *Consumer) Done() <-chan struct{} { return c.doneC }

// Run drives the consumer's mode loop until the queue is stopped. It
// must be called exactly once, typically from its own goroutine.
func (c *Consumer) Run(ctx context.Context) {
	defer close(c.doneC)
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("consumer: recovered from panic, closing", "panic", r)
			c.q.Stop() // reject further Puts: nothing would consume them
		}
		c.transition(Draining)
		c.drainAndClose(ctx)
		c.transition(Closed)
	}()

	c.transition(Running)

	switch c.cfg.Mode {
	case awriter.Trigger:
		c.runTrigger(ctx)
	case awriter.Loop:
		c.runLoop(ctx)
	case awriter.Manual:
		c.runManual(ctx)
	default:
		c.runTrigger(ctx)
	}
}

// runTrigger implements spec's TRIGGER loop: block on the queue with a
// flush-interval timeout, drain opportunistically on each wakeup, and
// flush once the accumulated batch reaches batchSize or its oldest line
// has aged past flushInterval. A zero flushInterval disables the
// age-based flush (no interval to measure against): lines below
// batchSize then wait for more lines or for Stop. batchSize floors at 1.
func (c *Consumer) runTrigger(ctx context.Context) {
	batchSize := c.batchSize()
	interval := c.cfg.FlushInterval

	var batch [][]byte
	var deadline time.Time
	if interval > 0 {
		deadline = time.Now().Add(interval)
	}

	for {
		waitCtx := ctx
		cancel := func() {}
		if interval > 0 {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			waitCtx, cancel = context.WithTimeout(ctx, remaining)
		}

		line, stopped := c.q.Get(waitCtx)
		cancel()

		if stopped {
			batch = append(batch, c.q.Drain()...)
			c.flushChunks(ctx, batch, batchSize)
			return
		}

		if line == nil {
			if ctx.Err() != nil {
				c.flushChunks(ctx, batch, batchSize)
				return
			}
			// flush-interval elapsed with no new line arriving.
			c.flushChunks(ctx, batch, batchSize)
			batch = nil
			if interval > 0 {
				deadline = time.Now().Add(interval)
			}
			continue
		}

		batch = append(batch, line)
		batch = append(batch, c.q.Drain()...)

		full := len(batch) >= batchSize
		aged := interval > 0 && !time.Now().Before(deadline)
		if full || aged {
			c.flushChunks(ctx, batch, batchSize)
			batch = nil
			if interval > 0 {
				deadline = time.Now().Add(interval)
			}
		}
	}
}

// batchSize returns the configured batch size, floored at 1 so the
// trigger loop always makes forward progress on an unconfigured
// (zero-value) Config.
func (c *Consumer) batchSize() int {
	if c.cfg.BatchSize > 0 {
		return c.cfg.BatchSize
	}
	return 1
}

// flushChunks flushes batch to the destination in chunks of at most
// batchSize lines each, preserving order across chunks.
func (c *Consumer) flushChunks(ctx context.Context, batch [][]byte, batchSize int) {
	if len(batch) == 0 {
		return
	}
	if batchSize <= 0 {
		c.flush(ctx, batch)
		return
	}
	for len(batch) > 0 {
		n := batchSize
		if n > len(batch) {
			n = len(batch)
		}
		c.flush(ctx, batch[:n])
		batch = batch[n:]
	}
}

func (c *Consumer) runLoop(ctx context.Context) {
	period := c.cfg.FlushInterval
	if period < minLoopTick {
		period = minLoopTick
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			batch := c.q.Drain()
			if len(batch) > 0 {
				c.flush(ctx, batch)
			}
			if c.q.IsStopped() && c.q.Len() == 0 {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) runManual(ctx context.Context) {
	ticker := time.NewTicker(manualStopPoll)
	defer ticker.Stop()

	for {
		select {
		case <-c.triggerC:
			batch := c.q.Drain()
			if len(batch) > 0 {
				c.flush(ctx, batch)
			}
			if c.q.IsStopped() && c.q.Len() == 0 {
				return
			}
		case <-ticker.C:
			if c.q.IsStopped() {
				batch := c.q.Drain()
				if len(batch) > 0 {
					c.flush(ctx, batch)
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// drainAndClose flushes any remaining lines left in the queue, then
// closes the destination exactly once.
func (c *Consumer) drainAndClose(ctx context.Context) {
	if batch := c.q.Drain(); len(batch) > 0 {
		c.flush(ctx, batch)
	}
	if err := c.dest.Close(ctx); err != nil {
		c.log.Errorw("consumer: destination close failed", "destination", c.dest.Name(), "error", err)
	}
}

// flush writes batch to the destination, retrying per policy.Retry on
// failure, and accounts the outcome in counts. A batch that still fails
// after retries is logged once and counted as dropped.
func (c *Consumer) flush(ctx context.Context, batch [][]byte) {
	if len(batch) == 0 {
		return
	}

	attempts := 1
	if c.cfg.Retry.Enable && c.cfg.Retry.MaxRetries > 0 {
		attempts += c.cfg.Retry.MaxRetries
	}

	delay := c.cfg.Retry.Initial
	var err error
attempts_loop:
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if delay <= 0 {
				delay = 10 * time.Millisecond
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				break attempts_loop
			}
			if c.cfg.Retry.Multiplier > 1 {
				delay = time.Duration(float64(delay) * c.cfg.Retry.Multiplier)
			}
			if c.cfg.Retry.Max > 0 && delay > c.cfg.Retry.Max {
				delay = c.cfg.Retry.Max
			}
		}
		err = c.dest.WriteBatch(ctx, batch)
		if err == nil {
			break
		}
	}

	c.counts.AddFlush()
	if err != nil {
		c.counts.AddErrors()
		c.counts.AddDropped(uint64(len(batch)))
		c.log.Warnw("consumer: batch dropped after exhausting retries",
			"destination", c.dest.Name(), "batch_size", len(batch), "error", err)
		return
	}
	c.counts.AddWritten(uint64(len(batch)))
}
