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

// Package runtime wires the queue, consumer, and destination packages
// behind the apis/writer.Writer facade.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	adst "github.com/flowlog/core/apis/destination"
	"github.com/flowlog/core/apis/destination/policy"
	awriter "github.com/flowlog/core/apis/writer"
	"github.com/flowlog/core/runtime/consumer"
	rdest "github.com/flowlog/core/runtime/destination"
	"github.com/flowlog/core/runtime/diag"
	"github.com/flowlog/core/runtime/metrics"
	"github.com/flowlog/core/runtime/queue"
)

// Config is the external configuration surface for New.
type Config struct {
	Name string
	Path string

	Kind adst.Kind
	Mode awriter.Mode

	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	Tick          time.Duration

	Backpressure policy.Backpressure
	Rotation     *policy.Rotation
	Retry        policy.Retry

	// Logger overrides the internal diagnostics logger. Defaults to
	// diag.Default() when nil.
	Logger diag.Logger
}

func (c Config) toSpecification() adst.Specification {
	return adst.Specification{
		Name:         c.Name,
		Path:         c.Path,
		Kind:         c.Kind,
		Backpressure: c.Backpressure,
		Retry:        c.Retry,
		Batch: policy.Batch{
			MaxEntries: c.BatchSize,
			Interval:   c.FlushInterval,
		},
		Rotation: c.Rotation,
	}
}

// writer is the Writer implementation wiring a queue.Queue, a
// consumer.Consumer and a destination.Destination together.
type writer struct {
	name  string
	q     *queue.Queue
	c     *consumer.Consumer
	dest  adst.Destination
	count *metrics.Counters
	coll  *metrics.Collector

	stopOnce sync.Once
	stopErr  error
}

var _ awriter.Writer = (*writer)(nil)

// New constructs a Writer: it resolves cfg.Kind through
// runtime/destination's registry, builds the queue and consumer, and
// starts the consumer goroutine.
func New(ctx context.Context, cfg Config) (awriter.Writer, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("runtime: Config.Name is required")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("runtime: Config.Path is required")
	}

	spec := cfg.toSpecification()
	dest, err := rdest.Build(ctx, cfg.Kind.String(), "default", cfg.Name, spec)
	if err != nil {
		return nil, fmt.Errorf("runtime: building destination: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = diag.Default()
	}

	q := queue.New(cfg.QueueSize, cfg.Backpressure)
	q.SetLogger(logger)
	counts := &metrics.Counters{}

	c := consumer.New(q, dest, consumer.Config{
		Mode:          cfg.Mode,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		Tick:          cfg.Tick,
		Retry:         cfg.Retry,
	}, counts, logger)

	w := &writer{
		name:  cfg.Name,
		q:     q,
		c:     c,
		dest:  dest,
		count: counts,
		coll:  metrics.NewCollector(cfg.Name, counts),
	}

	go c.Run(context.Background())
	register(w)
	return w, nil
}

// Send enqueues line per the writer's configured backpressure policy. On
// acceptance it increments the enqueued counter; on policy rejection it
// increments dropped instead. Under DropOldest, the evicted line is
// separately counted as dropped alongside the newly accepted line's
// enqueued increment. Calls made after Stop never touch the counters:
// they are reported synchronously to the caller as ProducerClosed and
// were never admitted, so they fall outside the enqueued/written/dropped
// accounting.
func (w *writer) Send(line []byte) bool {
	if w.q.IsStopped() {
		return false
	}
	accepted, evicted := w.q.Put(line)
	if evicted {
		w.count.AddDropped(1)
	}
	if accepted {
		w.count.AddEnqueued()
	} else {
		w.count.AddDropped(1)
	}
	return accepted
}

// Trigger asks the consumer to drain and flush now (Manual mode only).
func (w *writer) Trigger() { w.c.Trigger() }

// Stop initiates graceful shutdown and waits for the consumer to finish
// draining and closing the destination, or for ctx to expire.
func (w *writer) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() {
		w.q.Stop()
		w.c.Trigger() // nudge Manual mode so it notices Stop promptly
		select {
		case <-w.c.Done():
		case <-ctx.Done():
			w.stopErr = ctx.Err()
		}
		unregister(w)
	})
	return w.stopErr
}

// Close is Stop(context.Background()), then waits for the consumer to
// finish even if an earlier Stop timed out; any timeout is discarded.
func (w *writer) Close() error {
	_ = w.Stop(context.Background())
	<-w.c.Done()
	return nil
}

// Metrics returns a point-in-time snapshot of the writer's counters.
func (w *writer) Metrics() metrics.Snapshot { return w.count.Snapshot() }

// Health reports queue pressure and consumer liveness directly: unhealthy
// once the consumer reaches Closed, degraded while draining or while lines
// remain queued after Stop, healthy otherwise.
func (w *writer) Health(ctx context.Context) awriter.Health {
	state := w.c.State()
	pending := w.q.Len()

	status := awriter.StatusHealthy
	switch {
	case state == consumer.Closed:
		status = awriter.StatusUnhealthy
	case state == consumer.Draining, pending > 0 && w.q.IsStopped():
		status = awriter.StatusDegraded
	}

	return awriter.Health{
		Name:          w.name,
		Status:        status,
		ObservedAt:    time.Now(),
		QueuePending:  pending,
		QueueStopped:  w.q.IsStopped(),
		ConsumerState: state.String(),
	}
}

// PrometheusCollector exposes the writer's counters as a
// prometheus.Collector for services that scrape metrics.
func (w *writer) PrometheusCollector() *metrics.Collector { return w.coll }
