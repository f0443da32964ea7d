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

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector adapts a Counters into a prometheus.Collector, so a writer's
// metrics can be scraped alongside the rest of a service's metrics
// without the caller having to poll Snapshot() on a timer.
type Collector struct {
	counters *Counters
	name     string

	enqueued   *prometheus.Desc
	written    *prometheus.Desc
	dropped    *prometheus.Desc
	errors     *prometheus.Desc
	pending    *prometheus.Desc
	flushCount *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a prometheus.Collector for counters, labeling all
// exported series with the writer's name.
func NewCollector(name string, counters *Counters) *Collector {
	constLabels := prometheus.Labels{"writer": name}
	return &Collector{
		counters: counters,
		name:     name,
		enqueued: prometheus.NewDesc(
			"flowlog_writer_enqueued_total",
			"Total number of lines accepted by the writer's queue.",
			nil, constLabels),
		written: prometheus.NewDesc(
			"flowlog_writer_written_total",
			"Total number of lines successfully flushed to the destination.",
			nil, constLabels),
		dropped: prometheus.NewDesc(
			"flowlog_writer_dropped_total",
			"Total number of lines dropped under backpressure or after exhausting retries.",
			nil, constLabels),
		errors: prometheus.NewDesc(
			"flowlog_writer_errors_total",
			"Total number of failed destination writes.",
			nil, constLabels),
		pending: prometheus.NewDesc(
			"flowlog_writer_pending",
			"Lines accepted but not yet written or dropped.",
			nil, constLabels),
		flushCount: prometheus.NewDesc(
			"flowlog_writer_flush_total",
			"Total number of flush operations performed.",
			nil, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.enqueued
	ch <- c.written
	ch <- c.dropped
	ch <- c.errors
	ch <- c.pending
	ch <- c.flushCount
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.counters.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.enqueued, prometheus.CounterValue, float64(snap.Enqueued))
	ch <- prometheus.MustNewConstMetric(c.written, prometheus.CounterValue, float64(snap.Written))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(snap.Dropped))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(snap.Errors))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(snap.Pending()))
	ch <- prometheus.MustNewConstMetric(c.flushCount, prometheus.CounterValue, float64(snap.FlushCount))
}
