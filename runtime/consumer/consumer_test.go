package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowlog/core/apis/destination/policy"
	awriter "github.com/flowlog/core/apis/writer"
	"github.com/flowlog/core/runtime/diag"
	"github.com/flowlog/core/runtime/metrics"
	"github.com/flowlog/core/runtime/queue"
)

type fakeDestination struct {
	mu      sync.Mutex
	batches [][][]byte
	closed  bool
	failN   int
}

func (f *fakeDestination) Name() string { return "fake" }

func (f *fakeDestination) WriteBatch(ctx context.Context, lines [][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return errors.New("boom")
	}
	cp := make([][]byte, len(lines))
	copy(cp, lines)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakeDestination) Flush(ctx context.Context) error { return nil }

func (f *fakeDestination) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeDestination) totalLines() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestConsumer_TriggerModeWritesEnqueuedLinesAndClosesOnStop(t *testing.T) {
	q := queue.New(0, policy.BackpressureBlock)
	dest := &fakeDestination{}
	counts := &metrics.Counters{}
	c := New(q, dest, Config{Mode: awriter.Trigger}, counts, diag.Nop())

	go c.Run(context.Background())

	mustPut(t, q, "a")
	mustPut(t, q, "b")
	q.Stop()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not finish")
	}

	require.Equal(t, 2, dest.totalLines())
	require.True(t, dest.closed)
	require.Equal(t, Closed, c.State())
	snap := counts.Snapshot()
	require.Equal(t, uint64(2), snap.Written)
}

func TestConsumer_ManualModeOnlyFlushesOnTrigger(t *testing.T) {
	q := queue.New(0, policy.BackpressureBlock)
	dest := &fakeDestination{}
	counts := &metrics.Counters{}
	c := New(q, dest, Config{Mode: awriter.Manual}, counts, diag.Nop())

	go c.Run(context.Background())

	mustPut(t, q, "a")
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, dest.totalLines(), "manual mode must not flush before Trigger")

	c.Trigger()
	require.Eventually(t, func() bool { return dest.totalLines() == 1 }, time.Second, time.Millisecond)

	q.Stop()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not finish")
	}
}

func TestConsumer_LoopModeDrainsOnTick(t *testing.T) {
	q := queue.New(0, policy.BackpressureBlock)
	dest := &fakeDestination{}
	counts := &metrics.Counters{}
	c := New(q, dest, Config{Mode: awriter.Loop, Tick: 5 * time.Millisecond}, counts, diag.Nop())

	go c.Run(context.Background())

	mustPut(t, q, "a")
	require.Eventually(t, func() bool { return dest.totalLines() == 1 }, time.Second, time.Millisecond)

	q.Stop()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not finish")
	}
}

func TestConsumer_RetryEventuallyWritesThenCountsNoDrop(t *testing.T) {
	q := queue.New(0, policy.BackpressureBlock)
	dest := &fakeDestination{failN: 2}
	counts := &metrics.Counters{}
	c := New(q, dest, Config{
		Mode:  awriter.Trigger,
		Retry: policy.Retry{Enable: true, MaxRetries: 3, Initial: time.Millisecond},
	}, counts, diag.Nop())

	go c.Run(context.Background())

	mustPut(t, q, "a")
	q.Stop()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not finish")
	}

	snap := counts.Snapshot()
	require.Equal(t, uint64(1), snap.Written)
	require.Equal(t, uint64(0), snap.Dropped)
}

func TestConsumer_ExhaustedRetriesDropsBatch(t *testing.T) {
	q := queue.New(0, policy.BackpressureBlock)
	dest := &fakeDestination{failN: 100}
	counts := &metrics.Counters{}
	c := New(q, dest, Config{
		Mode:  awriter.Trigger,
		Retry: policy.Retry{Enable: true, MaxRetries: 2, Initial: time.Millisecond},
	}, counts, diag.Nop())

	go c.Run(context.Background())

	mustPut(t, q, "a")
	q.Stop()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not finish")
	}

	snap := counts.Snapshot()
	require.Equal(t, uint64(0), snap.Written)
	require.Equal(t, uint64(1), snap.Dropped)
	require.Equal(t, uint64(1), snap.Errors)
}

func mustPut(t *testing.T, q *queue.Queue, line string) {
	t.Helper()
	accepted, _ := q.Put([]byte(line))
	require.True(t, accepted)
}

func TestConsumer_TriggerFlushesAssoonAsBatchSizeReached(t *testing.T) {
	q := queue.New(0, policy.BackpressureBlock)
	dest := &fakeDestination{}
	counts := &metrics.Counters{}
	c := New(q, dest, Config{
		Mode:          awriter.Trigger,
		BatchSize:     3,
		FlushInterval: time.Hour,
	}, counts, diag.Nop())

	go c.Run(context.Background())

	mustPut(t, q, "a")
	mustPut(t, q, "b")
	mustPut(t, q, "c")

	require.Eventually(t, func() bool { return dest.totalLines() == 3 }, time.Second, time.Millisecond)

	dest.mu.Lock()
	require.Len(t, dest.batches, 1, "a batch_size-sized batch should flush as one write")
	require.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, dest.batches[0])
	dest.mu.Unlock()

	q.Stop()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not finish")
	}
}

func TestConsumer_TriggerFlushesOnFlushIntervalBeforeBatchSizeReached(t *testing.T) {
	q := queue.New(0, policy.BackpressureBlock)
	dest := &fakeDestination{}
	counts := &metrics.Counters{}
	c := New(q, dest, Config{
		Mode:          awriter.Trigger,
		BatchSize:     100,
		FlushInterval: 15 * time.Millisecond,
	}, counts, diag.Nop())

	go c.Run(context.Background())

	mustPut(t, q, "a")

	require.Eventually(t, func() bool { return dest.totalLines() == 1 }, time.Second, time.Millisecond,
		"a single line under batch_size must still flush once flush_interval elapses")

	q.Stop()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not finish")
	}

	snap := counts.Snapshot()
	require.Equal(t, uint64(1), snap.Written)
}
