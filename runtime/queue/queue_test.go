package queue

import (
	"context"
	"testing"
	"time"

	"github.com/flowlog/core/apis/destination/policy"
	"github.com/stretchr/testify/require"
)

func TestQueue_PutGetOrderPreserved(t *testing.T) {
	q := New(0, policy.BackpressureBlock)

	requirePut(t, q, "a", true, false)
	requirePut(t, q, "b", true, false)
	requirePut(t, q, "c", true, false)

	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		line, stopped := q.Get(ctx)
		require.False(t, stopped)
		require.Equal(t, want, string(line))
	}
}

func TestQueue_DropNewestRejectsWhenFull(t *testing.T) {
	q := New(2, policy.BackpressureDropNewest)

	requirePut(t, q, "1", true, false)
	requirePut(t, q, "2", true, false)
	requirePut(t, q, "3", false, false)

	require.Equal(t, 2, q.Len())
	drained := q.Drain()
	require.Equal(t, [][]byte{[]byte("1"), []byte("2")}, drained)
}

func TestQueue_DropOldestEvictsFront(t *testing.T) {
	q := New(2, policy.BackpressureDropOldest)

	requirePut(t, q, "1", true, false)
	requirePut(t, q, "2", true, false)
	requirePut(t, q, "3", true, true)

	drained := q.Drain()
	require.Equal(t, [][]byte{[]byte("2"), []byte("3")}, drained)
}

func TestQueue_WarnRejectsWhenFullAndLogsOncePerDrop(t *testing.T) {
	q := New(1, policy.BackpressureWarn)
	spy := &spyLogger{}
	q.SetLogger(spy)

	requirePut(t, q, "1", true, false)
	requirePut(t, q, "2", false, false)
	requirePut(t, q, "3", false, false)

	require.Equal(t, 1, q.Len(), "WARN must drop like DropNewest, not grow past capacity")
	drained := q.Drain()
	require.Equal(t, [][]byte{[]byte("1")}, drained)
	require.Equal(t, 2, spy.warnings, "one diagnostic warning per dropped line")
}

// spyLogger is a diag.Logger that only counts Warnw calls, for asserting
// the WARN policy's one-warning-per-drop contract without pulling in zap.
type spyLogger struct{ warnings int }

func (s *spyLogger) Debugw(msg string, kv ...any) {}
func (s *spyLogger) Infow(msg string, kv ...any)  {}
func (s *spyLogger) Warnw(msg string, kv ...any)  { s.warnings++ }
func (s *spyLogger) Errorw(msg string, kv ...any) {}
func (s *spyLogger) Sync() error                  { return nil }

func TestQueue_PutBlockingWaitsForRoom(t *testing.T) {
	q := New(1, policy.BackpressureBlock)
	require.True(t, q.PutBlocking(context.Background(), []byte("1")))

	done := make(chan bool, 1)
	go func() {
		done <- q.PutBlocking(context.Background(), []byte("2"))
	}()

	select {
	case <-done:
		t.Fatal("PutBlocking returned before room was made")
	case <-time.After(20 * time.Millisecond):
	}

	_, stopped := q.Get(context.Background())
	require.False(t, stopped)

	select {
	case ok := <-done:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("PutBlocking never unblocked")
	}
}

func TestQueue_PutBlockingRespectsContext(t *testing.T) {
	q := New(1, policy.BackpressureBlock)
	require.True(t, q.PutBlocking(context.Background(), []byte("1")))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.False(t, q.PutBlocking(ctx, []byte("2")))
}

func TestQueue_StopThenGetReturnsStopped(t *testing.T) {
	q := New(0, policy.BackpressureBlock)
	requirePut(t, q, "a", true, false)
	q.Stop()

	line, stopped := q.Get(context.Background())
	require.False(t, stopped)
	require.Equal(t, "a", string(line))

	_, stopped = q.Get(context.Background())
	require.True(t, stopped)
}

func TestQueue_PutAfterStopRejected(t *testing.T) {
	q := New(0, policy.BackpressureBlock)
	q.Stop()
	requirePut(t, q, "a", false, false)
}

func TestQueue_GetUnblocksOnContextCancel(t *testing.T) {
	q := New(0, policy.BackpressureBlock)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	line, stopped := q.Get(ctx)
	require.Nil(t, line)
	require.False(t, stopped)
}

func requirePut(t *testing.T, q *Queue, line string, wantAccepted, wantEvicted bool) {
	t.Helper()
	accepted, evicted := q.Put([]byte(line))
	require.Equal(t, wantAccepted, accepted)
	require.Equal(t, wantEvicted, evicted)
}
