package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters_SnapshotAndPending(t *testing.T) {
	var c Counters
	c.AddEnqueued()
	c.AddEnqueued()
	c.AddEnqueued()
	c.AddWritten(2)
	c.AddDropped(1)
	c.AddErrors()
	c.AddFlush()

	snap := c.Snapshot()
	require.Equal(t, uint64(3), snap.Enqueued)
	require.Equal(t, uint64(2), snap.Written)
	require.Equal(t, uint64(1), snap.Dropped)
	require.Equal(t, uint64(1), snap.Errors)
	require.Equal(t, uint64(1), snap.FlushCount)
	require.Equal(t, uint64(0), snap.Pending())
}

func TestCollector_ExposesGaugesAndCounters(t *testing.T) {
	var c Counters
	c.AddEnqueued()
	c.AddEnqueued()
	c.AddWritten(1)

	col := NewCollector("test-writer", &c)

	count := testutil.CollectAndCount(col)
	require.Equal(t, 6, count)
}
