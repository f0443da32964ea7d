package destination

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlock_WriteBatchFlushesWholeBatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	d, err := NewBlock(BlockOptions{Path: path})
	require.NoError(t, err)
	require.Equal(t, "block(out.log)", d.Name())

	ctx := context.Background()
	require.NoError(t, d.WriteBatch(ctx, [][]byte{[]byte("a"), []byte("b"), []byte("c")}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", string(data))

	require.NoError(t, d.Close(ctx))
}

func TestBlock_WriteBatchAfterCloseErrors(t *testing.T) {
	dir := t.TempDir()
	d, err := NewBlock(BlockOptions{Path: filepath.Join(dir, "out.log")})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Close(ctx))
	require.ErrorIs(t, d.WriteBatch(ctx, [][]byte{[]byte("x")}), ErrBlockClosed)
}
