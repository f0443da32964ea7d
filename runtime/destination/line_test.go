package destination

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLine_WriteBatchAppendsEachLineWithNewline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	d, err := NewLine(LineOptions{Path: path})
	require.NoError(t, err)
	require.Equal(t, "line(out.log)", d.Name())

	ctx := context.Background()
	require.NoError(t, d.WriteBatch(ctx, [][]byte{[]byte("a"), []byte("b")}))
	require.NoError(t, d.WriteBatch(ctx, [][]byte{[]byte("c")}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", string(data))

	require.NoError(t, d.Close(ctx))
}

func TestLine_WriteBatchAfterCloseErrors(t *testing.T) {
	dir := t.TempDir()
	d, err := NewLine(LineOptions{Path: filepath.Join(dir, "out.log")})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Close(ctx))
	require.ErrorIs(t, d.WriteBatch(ctx, [][]byte{[]byte("x")}), ErrLineClosed)
}

func TestLine_EmptyBatchIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	d, err := NewLine(LineOptions{Path: path})
	require.NoError(t, err)

	require.NoError(t, d.WriteBatch(context.Background(), nil))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
