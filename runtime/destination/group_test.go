package destination

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroup_WriteBatchFansOutToAllMembers(t *testing.T) {
	dir := t.TempDir()
	a, err := NewLine(LineOptions{Path: filepath.Join(dir, "a.log")})
	require.NoError(t, err)
	b, err := NewLine(LineOptions{Path: filepath.Join(dir, "b.log")})
	require.NoError(t, err)

	g := NewGroup("tee")
	require.NoError(t, g.Add(a))
	require.NoError(t, g.Add(b))
	require.ElementsMatch(t, []string{a.Name(), b.Name()}, g.List())

	ctx := context.Background()
	require.NoError(t, g.WriteBatch(ctx, [][]byte{[]byte("hello")}))
	require.NoError(t, g.Close(ctx))

	for _, name := range []string{"a.log", "b.log"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		require.Equal(t, "hello\n", string(data))
	}
}

func TestGroup_AddDuplicateNameErrors(t *testing.T) {
	dir := t.TempDir()
	a, err := NewLine(LineOptions{Path: filepath.Join(dir, "a.log"), Name: "dup"})
	require.NoError(t, err)
	b, err := NewLine(LineOptions{Path: filepath.Join(dir, "b.log"), Name: "dup"})
	require.NoError(t, err)

	g := NewGroup("tee")
	require.NoError(t, g.Add(a))
	require.Error(t, g.Add(b))
}

func TestGroup_RemoveUnknownErrors(t *testing.T) {
	g := NewGroup("tee")
	require.Error(t, g.Remove("missing"))
}
