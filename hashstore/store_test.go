package hashstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingIsEmpty(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Equal(t, 0, s.Len())
}

func TestLoadCorruptIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".hashes.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))
	s := Load(path)
	require.Equal(t, 0, s.Len())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".hashes.json")

	s := New()
	s.Set("b.c", "ff")
	s.Set("a.c", "00")
	require.NoError(t, s.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Sorted keys, one-space indent.
	require.Contains(t, string(data), "{\n \"a.c\": \"00\",\n \"b.c\": \"ff\"\n}")

	s2 := Load(path)
	require.Equal(t, 2, s2.Len())
	v, ok := s2.Get("a.c")
	require.True(t, ok)
	require.Equal(t, "00", v)
}

func TestResetAndMerge(t *testing.T) {
	s := New()
	s.Set("x", "1")
	s.Merge(map[string]string{"y": "2"})
	require.Equal(t, 2, s.Len())
	s.Reset()
	require.Equal(t, 0, s.Len())
}

func TestCountByExt(t *testing.T) {
	s := New()
	s.Set("dep/a.d", "1")
	s.Set("dep/b.d", "2")
	s.Set("src/a.c", "3")
	counts := s.CountByExt("c", "h", "d")
	require.Equal(t, 1, counts["c"])
	require.Equal(t, 0, counts["h"])
	require.Equal(t, 2, counts["d"])
}
