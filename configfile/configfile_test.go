package configfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadProfileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gcc_release.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"BUILD":"gcc_release","CC":"gcc"}`), 0644))

	cfg, err := LoadProfile(path)
	require.NoError(t, err)
	require.Equal(t, "gcc", cfg["CC"])
	require.Equal(t, "obj", cfg["OBJPATH"], "profile overlay must not drop unset defaults")
}

func TestLoadProfileMissingFileErrors(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadTargetsParsesRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"targets": [
			{"target": "app", "src_dir": "src", "src_rule": "@echo $OBJ_PATH built", "threads": 4}
		]
	}`), 0644))

	targets, err := LoadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Equal(t, "app", targets[0].Target)
	require.Equal(t, 4, targets[0].Threads)
}

func TestLoadTargetsRejectsMissingTargetField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[{"src_dir":"src"}]}`), 0644))

	_, err := LoadTargets(path)
	require.Error(t, err)
}
