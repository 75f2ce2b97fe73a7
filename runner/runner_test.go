package runner

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/torsade/mimk/report"
)

func TestRunExternalSuccess(t *testing.T) {
	err := Run("true", false, Progress{Total: 1}, Options{})
	require.NoError(t, err)
}

func TestRunExternalFailureAborts(t *testing.T) {
	err := Run("false ; @echo /tmp/should-not-run.txt unreached", false, Progress{}, Options{})
	require.Error(t, err)
}

func TestRunExternalFailureDebugModeContinues(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker.txt")
	rule := "false ; @echo " + marker + " reached"
	err := Run(rule, false, Progress{}, Options{Debug: true})
	require.NoError(t, err)
	require.FileExists(t, marker)
}

func TestRunBuiltinMakedirAndDelete(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sub", "deeper")
	require.NoError(t, Run("@makedir "+p, false, Progress{}, Options{}))
	info, err := os.Stat(p)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	require.NoError(t, Run("@delete "+filepath.Join(dir, "sub"), false, Progress{}, Options{}))
	_, err = os.Stat(p)
	require.True(t, os.IsNotExist(err))
}

func TestRunStepsSplitOnSemicolon(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	rule := "@makedir " + a + " ; @makedir " + b
	require.NoError(t, Run(rule, false, Progress{}, Options{}))
	require.DirExists(t, a)
	require.DirExists(t, b)
}

func TestRunPythonVerbRefused(t *testing.T) {
	err := Run(`@python print("hi")`, false, Progress{}, Options{})
	require.ErrorIs(t, err, ErrUnsupportedVerb)
}

func TestRunUndoReversesStepOrderAndSkipsExternal(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.MkdirAll(a, 0755))
	require.NoError(t, os.MkdirAll(b, 0755))

	rule := "@makedir " + a + " ; echo should-be-skipped ; @makedir " + b
	require.NoError(t, Run(rule, true, Progress{}, Options{}))

	_, errA := os.Stat(a)
	_, errB := os.Stat(b)
	require.True(t, os.IsNotExist(errA))
	require.True(t, os.IsNotExist(errB))
}

func TestRunEmitsToSink(t *testing.T) {
	var buf bytes.Buffer
	sink := report.NewSink(&buf, false)
	err := Run("true", false, Progress{Total: 1}, Options{Sink: sink, Target: "app"})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "target=app")
}
