package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuietSuppressesInfoAndCommand(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf, true)

	s.Emit(SeverityInfo, "loaded store", nil)
	s.Emit(SeverityCommand, "gcc -c a.c", nil)
	require.Empty(t, buf.String())

	s.Emit(SeverityError, "boom", nil)
	require.Contains(t, buf.String(), "boom")
}

func TestVerboseEmitsInfo(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf, false)
	s.Infof("hello", map[string]interface{}{"target": "app"})
	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), "target=app")
}

func TestProgressIncludesIterationAndTotal(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf, false)
	s.Progress("app", 2, 8, "compile a.c")
	out := buf.String()
	require.Contains(t, out, "iteration=2")
	require.Contains(t, out, "total=8")
}
