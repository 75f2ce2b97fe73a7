package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/torsade/mimk/buildcfg"
	"github.com/torsade/mimk/hashstore"
	"github.com/torsade/mimk/runner"
)

func TestEffectiveThreads(t *testing.T) {
	require.Equal(t, 1, EffectiveThreads(0, 0, true), "remove mode forces 1 regardless of overrides")
	require.Equal(t, 4, EffectiveThreads(4, 8, false), "CLI override wins")
	require.Equal(t, 8, EffectiveThreads(0, 8, false), "per-target override wins over host default")
	require.GreaterOrEqual(t, EffectiveThreads(0, 0, false), 1, "host default is always at least 1")
}

func TestRunCompilesAllSourcesAndAggregates(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "src")
	objDir := filepath.Join(root, "obj")
	depDir := filepath.Join(root, "dep")
	require.NoError(t, os.MkdirAll(srcDir, 0755))

	var sources []string
	for i := 0; i < 6; i++ {
		p := filepath.Join(srcDir, fmt.Sprintf("f%d.c", i))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
		sources = append(sources, p)
	}

	target := &buildcfg.Target{Target: "app", SrcRule: "@echo $OBJ_PATH built"}
	cfg := buildcfg.Defaults()
	cfg["DEP_DIR"] = depDir
	cfg["OBJ_DIR"] = objDir
	store := hashstore.New()

	res, err := Run(2, target, cfg, store, sources, false, nil, runner.Options{})
	require.NoError(t, err)
	require.True(t, res.AnyModified)
	require.Len(t, res.ObjList, len(sources))
	require.Len(t, res.ObjListRel, len(sources))
	for _, o := range res.ObjList {
		require.FileExists(t, o)
	}
}

func TestRunPropagatesFirstError(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "src")
	objDir := filepath.Join(root, "obj")
	depDir := filepath.Join(root, "dep")
	require.NoError(t, os.MkdirAll(srcDir, 0755))

	p := filepath.Join(srcDir, "f.c")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))

	target := &buildcfg.Target{Target: "app", SrcRule: "false"}
	cfg := buildcfg.Defaults()
	cfg["DEP_DIR"] = depDir
	cfg["OBJ_DIR"] = objDir
	store := hashstore.New()

	_, err := Run(2, target, cfg, store, []string{p}, false, nil, runner.Options{})
	require.Error(t, err)
}
