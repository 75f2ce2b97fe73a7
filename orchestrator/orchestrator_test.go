package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/torsade/mimk/buildcfg"
)

func newWorkspace(t *testing.T) (buildDir, srcDir string) {
	root := t.TempDir()
	buildDir = filepath.Join(root, "build")
	srcDir = filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(buildDir, 0755))
	require.NoError(t, os.MkdirAll(srcDir, 0755))
	return
}

func writeSources(t *testing.T, srcDir string, names ...string) []string {
	var files []string
	for _, n := range names {
		p := filepath.Join(srcDir, n)
		require.NoError(t, os.WriteFile(p, []byte("// "+n), 0644))
		files = append(files, p)
	}
	return files
}

func TestRunColdBuildLinksTarget(t *testing.T) {
	buildDir, srcDir := newWorkspace(t)
	writeSources(t, srcDir, "a.c", "b.c")

	target := &buildcfg.Target{
		Target:  "app",
		SrcDir:  srcDir,
		SrcRule: "@echo $OBJ_PATH compiled",
		ObjRule: "@cat $TARGET_PATH $OBJ_LIST",
	}

	err := Run([]*buildcfg.Target{target}, buildcfg.Defaults(), Options{BuildDir: buildDir})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(buildDir, "app"))
}

func TestRunRerunWithNoChangesSkipsLink(t *testing.T) {
	buildDir, srcDir := newWorkspace(t)
	writeSources(t, srcDir, "a.c")

	linkMarker := filepath.Join(buildDir, "link-count.txt")
	target := &buildcfg.Target{
		Target:  "app",
		SrcDir:  srcDir,
		DepRule: "@echo $DEP_PATH $OBJ_PATH: $SRC_PATH",
		SrcRule: "@echo $OBJ_PATH compiled",
		ObjRule: "@append " + linkMarker + " x ; @cat $TARGET_PATH $OBJ_LIST",
	}

	cfg := buildcfg.Defaults()
	require.NoError(t, Run([]*buildcfg.Target{target}, cfg, Options{BuildDir: buildDir}))
	require.FileExists(t, linkMarker)
	first, err := os.ReadFile(linkMarker)
	require.NoError(t, err)

	require.NoError(t, Run([]*buildcfg.Target{target}, cfg, Options{BuildDir: buildDir}))
	second, err := os.ReadFile(linkMarker)
	require.NoError(t, err)
	require.Equal(t, first, second, "a rerun with no source changes must not relink")
}

func TestRunRelinksWhenArtifactTampered(t *testing.T) {
	buildDir, srcDir := newWorkspace(t)
	writeSources(t, srcDir, "a.c")

	target := &buildcfg.Target{
		Target:  "app",
		SrcDir:  srcDir,
		DepRule: "@echo $DEP_PATH $OBJ_PATH: $SRC_PATH",
		SrcRule: "@echo $OBJ_PATH compiled",
		ObjRule: "@cat $TARGET_PATH $OBJ_LIST",
	}

	cfg := buildcfg.Defaults()
	require.NoError(t, Run([]*buildcfg.Target{target}, cfg, Options{BuildDir: buildDir}))

	artifact := filepath.Join(buildDir, "app")
	require.NoError(t, os.WriteFile(artifact, []byte("tampered"), 0644))

	require.NoError(t, Run([]*buildcfg.Target{target}, cfg, Options{BuildDir: buildDir}))
	data, err := os.ReadFile(artifact)
	require.NoError(t, err)
	require.NotEqual(t, "tampered", string(data), "a tampered artifact must be relinked")
}

func TestRunRemoveModeClearsObjectsAndStore(t *testing.T) {
	buildDir, srcDir := newWorkspace(t)
	writeSources(t, srcDir, "a.c")

	target := &buildcfg.Target{
		Target:  "app",
		SrcDir:  srcDir,
		SrcRule: "@echo $OBJ_PATH compiled",
		ObjRule: "@cat $TARGET_PATH $OBJ_LIST",
	}

	cfg := buildcfg.Defaults()
	require.NoError(t, Run([]*buildcfg.Target{target}, cfg, Options{BuildDir: buildDir}))
	require.NoError(t, Run([]*buildcfg.Target{target}, cfg, Options{BuildDir: buildDir, Remove: true}))

	objDir := filepath.Join(buildDir, cfg["OBJPATH"])
	entries, err := os.ReadDir(objDir)
	require.NoError(t, err)
	for _, e := range entries {
		require.True(t, e.IsDir(), "remove mode must delete every object file")
	}

	stored, err := os.ReadFile(filepath.Join(buildDir, ".hashes.json"))
	require.NoError(t, err)
	require.JSONEq(t, "{}", string(stored), "remove mode must persist an empty hash store")
}
