// Copyright 2026 The Incbuild Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package orchestrator drives each declared target through its build
// state machine:
//
//	Pre -> Discover -> Compile* -> LinkDecision -> {Link | Skip} -> Persist -> Run -> Post
//
// Targets run strictly in declared order; within a target, sources
// compile in parallel through package scheduler. The state after
// Persist is committed — a crash between Link and Persist simply
// causes the next run to redo the link, which is idempotent from the
// driver's perspective.
package orchestrator

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar"
	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/torsade/mimk/buildcfg"
	"github.com/torsade/mimk/digest"
	"github.com/torsade/mimk/hashstore"
	"github.com/torsade/mimk/report"
	"github.com/torsade/mimk/rule"
	"github.com/torsade/mimk/runner"
	"github.com/torsade/mimk/scheduler"
)

// ErrSourceDiscovery marks a failure that, per the error-handling
// design, skips the offending target rather than aborting the whole
// run: an explicit source list naming a missing file, or a directory
// scan that turns up nothing.
var ErrSourceDiscovery = stderrors.New("orchestrator: source discovery failed")

// Options configures one invocation of Run across all targets.
type Options struct {
	// BuildDir is the root directory holding the hash store and the
	// per-target DEPPATH/OBJPATH trees.
	BuildDir string
	// CLIThreads overrides every target's thread count when non-zero
	// (highest-priority source in §4.7's resolution order).
	CLIThreads int
	// Remove puts every target through its undo path instead of its
	// forward path.
	Remove bool
	// Wipe removes OBJ_DIR before (re)building a target.
	Wipe bool
	// Args is embedded verbatim as the ARGS config key, mirroring
	// whatever the invoking command line passed through to rule
	// templates.
	Args string
	// Sink receives progress and diagnostic events for every target.
	Sink *report.Sink
	// Runner carries the base runner.Options (Debug, etc.) applied to
	// every rule invocation; Sink and Target are overwritten per call.
	Runner runner.Options
}

// Run drives every target in targets, in order, to completion. The
// first target to fail aborts the remaining ones (§5: no per-step
// timeouts, no voluntary cancellation, but a failing step ends the
// run), except for an ErrSourceDiscovery failure, which is reported to
// the sink and skips only that target.
func Run(targets []*buildcfg.Target, base buildcfg.Config, opts Options) error {
	storePath := filepath.Join(opts.BuildDir, hashstore.FileName)
	store := hashstore.Load(storePath)

	if opts.Sink != nil {
		counts := store.CountByExt(base["SRCEXT"], base["INCEXT"], base["DEPEXT"])
		opts.Sink.Infof("loaded hash store", map[string]interface{}{
			"entries": store.Len(),
			"src":     counts[base["SRCEXT"]],
			"inc":     counts[base["INCEXT"]],
			"dep":     counts[base["DEPEXT"]],
		})
	}

	for _, t := range targets {
		if err := runTarget(t, base, store, storePath, opts); err != nil {
			if stderrors.Is(err, ErrSourceDiscovery) {
				if opts.Sink != nil {
					opts.Sink.Errorf(err.Error(), map[string]interface{}{"target": t.Target})
				}
				continue
			}
			return errors.Wrapf(err, "orchestrator: target %q", t.Target)
		}
	}
	return nil
}

func runTarget(t *buildcfg.Target, base buildcfg.Config, store *hashstore.Store, storePath string, opts Options) error {
	// Step 1: per-target extension/path overrides, TARGET*/SRCDIR/SRCBASE.
	cfg := t.Snapshot(base)
	cfg["ARGS"] = opts.Args

	depDir := filepath.Join(opts.BuildDir, cfg["DEPPATH"])
	objDir := filepath.Join(opts.BuildDir, cfg["OBJPATH"])
	targetPath := filepath.Join(opts.BuildDir, t.Target)

	// Step 2: ensure DEP_DIR/OBJ_DIR exist; wipe removes OBJ_DIR first.
	if opts.Wipe {
		if err := os.RemoveAll(objDir); err != nil {
			return errors.Wrapf(err, "orchestrator: wipe %s", objDir)
		}
	}
	if err := os.MkdirAll(depDir, 0777); err != nil {
		return errors.Wrapf(err, "orchestrator: mkdir %s", depDir)
	}
	if err := os.MkdirAll(objDir, 0777); err != nil {
		return errors.Wrapf(err, "orchestrator: mkdir %s", objDir)
	}
	cfg["DEP_DIR"] = depDir
	cfg["OBJ_DIR"] = objDir
	cfg["TARGET_PATH"] = targetPath
	cfg["BUILD_DIR"] = opts.BuildDir
	cfg["DEPENDS"] = rule.Eval(t.Depends, cfg)

	runOpts := opts.Runner
	runOpts.Sink = opts.Sink
	runOpts.Target = t.Target

	// Step 4: PRERULE runs once per target on the forward path; its
	// remove-mode counterpart is invoked per source, inside the
	// pipeline (see package pipeline), since it undoes per-source setup.
	if !opts.Remove && t.PreRule != "" {
		if err := runner.Run(rule.Eval(t.PreRule, cfg), false, runner.Progress{Label: t.Target + ":pre"}, runOpts); err != nil {
			return err
		}
	}

	// Step 5: discover sources.
	sources, err := discoverSources(t, cfg)
	if err != nil {
		return err
	}

	// Step 6: submit the pool, aggregate any-modified.
	threads := scheduler.EffectiveThreads(opts.CLIThreads, t.Threads, opts.Remove)
	schedResult, err := scheduler.Run(threads, t, cfg, store, sources, opts.Remove, opts.Sink, runOpts)
	if err != nil {
		return err
	}

	// Step 7: populate OBJ_LIST / OBJ_LIST_REL.
	cfg["OBJ_LIST"] = strings.Join(schedResult.ObjList, " ")
	cfg["OBJ_LIST_REL"] = strings.Join(schedResult.ObjListRel, " ")

	if opts.Remove {
		// Remove-mode has no link decision; reset the store and persist
		// it empty (§4.6 step 10).
		store.Reset()
		return store.Save(storePath)
	}

	// Step 8: compute link-needed.
	linkNeeded := computeLinkNeeded(t, cfg, store, targetPath, schedResult.AnyModified)

	// Step 9: link if needed, recording the artifact's digest.
	if linkNeeded && t.ObjRule != "" {
		if err := runner.Run(rule.Eval(t.ObjRule, cfg), false, runner.Progress{Label: t.Target + ":link"}, runOpts); err != nil {
			return err
		}
		if res := digest.Of(targetPath, ".exe"); res.Status == digest.StatusOK {
			store.Set(hashstore.ToSlashKey(targetPath), res.Hex)
		}
	}

	// Step 10-11: merge new hashes, persist.
	store.Merge(schedResult.NewHashes)
	if err := store.Save(storePath); err != nil {
		return err
	}

	// Step 12: EXERULE (timed), then PSTRULE.
	if t.ExeRule != "" {
		start := time.Now()
		if err := runner.Run(rule.Eval(t.ExeRule, cfg), false, runner.Progress{Label: t.Target + ":exe"}, runOpts); err != nil {
			return err
		}
		elapsed := time.Since(start)
		if opts.Sink != nil {
			opts.Sink.Infof("ran "+t.Target+" ("+humanize.Comma(elapsed.Milliseconds())+"ms)", map[string]interface{}{
				"target":  t.Target,
				"elapsed": elapsed.String(),
			})
		}
	}
	if t.PstRule != "" {
		if err := runner.Run(rule.Eval(t.PstRule, cfg), false, runner.Progress{Label: t.Target + ":post"}, runOpts); err != nil {
			return err
		}
	}

	return nil
}

// discoverSources resolves a target's source list: an explicit list
// always wins (and a missing entry fails the target outright); absent
// that, every whitespace-separated SRCDIR entry (optionally prefixed by
// SRCBASE) is scanned recursively for files ending in .SRCEXT.
func discoverSources(t *buildcfg.Target, cfg buildcfg.Config) ([]string, error) {
	if len(t.SrcFiles) > 0 {
		for _, f := range t.SrcFiles {
			if _, err := os.Stat(f); err != nil {
				return nil, errors.Wrapf(ErrSourceDiscovery, "target %q: declared source %q missing", t.Target, f)
			}
		}
		return t.SrcFiles, nil
	}

	ext := cfg["SRCEXT"]
	var sources []string
	for _, dir := range strings.Fields(cfg["SRCDIR"]) {
		if cfg["SRCBASE"] != "" {
			dir = filepath.Join(cfg["SRCBASE"], dir)
		}
		pattern := filepath.ToSlash(filepath.Join(dir, "**", "*."+ext))
		matches, err := doublestar.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "orchestrator: scanning %s", dir)
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return nil, errors.Wrapf(ErrSourceDiscovery, "target %q: no sources found", t.Target)
	}
	return sources, nil
}

// computeLinkNeeded implements §4.6 step 8: link unless every
// dependency in DEPENDS still matches its stored digest, the artifact's
// own stored digest still matches its on-disk digest, and no source
// was recompiled this run.
func computeLinkNeeded(t *buildcfg.Target, cfg buildcfg.Config, store *hashstore.Store, targetPath string, anyModified bool) bool {
	if anyModified {
		return true
	}

	if t.Depends != "" {
		for _, dep := range strings.Fields(cfg["DEPENDS"]) {
			res := digest.Of(dep, "")
			if res.Status != digest.StatusOK {
				store.Delete(hashstore.ToSlashKey(dep))
				return true
			}
			stored, ok := store.Get(hashstore.ToSlashKey(dep))
			if !ok || stored != res.Hex {
				return true
			}
		}
	}

	key := hashstore.ToSlashKey(targetPath)
	stored, ok := store.Get(key)
	if !ok {
		return true
	}
	res := digest.Of(targetPath, ".exe")
	if res.Status != digest.StatusOK || res.Hex != stored {
		return true
	}

	return false
}
