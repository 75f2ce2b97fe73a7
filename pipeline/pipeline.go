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

// Package pipeline drives one source file through the build steps that
// decide whether it needs to be recompiled and, if so, recompiles it.
// It is the unit of work the scheduler fans out across workers.
package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/torsade/mimk/buildcfg"
	"github.com/torsade/mimk/digest"
	"github.com/torsade/mimk/hashstore"
	"github.com/torsade/mimk/makedeps"
	"github.com/torsade/mimk/rule"
	"github.com/torsade/mimk/runner"
)

// Result is what one source contributes to its target's aggregate
// state once its pipeline has run.
type Result struct {
	// Modified reports whether the source was (re)compiled this run.
	// Meaningless (and always false) in remove mode.
	Modified bool
	// ObjPath is the host-native path of the object file, for OBJ_LIST.
	ObjPath string
	// ObjPathRel is the slash-normalized, SRCBASE-stripped form of the
	// same path, for OBJ_LIST_REL (embedding into link-rule templates
	// so they don't vary by host path separator or source-base layout).
	ObjPathRel string
	// NewHashes captures the current digest of every dependency this
	// source pulled in, keyed by the dependency's path, ready to merge
	// into the hash store once the whole target's pool has drained.
	NewHashes map[string]string
}

// Run executes the per-source pipeline for one (target, src) pair: in
// forward mode, decide whether src needs recompiling and run SRCRULE if
// so; in remove mode, delete its generated files and undo PRERULE.
//
// cfg is the target's already-snapshotted configuration, augmented with
// DEP_DIR and OBJ_DIR by the caller. store is read-only here; the
// orchestrator merges Result.NewHashes into it after the pool drains
// (§4.7: the store is single-writer).
func Run(t *buildcfg.Target, cfg buildcfg.Config, store *hashstore.Store, src string, removeMode bool, progress runner.Progress, opts runner.Options) (Result, error) {
	src = filepath.FromSlash(src)

	relSrc := stripSrcBase(src, cfg["SRCBASE"])
	depExt := cfg["DEPEXT"]
	objExt := cfg["OBJEXT"]

	depPath := filepath.Join(cfg["DEP_DIR"], changeExt(relSrc, depExt))
	objPath := filepath.Join(cfg["OBJ_DIR"], changeExt(relSrc, objExt))
	objPathRel := filepath.ToSlash(objPath)

	if err := os.MkdirAll(filepath.Dir(depPath), 0777); err != nil {
		return Result{}, errors.Wrapf(err, "pipeline: mkdir for %s", depPath)
	}
	if err := os.MkdirAll(filepath.Dir(objPath), 0777); err != nil {
		return Result{}, errors.Wrapf(err, "pipeline: mkdir for %s", objPath)
	}

	vars := cfg.Clone()
	vars["SRC_PATH"] = src
	vars["DEP_PATH"] = depPath
	vars["OBJ_PATH"] = objPath

	if removeMode {
		return runRemove(t, vars, depPath, objPath, progress, opts)
	}
	return runForward(t, vars, store, depPath, objPath, objPathRel, progress, opts)
}

func runRemove(t *buildcfg.Target, vars buildcfg.Config, depPath, objPath string, progress runner.Progress, opts runner.Options) (Result, error) {
	removeIfExists(depPath)
	removeIfExists(objPath)

	if t.RemRule != "" {
		if err := runner.Run(rule.Eval(t.RemRule, vars), false, progress, opts); err != nil {
			return Result{}, err
		}
	}
	if t.PreRule != "" {
		if err := runner.Run(rule.Eval(t.PreRule, vars), true, progress, opts); err != nil {
			return Result{}, err
		}
	}
	return Result{Modified: false}, nil
}

func runForward(t *buildcfg.Target, vars buildcfg.Config, store *hashstore.Store, depPath, objPath, objPathRel string, progress runner.Progress, opts runner.Options) (Result, error) {
	if !exists(depPath) && t.DepRule != "" {
		if err := runner.Run(rule.Eval(t.DepRule, vars), false, progress, opts); err != nil {
			return Result{}, err
		}
	}

	modified := true
	newHashes := map[string]string{}

	var deps *makedeps.Deps
	if t.DepRule != "" {
		if d, err := readDeps(depPath); err == nil {
			if err := makedeps.CheckHead(d, objPath); err != nil {
				return Result{}, err
			}
			deps = d
			allMatch := true
			for _, dep := range d.Inputs {
				res := digest.Of(dep, "")
				if res.Status != digest.StatusOK {
					allMatch = false
					break
				}
				stored, ok := store.Get(dep)
				if !ok || stored != res.Hex {
					allMatch = false
					break
				}
			}
			modified = !allMatch
		}
		// A parse failure leaves modified=true, per the dependency-file
		// contract: a missing or corrupt dep file can't prove the
		// source unchanged.
	}

	if !exists(objPath) {
		modified = true
	}

	if modified && t.SrcRule != "" {
		if err := runner.Run(rule.Eval(t.SrcRule, vars), false, progress, opts); err != nil {
			return Result{}, err
		}
		if deps != nil {
			for _, dep := range deps.Inputs {
				res := digest.Of(dep, "")
				if res.Status == digest.StatusOK {
					newHashes[dep] = res.Hex
				}
			}
		}
	}

	return Result{
		Modified:   modified,
		ObjPath:    objPath,
		ObjPathRel: objPathRel,
		NewHashes:  newHashes,
	}, nil
}

func readDeps(path string) (*makedeps.Deps, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return makedeps.Parse(path, f)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func removeIfExists(path string) {
	_ = os.Remove(path)
}

// stripSrcBase removes base's length-plus-separator prefix from src, if
// src starts with it, so object/dep files mirror the source tree below
// SRCBASE rather than duplicating SRCBASE's own directories under
// OBJ_DIR/DEP_DIR.
func stripSrcBase(src, base string) string {
	if base == "" {
		return src
	}
	normBase := filepath.FromSlash(base)
	prefix := normBase + string(filepath.Separator)
	if strings.HasPrefix(src, prefix) {
		return src[len(prefix):]
	}
	return src
}

// changeExt replaces path's extension with newExt (without a leading
// dot in newExt; one is inserted here).
func changeExt(path, newExt string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "." + newExt
}
