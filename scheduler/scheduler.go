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

// Package scheduler fans a target's sources out across a bounded pool
// of worker goroutines, each running the per-source pipeline, and
// collects their contributions to the target's shared build state.
package scheduler

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/torsade/mimk/buildcfg"
	"github.com/torsade/mimk/hashstore"
	"github.com/torsade/mimk/pipeline"
	"github.com/torsade/mimk/report"
	"github.com/torsade/mimk/runner"
)

// Result aggregates every source's pipeline.Result for one target.
type Result struct {
	// AnyModified is true if any source reported itself modified.
	AnyModified bool
	// ObjList holds one host-native object path per source, in
	// worker-completion order (§5: "the final order ... is the
	// completion order of workers, not source order").
	ObjList []string
	// ObjListRel holds the matching SRCBASE-stripped, slash-normalized
	// object paths, same order as ObjList.
	ObjListRel []string
	// NewHashes is the union of every source's freshly computed
	// dependency digests, ready for the orchestrator to merge into the
	// hash store after the pool drains.
	NewHashes map[string]string
}

// EffectiveThreads resolves the worker count per §4.7: a non-zero CLI
// override wins, else a non-zero per-target override, else
// runtime.NumCPU(); remove mode always forces 1, to keep undo ordering
// deterministic.
func EffectiveThreads(cliOverride, targetOverride int, removeMode bool) int {
	if removeMode {
		return 1
	}
	if cliOverride > 0 {
		return cliOverride
	}
	if targetOverride > 0 {
		return targetOverride
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// Run submits every entry of sources to the per-source pipeline across
// threads worker goroutines and returns once all have completed (or the
// first error aborts the rest, per §5's no-voluntary-cancellation
// model: in-flight siblings finish their current step, the pool does
// not accept new work after an error).
//
// store is read-only to workers; their contributions are merged into
// Result.NewHashes under a single mutex and left for the caller to
// fold into the store once this call returns (§4.7: shared-state
// mutation is serialized by one mutex, not delegated to hashstore.Store
// itself).
func Run(threads int, t *buildcfg.Target, cfg buildcfg.Config, store *hashstore.Store, sources []string, removeMode bool, sink *report.Sink, opts runner.Options) (Result, error) {
	if threads <= 0 {
		threads = 1
	}

	sem := make(chan struct{}, threads)
	eg, ctx := errgroup.WithContext(context.Background())
	var mu sync.Mutex

	result := Result{NewHashes: map[string]string{}}

feed:
	for i, src := range sources {
		i, src := i, src

		select {
		case <-ctx.Done():
			break feed
		case sem <- struct{}{}:
		}

		eg.Go(func() error {
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			progress := runner.Progress{Iteration: i + 1, Total: len(sources), Label: src}
			workerOpts := opts
			workerOpts.Sink = sink

			res, err := pipeline.Run(t, cfg, store, src, removeMode, progress, workerOpts)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if res.Modified {
				result.AnyModified = true
			}
			if !removeMode {
				result.ObjList = append(result.ObjList, res.ObjPath)
				result.ObjListRel = append(result.ObjListRel, res.ObjPathRel)
				for k, v := range res.NewHashes {
					result.NewHashes[k] = v
				}
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return Result{}, err
	}
	return result, nil
}
