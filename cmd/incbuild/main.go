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

// Command incbuild is the command-line entry point wiring the
// configuration loader, the target orchestrator, and the reporting
// sink together, the way the teacher's cmd/soong_ui wires ui/build.
package main

import (
	"flag"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/torsade/mimk/configfile"
	"github.com/torsade/mimk/orchestrator"
	"github.com/torsade/mimk/report"
	"github.com/torsade/mimk/runner"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := flag.NewFlagSet("incbuild", flag.ContinueOnError)
	profile := fs.String("profile", "", "compiler profile JSON file (default: "+configfile.DefaultProfileFile+")")
	targetsFile := fs.String("targets", "targets.json", "target-list JSON file")
	buildRoot := fs.String("build-root", "build", "root directory holding per-profile build trees")
	threads := fs.Int("threads", 0, "worker thread override for every target (0: resolve per §4.7)")
	remove := fs.Bool("remove", false, "run every target's undo path instead of its forward path")
	wipe := fs.Bool("wipe", false, "remove each target's object directory before building")
	quiet := fs.Bool("quiet", false, "suppress info/command events, keep warnings and errors")
	debug := fs.Bool("debug", false, "don't abort on a failing command, report and continue")
	args := fs.String("args", "", "verbatim value of the ARGS config key passed to rule templates")

	if err := fs.Parse(argv); err != nil {
		return 1
	}

	sink := report.Default(*quiet)

	profilePath := *profile
	if profilePath == "" {
		profilePath = configfile.DefaultProfileFile
	}
	cfg, err := configfile.LoadProfile(profilePath)
	if err != nil {
		sink.Errorf(err.Error(), nil)
		return 1
	}

	targets, err := configfile.LoadTargets(*targetsFile)
	if err != nil {
		sink.Errorf(err.Error(), nil)
		return 1
	}

	buildDir := filepath.Join(*buildRoot, cfg["BUILD"])

	opts := orchestrator.Options{
		BuildDir:   buildDir,
		CLIThreads: *threads,
		Remove:     *remove,
		Wipe:       *wipe,
		Args:       *args,
		Sink:       sink,
		Runner:     runner.Options{Debug: *debug},
	}

	if err := orchestrator.Run(targets, cfg, opts); err != nil {
		sink.Errorf(err.Error(), nil)
		return exitCodeFor(err)
	}
	return 0
}

// exitCodeFor recovers the failing subprocess's own exit code when the
// error originated there, falling back to 1 for runner-internal
// failures (spec.md §6).
func exitCodeFor(err error) int {
	var exitErr *exec.ExitError
	for e := err; e != nil; e = unwrap(e) {
		if ee, ok := e.(*exec.ExitError); ok {
			exitErr = ee
			break
		}
	}
	if exitErr != nil {
		return exitErr.ExitCode()
	}
	return 1
}

func unwrap(err error) error {
	type causer interface{ Cause() error }
	type unwrapper interface{ Unwrap() error }
	if c, ok := err.(causer); ok {
		return c.Cause()
	}
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return nil
}
