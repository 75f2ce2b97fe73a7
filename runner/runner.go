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

// Package runner executes a compound rule string: a sequence of ';'
// separated steps, each dispatched to either a built-in verb or an
// external subprocess. It implements undo mode for remove-mode
// invocations of reversible built-in verbs.
package runner

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/torsade/mimk/report"
)

// Progress identifies one invocation for reporting purposes: its
// position among a target's sources (or 0/1 for non-per-source
// rules) and a human label.
type Progress struct {
	Iteration int
	Total     int
	Label     string
}

// Options configures a single Run call.
type Options struct {
	// Debug suppresses aborts on command failure; diagnostics are
	// still emitted (§4.3, §7 CommandFailure).
	Debug bool
	Sink  *report.Sink
	// Target names the owning target, attached to emitted events.
	Target string
}

// ErrUnsupportedVerb is returned when a rule invokes the `python`
// escape hatch, which this implementation refuses rather than
// fabricating an embedded interpreter (see SPEC_FULL.md and DESIGN.md).
var ErrUnsupportedVerb = errors.New("runner: python verb is not supported")

// Run splits rule on ';' into steps and executes them in order (or in
// reverse order when undo is true, so later steps are undone first;
// external steps are skipped in undo mode). The working directory in effect at entry is
// restored on every exit path, including early returns from a
// `@cd` step's effect on subsequent steps.
func Run(rule string, undo bool, progress Progress, opts Options) error {
	if strings.TrimSpace(rule) == "" {
		return nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "runner: getwd")
	}
	defer os.Chdir(cwd)

	steps := splitSteps(rule)
	if undo {
		reverseStrings(steps)
	}

	for _, step := range steps {
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}

		var err error
		if strings.HasPrefix(step, "@") {
			err = runBuiltin(step, undo, opts)
		} else if !undo {
			// External steps have no reverse; undo mode skips them.
			err = runExternal(step, progress, opts)
		}

		if err != nil {
			sev := report.SeverityError
			if undo {
				sev = report.SeverityUndo
			}
			if opts.Sink != nil {
				opts.Sink.Emit(sev, err.Error(), map[string]interface{}{
					"target": opts.Target,
					"step":   step,
				})
			}
			if !opts.Debug {
				return err
			}
		}
	}

	return nil
}

// splitSteps splits rule on ';' without breaking apart quoted
// substrings, so a quoted argument containing ';' survives intact.
func splitSteps(rule string) []string {
	var steps []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(rule); i++ {
		c := rule[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == ';':
			steps = append(steps, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	steps = append(steps, cur.String())
	return steps
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
