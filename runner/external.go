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

package runner

import (
	"os/exec"
	"runtime"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

// runExternal tokenizes step honoring quoting, rejoins with single
// spaces, and executes it through the platform shell (§4.3). Unlike
// POSIX shlex, quote characters are preserved in the rejoined command
// rather than stripped, since the platform shell re-interprets them.
func runExternal(step string, progress Progress, opts Options) error {
	// go-shellwords validates balanced quoting; a malformed step (an
	// unterminated quote) is rejected here before we attempt our own
	// quote-preserving split.
	if _, err := shellwords.Parse(step); err != nil {
		return errors.Wrapf(err, "runner: malformed command %q", step)
	}

	tokens, err := splitPreservingQuotes(step)
	if err != nil {
		return err
	}
	joined := strings.Join(tokens, " ")

	if opts.Sink != nil {
		opts.Sink.Progress(opts.Target, progress.Iteration, progress.Total, joined)
	}

	cmd := shellCommand(joined)
	runErr := cmd.Run()
	if runErr == nil {
		return nil
	}

	if exitErr, ok := runErr.(*exec.ExitError); ok {
		if sig, signaled := terminatingSignal(exitErr); signaled {
			return errors.Wrapf(exitErr, "command %q terminated by signal %d", firstWord(joined), sig)
		}
		return errors.Wrapf(exitErr, "command %q returned error code %d", firstWord(joined), exitErr.ExitCode())
	}

	return errors.Wrapf(runErr, "runner: failed to spawn %q", firstWord(joined))
}

// splitPreservingQuotes tokenizes s on whitespace without stripping
// quote characters from the resulting tokens (the non-POSIX behavior
// §4.3 calls for).
func splitPreservingQuotes(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	var quote byte
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == ' ' || c == '\t':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, errors.Errorf("runner: unterminated quote in %q", s)
	}
	flush()
	return tokens, nil
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i != -1 {
		return s[:i]
	}
	return s
}

func shellCommand(joined string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", "/C", joined)
	}
	return exec.Command("/bin/sh", "-c", joined)
}
