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
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar"
	copylib "github.com/otiai10/copy"
	"github.com/pkg/errors"

	"github.com/torsade/mimk/report"
)

// runBuiltin dispatches one "@verb arg..." step.
func runBuiltin(step string, undo bool, opts Options) error {
	body := strings.TrimPrefix(step, "@")
	tokens := tokenizeBuiltin(body)
	if len(tokens) == 0 {
		return errors.New("runner: empty built-in step")
	}

	verb := tokens[0]
	args := tokens[1:]

	if opts.Sink != nil {
		sev := report.SeverityCommand
		if undo {
			sev = report.SeverityUndo
		}
		opts.Sink.Emit(sev, step, map[string]interface{}{"target": opts.Target})
	}

	switch verb {
	case "copy":
		return verbCopy(args, undo)
	case "move":
		return verbMove(args, undo)
	case "rename":
		return verbRename(args, undo)
	case "makedir":
		return verbMakedir(args, undo)
	case "delete":
		return verbDelete(args, undo)
	case "echo":
		return verbEcho(args, undo, false)
	case "append":
		return verbEcho(args, undo, true)
	case "cat":
		return verbCat(args, undo)
	case "cd":
		return verbCd(args, undo)
	case "ok":
		return verbOk(args, undo, opts)
	case "try":
		return verbTry(args, undo, opts)
	case "exists":
		return verbExists(args, undo, opts)
	case "python":
		return ErrUnsupportedVerb
	default:
		return errors.Errorf("runner: unknown built-in verb %q", verb)
	}
}

// tokenizeBuiltin splits a built-in step's body on whitespace,
// honoring quotes so a path with a space can be quoted.
func tokenizeBuiltin(s string) []string {
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
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ' ' || c == '\t':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return tokens
}

// expandPattern expands pattern via glob if it contains '*', else
// returns it literally as a single-element slice (§4.3).
func expandPattern(pattern string) ([]string, error) {
	if !strings.Contains(pattern, "*") {
		return []string{pattern}, nil
	}
	matches, err := doublestar.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "runner: glob %q", pattern)
	}
	return matches, nil
}

func existsAsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// withExeFallback returns path, or path+".exe" if that is the one
// that actually exists. Used by `move` undo and `delete`.
func withExeFallback(path string) string {
	if existsAsFile(path) {
		return path
	}
	if existsAsFile(path + ".exe") {
		return path + ".exe"
	}
	return path
}

func verbCopy(args []string, undo bool) error {
	if len(args) != 2 {
		return errors.New("runner: @copy requires SRC and DST")
	}
	srcPattern, dst := args[0], args[1]

	if undo {
		// Undo: delete DST/basename(SRC) if present.
		matches, err := expandPattern(srcPattern)
		if err != nil {
			return err
		}
		for _, src := range matches {
			target := filepath.Join(dst, filepath.Base(src))
			if existsAsFile(target) {
				if err := os.Remove(target); err != nil {
					return errors.Wrapf(err, "runner: @copy undo: remove %s", target)
				}
			}
		}
		return nil
	}

	matches, err := expandPattern(srcPattern)
	if err != nil {
		return err
	}
	for _, src := range matches {
		target := filepath.Join(dst, filepath.Base(src))
		if err := copylib.Copy(src, target); err != nil {
			return errors.Wrapf(err, "runner: @copy %s -> %s", src, target)
		}
	}
	return nil
}

func verbMove(args []string, undo bool) error {
	if len(args) != 2 {
		return errors.New("runner: @move requires SRC and DST")
	}
	srcPattern, dst := args[0], args[1]

	if undo {
		// Undo: copy back, tolerating a .exe suffix on DST.
		matches, err := expandPattern(srcPattern)
		if err != nil {
			return err
		}
		for _, src := range matches {
			from := withExeFallback(filepath.Join(dst, filepath.Base(src)))
			if err := copylib.Copy(from, src); err != nil {
				return errors.Wrapf(err, "runner: @move undo: copy %s -> %s", from, src)
			}
		}
		return nil
	}

	matches, err := expandPattern(srcPattern)
	if err != nil {
		return err
	}
	for _, src := range matches {
		target := filepath.Join(dst, filepath.Base(src))
		if err := copylib.Copy(src, target); err != nil {
			return errors.Wrapf(err, "runner: @move %s -> %s", src, target)
		}
		if err := os.RemoveAll(src); err != nil {
			return errors.Wrapf(err, "runner: @move remove source %s", src)
		}
	}
	return nil
}

func verbRename(args []string, undo bool) error {
	if len(args) != 2 {
		return errors.New("runner: @rename requires A and B")
	}
	a, b := args[0], args[1]
	if undo {
		a, b = b, a
	}
	if err := os.Rename(a, b); err != nil {
		return errors.Wrapf(err, "runner: @rename %s -> %s", a, b)
	}
	return nil
}

func verbMakedir(args []string, undo bool) error {
	if len(args) != 1 {
		return errors.New("runner: @makedir requires P")
	}
	p := args[0]
	if undo {
		if err := os.RemoveAll(p); err != nil {
			return errors.Wrapf(err, "runner: @makedir undo: remove %s", p)
		}
		return nil
	}
	if err := os.MkdirAll(p, 0777); err != nil {
		return errors.Wrapf(err, "runner: @makedir %s", p)
	}
	return nil
}

func verbDelete(args []string, undo bool) error {
	if len(args) != 1 {
		return errors.New("runner: @delete requires P")
	}
	if undo {
		return nil
	}
	p := withExeFallback(args[0])
	if err := os.RemoveAll(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "runner: @delete %s", p)
	}
	return nil
}

func verbEcho(args []string, undo, appendMode bool) error {
	if len(args) < 1 {
		return errors.New("runner: @echo/@append requires F")
	}
	f, words := args[0], args[1:]
	if undo {
		if existsAsFile(f) {
			return os.Remove(f)
		}
		return nil
	}
	content := strings.Join(words, " ")
	if appendMode {
		fh, err := os.OpenFile(f, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return errors.Wrapf(err, "runner: @append open %s", f)
		}
		defer fh.Close()
		_, err = fh.WriteString(content)
		return err
	}
	return os.WriteFile(f, []byte(content), 0644)
}

func verbCat(args []string, undo bool) error {
	if len(args) < 1 {
		return errors.New("runner: @cat requires F")
	}
	f, srcs := args[0], args[1:]
	if undo {
		if existsAsFile(f) {
			return os.Remove(f)
		}
		return nil
	}
	out, err := os.Create(f)
	if err != nil {
		return errors.Wrapf(err, "runner: @cat create %s", f)
	}
	defer out.Close()
	for _, src := range srcs {
		data, err := os.ReadFile(src)
		if err != nil {
			return errors.Wrapf(err, "runner: @cat read %s", src)
		}
		if _, err := out.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func verbCd(args []string, undo bool) error {
	if undo {
		return nil
	}
	if len(args) != 1 {
		return errors.New("runner: @cd requires P")
	}
	return os.Chdir(args[0])
}

func verbOk(args []string, undo bool, opts Options) error {
	if undo {
		return nil
	}
	if len(args) == 0 {
		return errors.New("runner: @ok requires CMD")
	}
	_ = runExternal(strings.Join(args, " "), Progress{Label: "ok"}, Options{Sink: opts.Sink, Target: opts.Target, Debug: true})
	return nil
}

func verbTry(args []string, undo bool, opts Options) error {
	if undo {
		return nil
	}
	if len(args) < 2 {
		return errors.New("runner: @try requires N and CMD")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrapf(err, "runner: @try N=%q", args[0])
	}
	cmd := strings.Join(args[1:], " ")
	var lastErr error
	for i := 0; i < n; i++ {
		lastErr = runExternal(cmd, Progress{Label: "try"}, opts)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func verbExists(args []string, undo bool, opts Options) error {
	if undo {
		return nil
	}
	if len(args) < 2 {
		return errors.New("runner: @exists requires P and CMD")
	}
	p := args[0]
	if _, err := os.Stat(p); err != nil {
		return nil
	}
	_ = runExternal(strings.Join(args[1:], " "), Progress{Label: "exists"}, Options{Sink: opts.Sink, Target: opts.Target, Debug: true})
	return nil
}
