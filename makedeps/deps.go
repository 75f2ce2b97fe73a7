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

// Package makedeps parses the make-style dependency files emitted by a
// compiler's -MM/-MF style flag: "target: a b \\\n  c d". The target is
// the head, everything else is the ordered, deduplicated tail.
//
// Unlike a full make parser, this one does not interpret backslash
// escapes around spaces — it only recognizes line-continuation
// backslashes and normalizes every other backslash to a forward
// slash, per this tool's simplified dependency-file contract.
package makedeps

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Deps is the parsed form of one dependency file: Output is the head
// token (expected to be the object file's basename, relative to the
// source directory) and Inputs is the deduplicated, order-preserving
// tail (the source file itself plus any headers it pulled in).
type Deps struct {
	Output string
	Inputs []string
}

// Parse reads a make-style dependency file from r. name is used only
// in error messages.
func Parse(name string, r io.Reader) (*Deps, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "makedeps: reading %s", name)
	}

	text := string(raw)

	// Line continuations: a backslash immediately followed by a
	// newline (optionally preceded by a carriage return) joins lines.
	text = strings.ReplaceAll(text, "\\\r\n", " ")
	text = strings.ReplaceAll(text, "\\\n", " ")

	// Any remaining backslash is a path separator, normalize it.
	text = strings.ReplaceAll(text, "\\", "/")

	// Remaining newlines/carriage returns are just whitespace now.
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	// The head is separated from the tail by the first colon.
	colon := strings.IndexByte(text, ':')
	if colon == -1 {
		return nil, errors.Errorf("makedeps: %s: no ':' found in dependency file", name)
	}
	head := strings.TrimSpace(text[:colon])
	tail := text[colon+1:]

	fields := strings.Fields(tail)

	seen := make(map[string]bool, len(fields))
	inputs := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		inputs = append(inputs, f)
	}

	return &Deps{Output: head, Inputs: inputs}, nil
}

// CheckHead verifies that d's head names the expected object file
// (matched by basename, since the head is relative to the source
// directory and expectedObj may carry a different prefix). A mismatch
// is fatal per the dependency-parser contract.
func CheckHead(d *Deps, expectedObj string) error {
	if lastElem(d.Output) != lastElem(expectedObj) {
		return fmt.Errorf("dependency file mismatch: expected object %q, got %q", expectedObj, d.Output)
	}
	return nil
}

func lastElem(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	if i := strings.LastIndexByte(s, '/'); i != -1 {
		return s[i+1:]
	}
	return s
}

// Print serializes d back to the same textual form Parse accepts,
// satisfying the round-trip property parse(serialize(parse(x))) ==
// parse(x): reparsing Print's output reproduces Output and Inputs.
func (d *Deps) Print() []byte {
	var b strings.Builder
	b.WriteString(d.Output)
	b.WriteByte(':')
	for _, in := range d.Inputs {
		b.WriteByte(' ')
		b.WriteString(in)
	}
	b.WriteByte('\n')
	return []byte(b.String())
}
