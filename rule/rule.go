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

// Package rule evaluates rule templates against a configuration
// mapping, substituting $NAME and ${NAME} placeholders.
//
// Substitution is a pure function over a string->string mapping: it
// does not consult a process environment, and it never re-scans its
// own output, so expanded values cannot themselves introduce further
// placeholders.
package rule

import "strings"

// Eval substitutes $NAME or ${NAME} placeholders in template with
// values from vars. A placeholder naming a key absent from vars is
// left intact, byte for byte. An empty template evaluates to "".
func Eval(template string, vars map[string]string) string {
	if template == "" {
		return ""
	}

	var out strings.Builder
	out.Grow(len(template))

	for i := 0; i < len(template); {
		c := template[i]
		if c != '$' {
			out.WriteByte(c)
			i++
			continue
		}

		// Lone trailing '$'.
		if i+1 >= len(template) {
			out.WriteByte(c)
			i++
			continue
		}

		if template[i+1] == '{' {
			end := strings.IndexByte(template[i+2:], '}')
			if end == -1 {
				// Unterminated ${...}; treat literally.
				out.WriteByte(c)
				i++
				continue
			}
			name := template[i+2 : i+2+end]
			if val, ok := vars[name]; ok {
				out.WriteString(val)
			} else {
				out.WriteString(template[i : i+2+end+1])
			}
			i += 2 + end + 1
			continue
		}

		name, width := scanName(template[i+1:])
		if name == "" {
			out.WriteByte(c)
			i++
			continue
		}
		if val, ok := vars[name]; ok {
			out.WriteString(val)
		} else {
			out.WriteString(template[i : i+1+width])
		}
		i += 1 + width
	}

	return out.String()
}

// scanName reads a bare $NAME identifier from the start of s, returning
// the name and the number of bytes it consumed.
func scanName(s string) (string, int) {
	i := 0
	for i < len(s) && isNameByte(s[i]) {
		i++
	}
	return s[:i], i
}

func isNameByte(b byte) bool {
	return b == '_' ||
		(b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9')
}
