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

// Package hashstore persists the path->digest mapping that the build
// driver consults to decide whether a file is unchanged since the last
// successful build.
package hashstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// FileName is the on-disk file name of the persisted store, relative
// to a target's build directory.
const FileName = ".hashes.json"

// Store is a path -> hex-digest mapping. The zero value is an empty
// store. Store is not safe for concurrent use; callers that mutate it
// from multiple goroutines must serialize access themselves (the
// orchestrator is the single writer, per the concurrency model).
type Store struct {
	entries map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[string]string)}
}

// Load reads the JSON object at path. Any I/O or parse error yields an
// empty, usable store — loading a hash store is never fatal.
func Load(path string) *Store {
	data, err := os.ReadFile(path)
	if err != nil {
		return New()
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return New()
	}
	if m == nil {
		m = make(map[string]string)
	}
	return &Store{entries: m}
}

// Get returns the stored digest for path and whether it was present.
func (s *Store) Get(path string) (string, bool) {
	v, ok := s.entries[path]
	return v, ok
}

// Set records digest for path.
func (s *Store) Set(path, digest string) {
	if s.entries == nil {
		s.entries = make(map[string]string)
	}
	s.entries[path] = digest
}

// Delete removes path from the store, if present.
func (s *Store) Delete(path string) {
	delete(s.entries, path)
}

// Reset empties the store in place (used by remove-mode, §4.6 step 10).
func (s *Store) Reset() {
	s.entries = make(map[string]string)
}

// Merge copies every entry of other into s, overwriting existing keys.
func (s *Store) Merge(other map[string]string) {
	if s.entries == nil {
		s.entries = make(map[string]string)
	}
	for k, v := range other {
		s.entries[k] = v
	}
}

// Len reports the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// CountByExt returns, for each of the given extensions (without the
// leading dot), the number of stored keys whose extension matches.
// Used to reproduce the load-time summary the original tool printed.
func (s *Store) CountByExt(exts ...string) map[string]int {
	counts := make(map[string]int, len(exts))
	for _, e := range exts {
		counts[e] = 0
	}
	for k := range s.entries {
		ext := strings.TrimPrefix(filepath.Ext(k), ".")
		if _, ok := counts[ext]; ok {
			counts[ext]++
		}
	}
	return counts
}

// Save pretty-prints the store as a sorted-key JSON object at path,
// overwriting any existing file. Go's encoding/json already emits
// map[string]string keys in ascending byte order, so no separate sort
// step is needed before marshaling.
func (s *Store) Save(path string) error {
	if s.entries == nil {
		s.entries = make(map[string]string)
	}
	data, err := json.MarshalIndent(s.entries, "", " ")
	if err != nil {
		return errors.Wrap(err, "hashstore: marshal")
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return errors.Wrapf(err, "hashstore: mkdir for %s", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "hashstore: write %s", path)
	}
	return nil
}

// sortedKeys returns the store's keys in ascending order, giving a
// deterministic iteration order without round-tripping through JSON.
// Keys is its exported form.
func (s *Store) sortedKeys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Keys returns a sorted copy of the store's keys.
func (s *Store) Keys() []string {
	return s.sortedKeys()
}

// ToSlashKey normalizes a path to forward-slash separators, as used
// for the artifact key regardless of host.
func ToSlashKey(path string) string {
	return filepath.ToSlash(path)
}
