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

// Package buildcfg holds the plain data types the rest of the driver
// operates on: the configuration mapping and the target record. Both
// are produced by an external loader (see package configfile) and
// consumed here as already-materialized values.
package buildcfg

// DefaultProfile is the compiler-profile name baked in when a target
// doesn't set BUILD and no profile overrides it either, mirroring the
// original tool's "-c/--config gcc_release" default.
const DefaultProfile = "gcc_release"

// Defaults returns the seed configuration every build starts from,
// before any profile, module, or per-target overlay is applied.
func Defaults() Config {
	return Config{
		"DEPPATH": "dep",
		"OBJPATH": "obj",
		"SRCEXT":  "c",
		"INCEXT":  "h",
		"DEPEXT":  "d",
		"OBJEXT":  "o",
		"BUILD":   DefaultProfile,
	}
}

// Config is a mapping from uppercase string keys to string values. It
// is seeded with Defaults(), then overlaid in order by the compiler
// profile, the target module, and finally per-target overrides.
type Config map[string]string

// Clone returns an independent copy so workers can augment their own
// copy (SRC_PATH, DEP_PATH, OBJ_PATH, ...) without racing each other or
// mutating the orchestrator's snapshot.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Overlay copies every key of other into c, overwriting existing keys.
// Returns c for chaining.
func (c Config) Overlay(other Config) Config {
	for k, v := range other {
		c[k] = v
	}
	return c
}

// Target is one declared build unit.
type Target struct {
	// Target is the artifact name, relative to the build directory.
	// The only required field.
	Target string

	// SrcDir holds one or more whitespace-separated source
	// directories, used for directory-scan discovery.
	SrcDir string
	// SrcBase is an optional path prefix prepended to SrcDir entries
	// during discovery. Its length+1 is stripped from object paths
	// when forming OBJ_LIST_REL.
	SrcBase string

	// SrcFiles, when non-empty, is an explicit source list overriding
	// directory-scan discovery. A missing file fails the target.
	SrcFiles []string

	// Per-target overrides of the corresponding Config keys.
	SrcExt  string
	IncExt  string
	DepExt  string
	ObjExt  string
	DepPath string
	ObjPath string

	// Rule templates, see package rule.
	PreRule  string
	DepRule  string
	SrcRule  string
	ObjRule  string
	ExeRule  string
	PstRule  string
	RemRule  string
	Depends  string

	// Threads is an optional per-target worker cap; 0 means "use the
	// scheduler's default".
	Threads int

	// Extra carries any TARGET*-prefixed keys the configuration
	// loader didn't map to a named field above, merged into Config
	// verbatim under their original key (see §3: "every TARGET* key
	// from the target record").
	Extra map[string]string
}

// overrideKeys returns the per-target Config overrides this target
// declares (only the non-empty ones), keyed the same as Config.
func (t *Target) overrideKeys() Config {
	out := Config{}
	if t.SrcExt != "" {
		out["SRCEXT"] = t.SrcExt
	}
	if t.IncExt != "" {
		out["INCEXT"] = t.IncExt
	}
	if t.DepExt != "" {
		out["DEPEXT"] = t.DepExt
	}
	if t.ObjExt != "" {
		out["OBJEXT"] = t.ObjExt
	}
	if t.DepPath != "" {
		out["DEPPATH"] = t.DepPath
	}
	if t.ObjPath != "" {
		out["OBJPATH"] = t.ObjPath
	}
	return out
}

// Snapshot returns a fresh Config for this target: the given base
// overlaid with this target's per-target extension/path overrides,
// its TARGET* keys, and its SRCDIR/SRCBASE (§4.6 step 1 and 3).
func (t *Target) Snapshot(base Config) Config {
	cfg := base.Clone().Overlay(t.overrideKeys())
	cfg["TARGET"] = t.Target
	cfg["SRCDIR"] = t.SrcDir
	cfg["SRCBASE"] = t.SrcBase
	for k, v := range t.Extra {
		cfg[k] = v
	}
	return cfg
}
