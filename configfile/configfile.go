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

// Package configfile is a minimal JSON adapter standing in for the
// declarative profile/target loader that spec.md leaves out of scope.
// It reads plain JSON records into buildcfg.Config and buildcfg.Target
// values and does nothing else — no templating, no inheritance beyond
// the one profile-then-target overlay described below.
package configfile

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/torsade/mimk/buildcfg"
)

// DefaultProfileFile is the profile JSON file name used when the
// caller doesn't name one explicitly, mirroring the original tool's
// "-c/--config gcc_release" default.
const DefaultProfileFile = buildcfg.DefaultProfile + ".json"

// profileRecord is the on-disk shape of a compiler profile: a flat
// string map overlaid onto buildcfg.Defaults().
type profileRecord map[string]string

// targetRecord is the on-disk shape of one target declaration.
type targetRecord struct {
	Target   string            `json:"target"`
	SrcDir   string            `json:"src_dir"`
	SrcBase  string            `json:"src_base"`
	SrcFiles []string          `json:"src_files"`
	SrcExt   string            `json:"src_ext"`
	IncExt   string            `json:"inc_ext"`
	DepExt   string            `json:"dep_ext"`
	ObjExt   string            `json:"obj_ext"`
	DepPath  string            `json:"dep_path"`
	ObjPath  string            `json:"obj_path"`
	PreRule  string            `json:"pre_rule"`
	DepRule  string            `json:"dep_rule"`
	SrcRule  string            `json:"src_rule"`
	ObjRule  string            `json:"obj_rule"`
	ExeRule  string            `json:"exe_rule"`
	PstRule  string            `json:"pst_rule"`
	RemRule  string            `json:"rem_rule"`
	Depends  string            `json:"depends"`
	Threads  int               `json:"threads"`
	Extra    map[string]string `json:"extra"`
}

// targetsFile is the on-disk shape of a target-list file.
type targetsFile struct {
	Targets []targetRecord `json:"targets"`
}

// LoadProfile reads a compiler-profile JSON file and overlays it onto
// buildcfg.Defaults(). A missing or malformed profile is a
// ConfigLoadError: fatal before any build work starts (spec.md §7).
func LoadProfile(path string) (buildcfg.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "configfile: ConfigLoadError: reading profile %s", path)
	}
	var rec profileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, "configfile: ConfigLoadError: parsing profile %s", path)
	}
	return buildcfg.Defaults().Overlay(buildcfg.Config(rec)), nil
}

// LoadTargets reads an ordered target-list JSON file. A missing or
// malformed file is a ConfigLoadError.
func LoadTargets(path string) ([]*buildcfg.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "configfile: ConfigLoadError: reading targets %s", path)
	}
	var file targetsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "configfile: ConfigLoadError: parsing targets %s", path)
	}

	targets := make([]*buildcfg.Target, 0, len(file.Targets))
	for _, r := range file.Targets {
		if r.Target == "" {
			return nil, errors.Errorf("configfile: ConfigLoadError: %s: target record missing required \"target\" field", path)
		}
		targets = append(targets, &buildcfg.Target{
			Target:   r.Target,
			SrcDir:   r.SrcDir,
			SrcBase:  r.SrcBase,
			SrcFiles: r.SrcFiles,
			SrcExt:   r.SrcExt,
			IncExt:   r.IncExt,
			DepExt:   r.DepExt,
			ObjExt:   r.ObjExt,
			DepPath:  r.DepPath,
			ObjPath:  r.ObjPath,
			PreRule:  r.PreRule,
			DepRule:  r.DepRule,
			SrcRule:  r.SrcRule,
			ObjRule:  r.ObjRule,
			ExeRule:  r.ExeRule,
			PstRule:  r.PstRule,
			RemRule:  r.RemRule,
			Depends:  r.Depends,
			Threads:  r.Threads,
			Extra:    r.Extra,
		})
	}
	return targets, nil
}
