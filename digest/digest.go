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

// Package digest computes content digests of files on disk and reports
// a tri-state result so callers can distinguish a missing file from a
// transient I/O failure.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// chunkSize is the read buffer size used while streaming a file's
// contents into the hash. Matches the block size used by the original
// mimk tool's sha256file helper.
const chunkSize = 4096

// Status classifies the outcome of a Of call.
type Status int

const (
	// StatusOK means Hex contains a valid digest.
	StatusOK Status = iota
	// StatusMissing means neither the path nor its fallback-extension
	// variant exists as a regular file.
	StatusMissing
	// StatusError means the file exists but could not be read.
	StatusError
)

// Result is the outcome of digesting one file.
type Result struct {
	Status Status
	// Hex is the 64-character lowercase hex SHA-256 digest, set only
	// when Status == StatusOK.
	Hex string
	// Err carries the underlying I/O error when Status == StatusError.
	Err error
}

// Of streams the content of path through SHA-256 and returns its hex
// digest. If path does not name a regular file and fallbackExt is
// non-empty, path+fallbackExt is tried instead (used to tolerate
// platform-specific artifact suffixes such as ".exe"). An empty
// fallbackExt disables the fallback.
func Of(path string, fallbackExt string) Result {
	resolved := path
	if !isRegularFile(resolved) && fallbackExt != "" {
		withExt := path + fallbackExt
		if isRegularFile(withExt) {
			resolved = withExt
		}
	}

	f, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Status: StatusMissing}
		}
		return Result{Status: StatusError, Err: errors.Wrapf(err, "digest: open %s", resolved)}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{Status: StatusError, Err: errors.Wrapf(err, "digest: stat %s", resolved)}
	}
	if !info.Mode().IsRegular() {
		return Result{Status: StatusMissing}
	}

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return Result{Status: StatusError, Err: errors.Wrapf(err, "digest: read %s", resolved)}
	}

	return Result{Status: StatusOK, Hex: hex.EncodeToString(h.Sum(nil))}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
