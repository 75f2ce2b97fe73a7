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

// Command depfix reads one or more make-style dependency files and
// rewrites the first one as the canonical form makedeps.Parse/Print
// agree on: line continuations joined, backslashes normalized to
// forward slashes, inputs deduplicated. Given more than one file, their
// input lists are concatenated under the first file's head, which is
// useful when a DEPRULE template invokes the same compiler more than
// once per source and the two depfiles should be reconciled into one.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/torsade/mimk/makedeps"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-o <output>] <depfile.d> [<depfile.d>...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	output := flag.String("o", "", "output file (defaults to rewriting the first input in place if it changed)")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("depfix: expected at least one input file as an argument")
	}

	var merged *makedeps.Deps
	var firstInput []byte
	seen := map[string]bool{}

	for i, arg := range flag.Args() {
		input, err := os.ReadFile(arg)
		if err != nil {
			log.Fatalf("depfix: opening %q: %v", arg, err)
		}

		d, err := makedeps.Parse(arg, bytes.NewReader(input))
		if err != nil {
			log.Fatalf("depfix: parsing %q: %v", arg, err)
		}

		if i == 0 {
			merged = d
			firstInput = input
			for _, in := range d.Inputs {
				seen[in] = true
			}
		} else {
			for _, in := range d.Inputs {
				if !seen[in] {
					seen[in] = true
					merged.Inputs = append(merged.Inputs, in)
				}
			}
		}
	}

	canonical := merged.Print()

	dest := *output
	if dest == "" {
		dest = flag.Arg(0)
	}
	if dest == flag.Arg(0) && bytes.Equal(firstInput, canonical) {
		return
	}
	if err := os.WriteFile(dest, canonical, 0644); err != nil {
		log.Fatalf("depfix: writing %q: %v", dest, err)
	}
}
