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

package makedeps

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	d, err := Parse("test.d", strings.NewReader("main.o: main.c main.h util.h"))
	require.NoError(t, err)
	require.Equal(t, "main.o", d.Output)
	require.Equal(t, []string{"main.c", "main.h", "util.h"}, d.Inputs)
}

func TestParseContinuation(t *testing.T) {
	d, err := Parse("test.d", strings.NewReader("foo.o: \\\n  bar.h baz.h\n"))
	require.NoError(t, err)
	require.Equal(t, "foo.o", d.Output)
	require.Equal(t, []string{"bar.h", "baz.h"}, d.Inputs)
}

func TestParseCarriageReturnContinuation(t *testing.T) {
	d, err := Parse("test.d", strings.NewReader("foo.o: \\\r\n  bar.h baz.h\r\n"))
	require.NoError(t, err)
	require.Equal(t, "foo.o", d.Output)
	require.Equal(t, []string{"bar.h", "baz.h"}, d.Inputs)
}

func TestParseBackslashesNormalizedToSlash(t *testing.T) {
	d, err := Parse("test.d", strings.NewReader(`proj\dir\foo.o: proj\dir\foo.c proj\dir\foo.h`))
	require.NoError(t, err)
	require.Equal(t, "proj/dir/foo.o", d.Output)
	require.Equal(t, []string{"proj/dir/foo.c", "proj/dir/foo.h"}, d.Inputs)
}

func TestParseDeduplicatesPreservingFirstOccurrence(t *testing.T) {
	d, err := Parse("test.d", strings.NewReader("a.o: a.c h.h h.h a.c"))
	require.NoError(t, err)
	require.Equal(t, []string{"a.c", "h.h"}, d.Inputs)
}

func TestParseNoColonIsError(t *testing.T) {
	_, err := Parse("test.d", strings.NewReader("a.o a.c"))
	require.Error(t, err)
}

func TestCheckHeadMatchesByBasename(t *testing.T) {
	d := &Deps{Output: "a.o"}
	require.NoError(t, CheckHead(d, "build/obj/a.o"))
}

func TestCheckHeadMismatchIsFatal(t *testing.T) {
	d := &Deps{Output: "a.o"}
	err := CheckHead(d, "build/obj/b.o")
	require.Error(t, err)
}

func TestParsePrintRoundTrip(t *testing.T) {
	d, err := Parse("test.d", strings.NewReader("a.o: a.c h.h"))
	require.NoError(t, err)

	d2, err := Parse("test.d", strings.NewReader(string(d.Print())))
	require.NoError(t, err)
	require.Equal(t, d.Output, d2.Output)
	require.Equal(t, d.Inputs, d2.Inputs)
}
