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

// Package report is the event/reporting sink the rest of the core
// writes diagnostics and progress through. Concrete rendering (color,
// progress bars) is the caller's business; Sink only classifies and
// forwards structured events, the way the teacher's ui/logger and
// ui/status packages decouple build logic from terminal rendering.
package report

import (
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Severity tags every event, matching §7's enumerated set.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityCommand Severity = "command"
	SeverityUndo    Severity = "undo"
	SeverityWarn    Severity = "warn"
	SeverityError   Severity = "error"
	SeverityRemove  Severity = "remove"
)

// Sink is the concrete event/reporting sink. It is safe for
// concurrent use: multiple scheduler workers may emit through the
// same Sink without interleaving a single event's fields, though
// distinct events from distinct workers are not ordered relative to
// each other (per §4.7, interleaving across workers is acceptable).
type Sink struct {
	mu    sync.Mutex
	log   *logrus.Logger
	Quiet bool
	RunID uuid.UUID
}

// NewSink returns a Sink writing to out. Each Sink is tagged with a
// fresh run id so events from concurrent invocations (e.g. in a test
// suite) can be told apart downstream.
func NewSink(out io.Writer, quiet bool) *Sink {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: false})
	return &Sink{log: log, Quiet: quiet, RunID: uuid.New()}
}

// Default returns a Sink writing to stderr, matching where the
// teacher's build logs land by default.
func Default(quiet bool) *Sink {
	return NewSink(os.Stderr, quiet)
}

// Emit records one event. Quiet suppresses info and command events
// but never warn/error/undo/remove (§7: "Quiet-mode suppresses info
// and command lines but preserves error output").
func (s *Sink) Emit(sev Severity, msg string, fields map[string]interface{}) {
	if s == nil {
		return
	}
	if s.Quiet && (sev == SeverityInfo || sev == SeverityCommand) {
		return
	}

	s.mu.Lock()
	entry := s.log.WithField("severity", string(sev)).WithField("run_id", s.RunID.String())
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	s.mu.Unlock()

	switch sev {
	case SeverityError:
		entry.Error(msg)
	case SeverityWarn:
		entry.Warn(msg)
	default:
		entry.Info(msg)
	}
}

// Infof is shorthand for Emit(SeverityInfo, ...).
func (s *Sink) Infof(msg string, fields map[string]interface{}) {
	s.Emit(SeverityInfo, msg, fields)
}

// Errorf is shorthand for Emit(SeverityError, ...).
func (s *Sink) Errorf(msg string, fields map[string]interface{}) {
	s.Emit(SeverityError, msg, fields)
}

// Progress reports a compile step's position in its target's source
// set. iteration is the submission index, not the completion order
// (§4.7): progress may appear non-monotonic under parallelism, which
// is the documented, accepted behavior.
func (s *Sink) Progress(target string, iteration, total int, name string) {
	s.Emit(SeverityCommand, name, map[string]interface{}{
		"target":    target,
		"iteration": iteration,
		"total":     total,
	})
}
