/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"slices"
	"time"

	applog "gostoryboard/internal/log"
	"gostoryboard/internal/telemetry"
	"gostoryboard/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Summary describes the editor session at the time of a crash.
type Summary struct {
	Session string
	Panels  int
	Bubbles int
	Images  int
	Gesture string
	Reorder bool
	Events  map[string]int
	// Document is the JSON encoded snapshot, dumped so the storyboard can be
	// recovered by hand.
	Document []byte
}

// Source provides a crash summary. The editor session implements it.
type Source interface {
	CrashSummary() Summary
}

// Recover captures a panic, logs an error with stacktrace, writes a report
// into dir (the system temp dir if empty) and exits with code 2.
//
// Usage: defer crash.Recover(dir, session)
func Recover(dir string, src Source) {
	if r := recover(); r != nil {
		handle(dir, src, r)
	}
}

// Guard is Recover for settings that are only known after startup, such as
// a crash dir read from config. Fields are read when the panic happens.
//
// Usage: g := &crash.Guard{}; defer g.Recover()
type Guard struct {
	Dir    string
	Source Source
}

func (g *Guard) Recover() {
	if r := recover(); r != nil {
		handle(g.Dir, g.Source, r)
	}
}

func handle(dir string, src Source, r any) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	var sum *Summary
	if src != nil {
		sum = safeSummary(src)
	}
	reportPath, err := writeReport(dir, sum, r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

// safeSummary guards against the session itself being the thing that broke.
func safeSummary(src Source) (s *Summary) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
		}
	}()
	v := src.CrashSummary()
	return &v
}

func writeReport(dir string, sum *Summary, panicVal any, stack []byte) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create crash dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Go Storyboard Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if sum != nil {
		_, _ = fmt.Fprintf(&buf, "Session: %s\n", sum.Session)
		_, _ = fmt.Fprintf(&buf, "Panels: %d Bubbles: %d Images: %d\n", sum.Panels, sum.Bubbles, sum.Images)
		_, _ = fmt.Fprintf(&buf, "Gesture: %s Reorder armed: %t\n", sum.Gesture, sum.Reorder)
		names := make([]string, 0, len(sum.Events))
		for k := range sum.Events {
			names = append(names, k)
		}
		slices.Sort(names)
		for _, k := range names {
			_, _ = fmt.Fprintf(&buf, "Event %s: %d\n", k, sum.Events[k])
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))
	// Uploads exclude the document; it may contain user text.
	upload := slices.Clone(buf.Bytes())
	if sum != nil && len(sum.Document) > 0 {
		_, _ = fmt.Fprintf(&buf, "Document:\n%s\n", sum.Document)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	telemetry.UploadCrash(upload)
	return path, nil
}
