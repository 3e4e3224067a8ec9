/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"gostoryboard/internal/config"
	"gostoryboard/internal/crash"
	"gostoryboard/internal/editor"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/telemetry"
	"gostoryboard/internal/trace"
	"gostoryboard/internal/version"
)

// usageError marks bad invocations; they exit with code 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// live lets the deferred crash handler see the session created later on.
type live struct{ s *editor.Session }

func (l *live) CrashSummary() crash.Summary {
	if l.s == nil {
		return crash.Summary{}
	}
	return l.s.CrashSummary()
}

// flags holds the global options.
type flags struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
}

// env is what every command needs once Before has run.
type env struct {
	flags    flags
	cfg      config.AppConfig
	cur      *live
	guard    *crash.Guard
	shutdown trace.Shutdown
	// setup is false in tests, which inject cfg directly.
	setup bool
}

func main() {
	cur := &live{}
	e := &env{cur: cur, guard: &crash.Guard{Source: cur}, setup: true}
	defer e.guard.Recover()

	err := newApp(e, os.Stdout).Run(context.Background(), os.Args)
	var ue usageError
	switch {
	case errors.As(err, &ue):
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	case err != nil:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp(e *env, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "gostoryboard",
		Usage:     "Storyboard panel editor",
		UsageText: "gostoryboard [global options] command [command options]",
		Description: `Go Storyboard edits comic-style storyboards: ordered panels with a background
theme, text bubbles and an optional image.

Run 'gostoryboard ui' to open the editor (build with -tags fyne).
Run 'gostoryboard demo' to replay the built-in walkthrough headless.`,
		Version:   version.String(),
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars(config.EnvConfigPath),
				Destination: &e.flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Destination: &e.flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "also write JSON logs to this file (rotated)",
				Destination: &e.flags.LogFile,
			},
		},
		Before: e.before,
		After:  e.after,
		Commands: []*cli.Command{
			{
				Name:   "version",
				Usage:  "Show version",
				Action: e.version,
			},
			{
				Name:   "themes",
				Usage:  "List background themes",
				Action: e.themes,
			},
			{
				Name:   "demo",
				Usage:  "Replay the built-in walkthrough",
				Action: e.demo,
			},
			{
				Name:      "replay",
				Usage:     "Replay event scripts and check their expectations",
				ArgsUsage: "<file|glob>...",
				Description: `Each argument is a script path or a glob such as 'scripts/**/*.yaml'.
Scripts run in order, each against a fresh session.`,
				Action: e.replay,
			},
			{
				Name:   "ui",
				Usage:  "Launch desktop UI (build with -tags fyne for full UI)",
				Action: e.ui,
			},
		},
	}
}

func (e *env) before(ctx context.Context, c *cli.Command) (context.Context, error) {
	if !e.setup {
		return ctx, nil
	}
	cfg, cfgErr := config.LoadFrom(e.flags.ConfigPath)
	if e.flags.LogLevel != "" {
		cfg.Logging.Level = e.flags.LogLevel
	}
	if e.flags.LogFile != "" {
		cfg.Logging.File = e.flags.LogFile
	}
	applog.Init(logOptions(cfg.Logging))
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}
	e.cfg = config.Sanitize(cfg, l)
	e.guard.Dir = e.cfg.General.CrashDir

	telemetry.NewDefault(telemetryConfig(e.cfg.General))
	shutdown, err := trace.Setup(ctx)
	if err != nil {
		l.Warn("tracing disabled", slog.Any("err", err))
	}
	e.shutdown = shutdown
	l.Debug("start", slog.String("command", c.Args().First()))
	return ctx, nil
}

func (e *env) after(ctx context.Context, _ *cli.Command) error {
	if !e.setup {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	telemetry.Default().Flush(ctx)
	telemetry.Default().Close()
	if e.shutdown != nil {
		if err := e.shutdown(ctx); err != nil {
			applog.WithComponent("cli").Warn("trace flush failed", slog.Any("err", err))
		}
	}
	return nil
}

func logOptions(c config.LoggingConfig) applog.Options {
	return applog.Options{Level: c.Level, Format: c.Format, AddSource: c.Source, File: c.File}
}

func telemetryConfig(g config.GeneralConfig) telemetry.Config {
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || g.TelemetryOptIn
	return tc
}
