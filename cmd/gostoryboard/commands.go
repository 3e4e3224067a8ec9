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
	"log/slog"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"gostoryboard/internal/config"
	"gostoryboard/internal/domain"
	"gostoryboard/internal/editor"
	"gostoryboard/internal/history"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/reorder"
	"gostoryboard/internal/replay"
	"gostoryboard/internal/telemetry"
	"gostoryboard/internal/theme"
	"gostoryboard/internal/ui"
	"gostoryboard/internal/version"
)

var (
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

func (e *env) version(_ context.Context, c *cli.Command) error {
	out := c.Root().Writer
	fmt.Fprintln(out, "Go Storyboard")
	fmt.Fprintln(out, version.String())
	return nil
}

func (e *env) themes(_ context.Context, c *cli.Command) error {
	cat, err := loadThemes(e.cfg.Editor)
	if err != nil {
		return err
	}
	out := c.Root().Writer
	def := cat.Default().ID
	for _, t := range cat.All() {
		mark := " "
		if t.ID == def {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %-10s %s\n", mark, t.ID, t.Name)
	}
	return nil
}

func (e *env) demo(ctx context.Context, c *cli.Command) error {
	sc, err := replay.Demo()
	if err != nil {
		return err
	}
	ok, err := e.runScript(ctx, c, sc)
	if err != nil {
		return err
	}
	if !ok {
		return replay.ErrExpectations
	}
	return nil
}

func (e *env) replay(ctx context.Context, c *cli.Command) error {
	if c.NArg() == 0 {
		return usageError{"replay requires at least one <file|glob>"}
	}
	paths, err := expand(c.Args().Slice())
	if err != nil {
		return err
	}
	l := applog.WithComponent("cli")
	failed := 0
	for _, p := range paths {
		l.Info("replay script", slog.String("path", p))
		sc, err := replay.Load(p)
		if err != nil {
			return err
		}
		ok, err := e.runScript(ctx, c, sc)
		if err != nil {
			return err
		}
		if !ok {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scripts: %w", failed, len(paths), replay.ErrExpectations)
	}
	return nil
}

// expand resolves glob arguments. Arguments without matches are kept as
// literal paths so a missing file is reported by name.
func expand(args []string) ([]string, error) {
	var out []string
	for _, a := range args {
		if !doublestar.ValidatePathPattern(a) {
			return nil, usageError{fmt.Sprintf("bad pattern %q", a)}
		}
		matches, err := doublestar.FilepathGlob(a, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", a, err)
		}
		if len(matches) == 0 {
			abs, _ := filepath.Abs(a)
			out = append(out, abs)
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

// runScript replays one script in a fresh session and prints a summary. It
// reports false when expectations failed.
func (e *env) runScript(ctx context.Context, c *cli.Command, sc *replay.Script) (bool, error) {
	cat, err := loadThemes(e.cfg.Editor)
	if err != nil {
		return false, err
	}
	mode := hitMode(e.cfg.Editor.Layout)
	if sc.Layout != "" {
		mode = sc.HitMode()
	}
	e.cur.s = editor.New(sessionOptions(e.cfg, cat, mode))

	out := c.Root().Writer
	res, err := replay.Run(ctx, e.cur.s, sc)
	switch {
	case errors.Is(err, replay.ErrExpectations):
		fmt.Fprintf(out, "%s %s: %d steps, %d failed expectations\n",
			failStyle.Render("FAIL"), sc.Name, res.Steps, len(res.Failures))
		for _, f := range res.Failures {
			fmt.Fprintln(out, "  -", f)
		}
		return false, nil
	case err != nil:
		return false, err
	}
	fmt.Fprintf(out, "%s %s: %d steps, all expectations met\n", passStyle.Render("PASS"), sc.Name, res.Steps)
	for _, p := range res.Document.Panels {
		img := "no image"
		if p.Image != nil {
			img = "image " + string(p.Image.Source)
		}
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("  %d. %-8s %d bubbles, %s", p.Order+1, p.BackgroundThemeID, len(p.Bubbles), img)))
	}
	return true, nil
}

func (e *env) ui(_ context.Context, _ *cli.Command) error {
	cat, err := loadThemes(e.cfg.Editor)
	if err != nil {
		return err
	}
	e.cur.s = editor.New(sessionOptions(e.cfg, cat, hitMode(e.cfg.Editor.Layout)))
	return ui.Run(ui.Options{Session: e.cur.s, Themes: cat, Scale: e.cfg.Editor.ViewScale})
}

// loadThemes returns the configured catalog with the configured default.
func loadThemes(ec config.EditorConfig) (*theme.Catalog, error) {
	cat := theme.Builtin()
	if ec.ThemeCatalog != "" {
		c, err := theme.Load(ec.ThemeCatalog)
		if err != nil {
			return nil, err
		}
		cat = c
	}
	if ec.DefaultTheme == "" || !cat.Has(ec.DefaultTheme) {
		return cat, nil
	}
	return theme.New(ec.DefaultTheme, cat.All())
}

func hitMode(layout string) reorder.HitMode {
	if layout == "grid" {
		return reorder.Grid
	}
	return reorder.Column
}

func sessionOptions(cfg config.AppConfig, cat *theme.Catalog, mode reorder.HitMode) editor.Options {
	pl := cfg.Editor.Placement
	return editor.Options{
		Themes: cat,
		Placement: domain.Placement{
			MinX: pl.MinX, MaxX: pl.MaxX,
			MinY: pl.MinY, MaxY: pl.MaxY,
		},
		ViewScale: cfg.Editor.ViewScale,
		Layout:    mode,
		History: history.Config{
			MaxBytes:    cfg.Editor.Undo.MaxBytes,
			MaxDepth:    cfg.Editor.Undo.MaxDepth,
			MinInterval: cfg.Editor.Undo.CoalesceInterval(),
		},
		Telemetry: telemetry.Default(),
	}
}
