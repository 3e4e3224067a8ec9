/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hay-kot/criterio"
)

// Validate reports every field that would make the editor misbehave. Load
// never fails on these; callers decide whether to fall back to defaults.
func (c AppConfig) Validate() error {
	return criterio.ValidateStruct(
		c.Editor.validate(),
		c.Logging.validate(),
		criterio.Run("general.crash_dir", c.General.CrashDir, dirOrMissing),
	)
}

func (e EditorConfig) validate() error {
	var errs criterio.FieldErrorsBuilder
	if e.ViewScale <= 0 {
		errs = errs.Append("editor.view_scale", fmt.Errorf("must be positive, got %v", e.ViewScale))
	}
	switch e.Layout {
	case "", "column", "grid":
	default:
		errs = errs.Append("editor.layout", fmt.Errorf("unknown layout %q (want column or grid)", e.Layout))
	}
	if p := e.Placement; p.MinX < 0 || p.MinY < 0 || p.MaxX <= p.MinX || p.MaxY <= p.MinY {
		errs = errs.Append("editor.placement", fmt.Errorf("empty or negative window %+v", p))
	}
	if e.Undo.MaxBytes < 0 || e.Undo.MaxDepth < 0 || e.Undo.CoalesceMs < 0 {
		errs = errs.Append("editor.undo", errors.New("caps must not be negative"))
	}
	if e.ThemeCatalog != "" {
		if _, err := os.Stat(e.ThemeCatalog); err != nil {
			errs = errs.Append("editor.theme_catalog", fmt.Errorf("cannot access: %w", err))
		}
	}
	return errs.ToError()
}

func (l LoggingConfig) validate() error {
	var errs criterio.FieldErrorsBuilder
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = errs.Append("logging.level", fmt.Errorf("unknown level %q", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "", "console", "json":
	default:
		errs = errs.Append("logging.format", fmt.Errorf("unknown format %q", l.Format))
	}
	return errs.ToError()
}

func dirOrMissing(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // created on first crash
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return errors.New("exists but is not a directory")
	}
	return nil
}

// Sanitize replaces invalid fields with their defaults and logs each one.
func Sanitize(cfg AppConfig, l *slog.Logger) AppConfig {
	err := cfg.Validate()
	if err == nil {
		return cfg
	}
	var fe criterio.FieldErrors
	if !errors.As(err, &fe) {
		return cfg
	}
	def := Defaults()
	for _, f := range fe {
		l.Warn("invalid config value, using default", slog.String("field", f.Field), slog.Any("err", f.Err))
		switch f.Field {
		case "editor.view_scale":
			cfg.Editor.ViewScale = def.Editor.ViewScale
		case "editor.layout":
			cfg.Editor.Layout = def.Editor.Layout
		case "editor.placement":
			cfg.Editor.Placement = def.Editor.Placement
		case "editor.undo":
			cfg.Editor.Undo = def.Editor.Undo
		case "editor.theme_catalog":
			cfg.Editor.ThemeCatalog = ""
		case "logging.level":
			cfg.Logging.Level = def.Logging.Level
		case "logging.format":
			cfg.Logging.Format = def.Logging.Format
		case "general.crash_dir":
			cfg.General.CrashDir = ""
		}
	}
	return cfg
}
