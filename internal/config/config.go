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
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
	// CrashDir receives crash reports; empty means the system temp dir.
	CrashDir string `yaml:"crash_dir"`
}

// PlacementConfig is the window new bubbles are randomly placed in.
type PlacementConfig struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`
}

type UndoConfig struct {
	MaxBytes   int `yaml:"max_bytes"`
	MaxDepth   int `yaml:"max_depth"`
	CoalesceMs int `yaml:"coalesce_ms"`
}

type EditorConfig struct {
	DefaultTheme string `yaml:"default_theme"`
	// ThemeCatalog is an optional YAML/JSON theme catalog replacing the built-ins.
	ThemeCatalog string          `yaml:"theme_catalog"`
	ViewScale    float64         `yaml:"view_scale"`
	Layout       string          `yaml:"layout"` // "column" | "grid"
	Placement    PlacementConfig `yaml:"placement"`
	Undo         UndoConfig      `yaml:"undo"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Editor: EditorConfig{
			DefaultTheme: "city",
			ViewScale:    1,
			Layout:       "column",
			Placement:    PlacementConfig{MinX: 50, MaxX: 250, MinY: 50, MaxY: 200},
			Undo:         UndoConfig{MaxBytes: 16 * 1024 * 1024, MaxDepth: 200, CoalesceMs: 250},
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "STB_CONFIG"
	EnvTelemetryOptIn = "STB_TELEMETRY_OPT_IN"
	EnvCrashDir       = "STB_CRASH_DIR"
	EnvDefaultTheme   = "STB_DEFAULT_THEME"
	EnvThemeCatalog   = "STB_THEME_CATALOG"
	EnvViewScale      = "STB_VIEW_SCALE"
	EnvLayout         = "STB_LAYOUT"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "STB_LOG_LEVEL"
	EnvLogFormat = "STB_LOG_FORMAT"
	EnvLogSource = "STB_LOG_SOURCE"
	EnvLogFile   = "STB_LOG_FILE"
)

// ConfigPath returns the per-user config file path, or STB_CONFIG if set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoStoryboard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoStoryboard")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "gostoryboard")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. A missing file is not an error; a malformed one is.
func Load() (AppConfig, error) { return LoadFrom("") }

// LoadFrom is Load with an explicit file; an empty path means ConfigPath.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		p, err := ConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if v := strings.TrimSpace(src.General.CrashDir); v != "" {
		dst.General.CrashDir = v
	}
	// editor
	if v := strings.TrimSpace(src.Editor.DefaultTheme); v != "" {
		dst.Editor.DefaultTheme = v
	}
	if v := strings.TrimSpace(src.Editor.ThemeCatalog); v != "" {
		dst.Editor.ThemeCatalog = v
	}
	if src.Editor.ViewScale > 0 {
		dst.Editor.ViewScale = src.Editor.ViewScale
	}
	if v := strings.ToLower(strings.TrimSpace(src.Editor.Layout)); v != "" {
		dst.Editor.Layout = v
	}
	if p := src.Editor.Placement; p.MaxX > p.MinX && p.MaxY > p.MinY {
		dst.Editor.Placement = p
	}
	if src.Editor.Undo.MaxBytes > 0 {
		dst.Editor.Undo.MaxBytes = src.Editor.Undo.MaxBytes
	}
	if src.Editor.Undo.MaxDepth > 0 {
		dst.Editor.Undo.MaxDepth = src.Editor.Undo.MaxDepth
	}
	if src.Editor.Undo.CoalesceMs > 0 {
		dst.Editor.Undo.CoalesceMs = src.Editor.Undo.CoalesceMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCrashDir)); v != "" {
		cfg.General.CrashDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDefaultTheme)); v != "" {
		cfg.Editor.DefaultTheme = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvThemeCatalog)); v != "" {
		cfg.Editor.ThemeCatalog = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvViewScale)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Editor.ViewScale = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLayout)); v != "" {
		cfg.Editor.Layout = strings.ToLower(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.crash_dir":        EnvCrashDir,
	"editor.default_theme":     EnvDefaultTheme,
	"editor.theme_catalog":     EnvThemeCatalog,
	"editor.view_scale":        EnvViewScale,
	"editor.layout":            EnvLayout,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// CoalesceInterval returns the undo coalescing window.
func (u UndoConfig) CoalesceInterval() time.Duration {
	if u.CoalesceMs <= 0 {
		return time.Duration(Defaults().Editor.Undo.CoalesceMs) * time.Millisecond
	}
	return time.Duration(u.CoalesceMs) * time.Millisecond
}
