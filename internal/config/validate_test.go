/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Editor.ViewScale = 0
	cfg.Editor.Layout = "diagonal"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	fields := make([]string, 0, len(fieldErrs))
	for _, f := range fieldErrs {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"editor.view_scale", "editor.layout", "logging.format"}, fields)
}

func TestValidateCrashDirMustBeDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	cfg := Defaults()
	cfg.General.CrashDir = file
	require.Error(t, cfg.Validate())

	cfg.General.CrashDir = filepath.Join(t.TempDir(), "later")
	require.NoError(t, cfg.Validate())
}

func TestSanitizeRestoresDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.Editor.Layout = "diagonal"
	cfg.Editor.ThemeCatalog = filepath.Join(t.TempDir(), "missing.yaml")
	cfg.Editor.DefaultTheme = "forest"

	got := Sanitize(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, "column", got.Editor.Layout)
	assert.Empty(t, got.Editor.ThemeCatalog)
	assert.Equal(t, "forest", got.Editor.DefaultTheme)
	assert.NoError(t, got.Validate())
}
