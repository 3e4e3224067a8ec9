/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package replay

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"gostoryboard/internal/domain"
	"gostoryboard/internal/editor"
	"gostoryboard/internal/theme"
)

func session(sc *Script) *editor.Session {
	return editor.New(editor.Options{
		IDs:    &domain.Sequence{},
		Themes: theme.Builtin(),
		Rand:   rand.New(rand.NewPCG(3, 4)),
		Layout: sc.HitMode(),
	})
}

func TestDemoScriptPasses(t *testing.T) {
	sc, err := Demo()
	require.NoError(t, err)
	res, err := Run(context.Background(), session(sc), sc)
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Equal(t, len(sc.Steps), res.Steps)
	assert.Equal(t, 4, res.Document.Len())
	require.NoError(t, domain.Validate(res.Document))
}

func TestFailedExpectationIsReported(t *testing.T) {
	sc, err := Parse([]byte(`
name: wrong
steps:
  - {op: create_panel, as: a}
  - {op: create_panel, as: b}
  - op: expect
    expect: {order: [b, a]}
`))
	require.NoError(t, err)
	res, err := Run(context.Background(), session(sc), sc)
	require.ErrorIs(t, err, ErrExpectations)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0], "step 3: order")
}

func TestUnknownAliasesAreStaleIDs(t *testing.T) {
	sc, err := Parse([]byte(`
name: stale
steps:
  - {op: create_panel, as: a}
  - {op: delete_panel, panel: ghost}
  - {op: text, panel: a, bubble: ghost, text: hi}
  - {op: move_down, panel: ghost}
  - op: expect
    expect: {panels: 1}
`))
	require.NoError(t, err)
	_, err = Run(context.Background(), session(sc), sc)
	require.NoError(t, err)
}

func TestGridLayoutScript(t *testing.T) {
	sc, err := Parse([]byte(`
name: grid
layout: grid
steps:
  - {op: create_panel, as: a}
  - {op: create_panel, as: b}
  - {op: create_panel, as: c}
  - {op: create_panel, as: d}
  - {op: layout, columns: 2, width: 100, row: 100, gap: 10}
  - {op: down, on: grip, panel: a, x: 50, y: 50}
  - {op: move, x: 150, y: 150}
  - {op: up}
  - op: expect
    expect: {order: [b, c, d, a]}
`))
	require.NoError(t, err)
	_, err = Run(context.Background(), session(sc), sc)
	require.NoError(t, err)
}

func TestParseRejectsBadScripts(t *testing.T) {
	cases := map[string]string{
		"unknown op":     "steps: [{op: fly}]",
		"missing panel":  "steps: [{op: add_bubble, kind: speech}]",
		"missing bubble": "steps: [{op: text, panel: a}]",
		"bad target":     "steps: [{op: down, on: moon}]",
		"no expect":      "steps: [{op: expect}]",
		"unknown field":  "steps: [{op: up, colour: red}]",
		"no steps":       "name: empty",
		"bad layout":     "layout: spiral\nsteps: [{op: up}]",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: f\nsteps: [{op: create_panel}]\n"), 0o600))
	sc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "f", sc.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunHonoursCancelledContext(t *testing.T) {
	sc, err := Demo()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, session(sc), sc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRecordsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))

	sc, err := Parse([]byte(`
name: traced
steps:
  - {op: create_panel, as: a}
  - op: expect
    expect: {panels: 2}
`))
	require.NoError(t, err)
	_, err = Run(context.Background(), session(sc), sc)
	require.ErrorIs(t, err, ErrExpectations)

	ended := sr.Ended()
	require.Len(t, ended, 3)
	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range ended {
		byName[s.Name()] = s
	}
	root := byName["replay traced"]
	require.NotNil(t, root)
	assert.Equal(t, codes.Error, root.Status().Code)
	assert.Equal(t, codes.Error, byName[OpExpect].Status().Code)
	assert.Equal(t, codes.Unset, byName[OpCreatePanel].Status().Code)
	assert.Equal(t, root.SpanContext().SpanID(), byName[OpCreatePanel].Parent().SpanID())
}
