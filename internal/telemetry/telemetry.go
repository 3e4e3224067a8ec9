/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry provides a small, privacy-respecting, opt-in sender for
// anonymous editor usage events and optional crash uploads. Events carry
// counts and kinds only, never document text or image references.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	applog "gostoryboard/internal/log"
	"gostoryboard/internal/version"
)

// Editor event names.
const (
	PanelCreated    = "panel_created"
	PanelDeleted    = "panel_deleted"
	PanelReordered  = "panel_reordered"
	PanelMoved      = "panel_moved"
	BubbleAdded     = "bubble_added"
	BubbleDeleted   = "bubble_deleted"
	ImageSet        = "image_set"
	ImageCleared    = "image_cleared"
	ElementMoved    = "element_moved"
	ElementResized  = "element_resized"
	ReorderCanceled = "reorder_canceled"
	Undo            = "undo"
	Redo            = "redo"
)

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt-in and disabled by default.
//
// Environment variables (read by FromEnv):
// - STB_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - STB_TELEMETRY_URL: URL to POST JSON events to
// - STB_CRASH_UPLOAD_URL: URL to POST crash reports to
// - STB_TELEMETRY_TIMEOUT_MS: optional request timeout, default 1500ms
// - STB_TELEMETRY_DEBUG: if set, logs event send attempts
// - STB_TELEMETRY_RATE: max events uploaded per minute, default 60
//
// If no URLs are set, events are only tallied locally, even if opt-in is true.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
	// EventsPerMinute caps uploads; events over the cap are tallied but not sent.
	EventsPerMinute int
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("STB_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("STB_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("STB_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("STB_TELEMETRY_DEBUG") != "",
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("STB_TELEMETRY_RATE"))); err == nil && n > 0 {
		cfg.EventsPerMinute = n
	}
	if ms := strings.TrimSpace(os.Getenv("STB_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Recorder is what the editor needs from telemetry.
type Recorder interface {
	Event(name string, props map[string]any)
}

// Nop discards events.
type Nop struct{}

func (Nop) Event(string, map[string]any) {}

// Client is an async sender; it drops events silently on errors and never
// blocks the caller since the queue is bounded. Every event is also tallied
// locally so crash reports can include a usage summary.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan map[string]any
	once   sync.Once
	closed chan struct{}

	limiter *rate.Limiter

	mu      sync.Mutex
	tally   map[string]int
	dropped int
}

// DefaultEventsPerMinute is the upload cap when none is configured.
const DefaultEventsPerMinute = 60

var defaultClient *Client
var defaultOnce sync.Once

// InitDefault installs a default client from env when first used.
func InitDefault() {
	defaultOnce.Do(func() {
		if defaultClient == nil {
			NewDefault(FromEnv())
		}
	})
}

// NewDefault creates and installs the default client with cfg.
func NewDefault(cfg Config) {
	defaultClient = New(cfg)
}

// Default returns the package-level client.
func Default() *Client {
	InitDefault()
	return defaultClient
}

func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
		tally:  make(map[string]int),
	}
	perMin := cfg.EventsPerMinute
	if perMin <= 0 {
		perMin = DefaultEventsPerMinute
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 10)
	go c.loop()
	return c
}

// Enabled reports whether anonymous telemetry is enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether the default client is enabled.
func Enabled() bool { return Default().Enabled() }

// Event counts the event and posts it as JSON if enabled. Safe to call from anywhere.
func (c *Client) Event(name string, props map[string]any) {
	if c == nil || name == "" {
		return
	}
	c.mu.Lock()
	c.tally[name]++
	c.mu.Unlock()
	if !c.Enabled() {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	// props must be non-PII
	maps.Copy(payload, props)
	select {
	case c.q <- payload:
	default:
		// queue full
	}
}

// Event using default client.
func Event(name string, props map[string]any) { Default().Event(name, props) }

// Tally returns a copy of the per-event counts since start.
func (c *Client) Tally() map[string]int {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.tally)
}

// Dropped returns how many events were not sent because of the rate cap.
func (c *Client) Dropped() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(c.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the background goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			if !c.limiter.Allow() {
				c.mu.Lock()
				c.dropped++
				c.mu.Unlock()
				continue
			}
			c.post(c.cfg.EventsURL, "application/json", mustJSON(item), "telemetry event")
		}
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug(what+" failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug(what+" sent", slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts an already serialized crash report to the crash URL if opt-in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", append([]byte(nil), report...), "crash upload")
}

// UploadCrash using default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }
