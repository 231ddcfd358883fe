/*
 * Copyright 2025 tidegate.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

// QueryHook prints executed statements with per-operation coloring.
// The env var named by envName toggles it at runtime: unset/0 disables,
// any other value enables.
type QueryHook struct {
	envName string
	writer  *os.File
}

var _ bun.QueryHook = (*QueryHook)(nil)

func NewQueryHook(envName string) *QueryHook {
	return &QueryHook{envName: envName, writer: os.Stdout}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if env, ok := os.LookupEnv(h.envName); ok && (env == "" || env == "0") {
		return
	}

	dur := time.Since(event.StartTime)
	args := []interface{}{
		time.Now().Format("2006-01-02 15:04:05.000"),
		color.CyanString("%10s", "[AMBIENT]"),
		fmt.Sprintf("%14s", dur.Round(time.Microsecond)),
		" ", formatOperation(event),
	}
	if event.Err != nil {
		args = append(args, "\t", color.New(color.BgRed).Sprintf(" %s ", event.Err.Error()))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

func formatOperation(event *bun.QueryEvent) string {
	switch event.Operation() {
	case "SELECT":
		return color.GreenString(event.Query)
	case "INSERT":
		return color.BlueString(event.Query)
	case "UPDATE":
		return color.YellowString(event.Query)
	case "DELETE":
		return color.MagentaString(event.Query)
	case "BEGIN", "COMMIT", "ROLLBACK":
		return color.CyanString(event.Query)
	default:
		return color.RedString(event.Query)
	}
}

// SlowQueryHook reports statements slower than the configured threshold.
type SlowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func NewSlowQueryHook(slowTime time.Duration, logger Logger) *SlowQueryHook {
	return &SlowQueryHook{slowTime: slowTime, logger: logger}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	duration := time.Since(event.StartTime)
	if duration > h.slowTime && h.logger != nil {
		h.logger.Warn("Slow query detected",
			"duration", duration,
			"slow_threshold", h.slowTime,
			"query", event.Query,
		)
	}
}

// TxEventHook counts transaction control statements reaching the engine.
// Flattening assertions hang off the Begins count.
type TxEventHook struct {
	mu        sync.Mutex
	begins    int
	commits   int
	rollbacks int
}

var _ bun.QueryHook = (*TxEventHook)(nil)

func NewTxEventHook() *TxEventHook {
	return &TxEventHook{}
}

func (h *TxEventHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *TxEventHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch event.Query {
	case "BEGIN":
		h.begins++
	case "COMMIT":
		h.commits++
	case "ROLLBACK":
		h.rollbacks++
	}
}

func (h *TxEventHook) Begins() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.begins
}

func (h *TxEventHook) Commits() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.commits
}

func (h *TxEventHook) Rollbacks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rollbacks
}

func (h *TxEventHook) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.begins, h.commits, h.rollbacks = 0, 0, 0
}
