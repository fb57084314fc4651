/*
 * Copyright 2025 tomoncle.
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
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var silentQueries atomic.Bool

// EnableBunSqlSilent mutes QueryHook output, e.g. while migrations run.
func EnableBunSqlSilent(b bool) {
	silentQueries.Store(b)
}

var (
	selectColor = color.New(color.FgGreen)
	insertColor = color.New(color.FgBlue)
	updateColor = color.New(color.FgYellow)
	deleteColor = color.New(color.FgMagenta)
	otherColor  = color.New(color.FgRed)
	errorColor  = color.New(color.BgRed, color.FgHiWhite)
	tagColor    = color.New(color.FgCyan)
)

// QueryHook prints every query with its duration, colored by operation.
// Unless Verbose is set only failed queries are printed; sql.ErrNoRows is
// not treated as a failure.
type QueryHook struct {
	Verbose bool
	Writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if silentQueries.Load() || h.Writer == nil {
		return
	}
	failed := event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) && !errors.Is(event.Err, sql.ErrTxDone)
	if !h.Verbose && !failed {
		return
	}

	now := time.Now()
	line := fmt.Sprintf("%s %s %12s  %s",
		now.Format("2006-01-02 15:04:05.000"),
		tagColor.Sprint("[BUN]"),
		now.Sub(event.StartTime).Round(time.Microsecond),
		operationColor(event.Operation()).Sprint(event.Query),
	)
	if failed {
		line += "\t" + errorColor.Sprintf(" %T: %v ", event.Err, event.Err)
	}
	_, _ = fmt.Fprintln(h.Writer, line)
}

func operationColor(op string) *color.Color {
	switch op {
	case "SELECT":
		return selectColor
	case "INSERT":
		return insertColor
	case "UPDATE":
		return updateColor
	case "DELETE":
		return deleteColor
	default:
		return otherColor
	}
}

// slowQueryHook logs a warning for successful queries slower than slowTime.
type slowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil || h.logger == nil {
		return
	}
	if d := time.Since(event.StartTime); d > h.slowTime {
		h.logger.Warn("Database slow query detected",
			"duration", d,
			"slow_threshold", h.slowTime,
			"query", event.Query,
		)
	}
}
