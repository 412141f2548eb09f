/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
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

/*
Package preview runs query models against a sample SQLite database.

Preview Overview:
=================

The editor shows the first rows a query returns while the user builds it.
Run validates the model, generates SQL, caps LIMIT at the configured row
limit and executes the statement with a timeout. The database is opened
read-only; the runner never writes.

Results carry the generated SQL next to the rows so the caller can show
exactly what ran.
*/
package preview

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"querysync/internal/errors"
	"querysync/internal/logging"
	qsql "querysync/internal/sql"
)

var logger = logging.NewLogger("preview")

// Options configure a Runner.
type Options struct {
	RowLimit int
	Timeout  time.Duration
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{RowLimit: 100, Timeout: 5 * time.Second}
}

// Result is the outcome of a preview run.
type Result struct {
	SQL       string                   `json:"sql"`
	Columns   []string                 `json:"columns"`
	Rows      []map[string]interface{} `json:"rows"`
	Truncated bool                     `json:"truncated"`
	ElapsedMs float64                  `json:"elapsed_ms"`
}

// Runner executes previews. A nil *Runner is valid and reports that
// preview is disabled.
type Runner struct {
	db   *sql.DB
	opts Options
}

// Open opens the SQLite database at path read-only.
func Open(path string, opts Options) (*Runner, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.PreviewDisabled()
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_query_only=true", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.PreviewFailed(err)
	}
	r := NewRunner(db, opts)
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Preview database opened", "path", path, "row_limit", r.opts.RowLimit)
	return r, nil
}

// NewRunner wraps an open database. Zero options take their defaults.
func NewRunner(db *sql.DB, opts Options) *Runner {
	def := DefaultOptions()
	if opts.RowLimit <= 0 {
		opts.RowLimit = def.RowLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	return &Runner{db: db, opts: opts}
}

// Enabled reports whether r has a database.
func (r *Runner) Enabled() bool {
	return r != nil && r.db != nil
}

// Ping checks the database connection.
func (r *Runner) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return errors.PreviewDisabled()
	}
	if err := r.db.PingContext(ctx); err != nil {
		return errors.PreviewFailed(err)
	}
	return nil
}

// Close closes the database.
func (r *Runner) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.db.Close()
}

// Cap returns a copy of q whose LIMIT does not exceed the row limit, and
// whether the limit was lowered or added.
func (r *Runner) Cap(q qsql.Query) (qsql.Query, bool) {
	capped := q.Clone()
	if capped.Limit == 0 || capped.Limit > r.opts.RowLimit {
		capped.Limit = r.opts.RowLimit
		return capped, true
	}
	return capped, false
}

// Run executes q and returns at most the configured number of rows.
func (r *Runner) Run(ctx context.Context, q qsql.Query) (*Result, error) {
	if !r.Enabled() {
		return nil, errors.PreviewDisabled()
	}

	if v := qsql.Validate(q); !v.Valid {
		return nil, errors.InvalidQuery(v.Errors)
	}

	capped, lowered := r.Cap(q)
	text := qsql.Generate(capped)

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, text)
	if err != nil {
		logger.Warn("Preview query failed", "sql", text, "error", err)
		return nil, errors.PreviewFailed(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.PreviewFailed(err)
	}

	result := &Result{
		SQL:     text,
		Columns: columns,
		Rows:    []map[string]interface{}{},
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.PreviewFailed(err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = jsonValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.PreviewFailed(err)
	}

	result.Truncated = lowered && len(result.Rows) == capped.Limit
	result.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000.0

	logger.Debug("Preview complete", "sql", text, "rows", len(result.Rows), "elapsed_ms", result.ElapsedMs)
	return result, nil
}

// jsonValue turns driver values into values encoding/json renders sensibly.
func jsonValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return val
	}
}
