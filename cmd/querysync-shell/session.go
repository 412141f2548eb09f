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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"querysync/internal/banner"
	"querysync/internal/compat"
	"querysync/internal/errors"
	"querysync/internal/preview"
	qsql "querysync/internal/sql"
)

// session holds the shell state between lines: the statement being typed
// and the most recently parsed or loaded model.
type session struct {
	out     io.Writer
	color   bool
	preview *preview.Runner

	buf      strings.Builder
	model    qsql.Query
	hasModel bool
}

func newSession(out io.Writer, color bool, runner *preview.Runner) *session {
	return &session{out: out, color: color, preview: runner, model: qsql.NewQuery()}
}

func (s *session) paint(codes, text string) string {
	if !s.color {
		return text
	}
	return codes + text + banner.AnsiReset
}

func (s *session) printError(err error) {
	fmt.Fprintln(s.out, s.paint(banner.AnsiRed, errors.FormatError(err)))
}

// inStatement reports whether a statement is waiting for its terminating
// semicolon.
func (s *session) inStatement() bool {
	return s.buf.Len() > 0
}

// cancel drops a partially typed statement.
func (s *session) cancel() {
	s.buf.Reset()
}

// feed handles one input line and reports whether the shell should exit.
// Backslash commands run immediately; SQL runs once a line ends with ';'.
func (s *session) feed(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	if !s.inStatement() && strings.HasPrefix(input, "\\") {
		return s.command(ctx, input)
	}

	if s.inStatement() {
		s.buf.WriteString(" ")
	}
	s.buf.WriteString(input)
	if !strings.HasSuffix(input, ";") {
		return false
	}

	text := strings.TrimSuffix(s.buf.String(), ";")
	s.buf.Reset()
	s.parse(text)
	return false
}

func (s *session) parse(text string) {
	result, err := qsql.ParseWithDiagnostics(text)
	if err != nil {
		s.printError(err)
		return
	}
	s.model = result.Query
	s.hasModel = true

	fmt.Fprintln(s.out, s.paint(banner.AnsiGreen, qsql.Generate(s.model)))
	for _, d := range result.Diagnostics {
		msg := fmt.Sprintf("warning: %s: %s", d.Clause, d.Message)
		if d.Text != "" {
			msg += fmt.Sprintf(" (%s)", d.Text)
		}
		fmt.Fprintln(s.out, s.paint(banner.AnsiYellow, msg))
	}
}

func (s *session) command(ctx context.Context, input string) bool {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "\\q", "\\quit", "\\exit":
		return true
	case "\\h", "\\help", "\\?":
		s.printHelp()
	case "\\json":
		if s.requireModel() {
			data, err := json.MarshalIndent(s.model, "", "  ")
			if err != nil {
				s.printError(err)
				break
			}
			fmt.Fprintln(s.out, string(data))
		}
	case "\\load":
		s.load(arg)
	case "\\fmt", "\\format":
		if s.requireModel() {
			fmt.Fprintln(s.out, qsql.Format(qsql.Generate(s.model)))
		}
	case "\\validate":
		if s.requireModel() {
			s.validate()
		}
	case "\\check":
		if s.requireModel() {
			s.check()
		}
	case "\\run":
		if s.requireModel() {
			s.run(ctx)
		}
	default:
		s.printError(errors.InvalidRequest("unknown command " + name).WithHint("Type \\h for help"))
	}
	return false
}

func (s *session) requireModel() bool {
	if !s.hasModel {
		fmt.Fprintln(s.out, s.paint(banner.AnsiDim, "No query yet. Type a SELECT statement ending with ';'."))
	}
	return s.hasModel
}

// load replaces the current model with a JSON document.
func (s *session) load(doc string) {
	if doc == "" {
		s.printError(errors.InvalidRequest("\\load needs a JSON model"))
		return
	}
	q := qsql.NewQuery()
	if err := json.Unmarshal([]byte(doc), &q); err != nil {
		s.printError(errors.InvalidRequest("malformed model JSON: " + err.Error()))
		return
	}
	s.model = q
	s.hasModel = true
	fmt.Fprintln(s.out, s.paint(banner.AnsiGreen, qsql.Generate(q)))
}

func (s *session) validate() {
	result := qsql.Validate(s.model)
	if result.Valid {
		fmt.Fprintln(s.out, s.paint(banner.AnsiGreen, "valid"))
		return
	}
	for _, e := range result.Errors {
		fmt.Fprintln(s.out, s.paint(banner.AnsiRed, e))
	}
}

func (s *session) check() {
	report := compat.CheckQuery(s.model)
	if report.Compatible {
		fmt.Fprintln(s.out, s.paint(banner.AnsiGreen, "compatible with MySQL"))
		return
	}
	for _, p := range report.Problems {
		fmt.Fprintln(s.out, s.paint(banner.AnsiRed, p))
	}
}

func (s *session) run(ctx context.Context) {
	if !s.preview.Enabled() {
		s.printError(errors.PreviewDisabled())
		return
	}
	result, err := s.preview.Run(ctx, s.model)
	if err != nil {
		s.printError(err)
		return
	}

	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = formatCell(row[col])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()

	summary := fmt.Sprintf("(%d rows, %.1f ms)", len(result.Rows), result.ElapsedMs)
	if result.Truncated {
		summary = fmt.Sprintf("(first %d rows, %.1f ms)", len(result.Rows), result.ElapsedMs)
	}
	fmt.Fprintln(s.out, s.paint(banner.AnsiDim, summary))
}

func formatCell(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

func (s *session) printHelp() {
	fmt.Fprintln(s.out, s.paint(banner.AnsiBold, "Statements"))
	fmt.Fprintln(s.out, "  SELECT ... ;       parse, keep the model and print the canonical SQL")
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.paint(banner.AnsiBold, "Commands"))
	for _, c := range shellCommands {
		fmt.Fprintf(s.out, "  %-18s %s\n", c.usage, c.help)
	}
}

var shellCommands = []struct {
	name  string
	usage string
	help  string
}{
	{"\\json", "\\json", "print the current model as JSON"},
	{"\\load", "\\load {...}", "load a model from JSON"},
	{"\\fmt", "\\fmt", "print the current query formatted"},
	{"\\validate", "\\validate", "list structural problems of the model"},
	{"\\check", "\\check", "cross-check the SQL against the MySQL grammar"},
	{"\\run", "\\run", "preview the first rows from the sample database"},
	{"\\h", "\\h", "show this help"},
	{"\\q", "\\q", "quit"},
}
