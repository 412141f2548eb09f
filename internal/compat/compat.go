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
Package compat cross-checks generated SQL against the MySQL grammar.

The translator accepts and produces a small SELECT dialect. Before a query
is handed to a real database it is useful to know whether MySQL would accept
the text, and whether MySQL reads the same tables and select list out of it
as the model holds. Check answers both questions using the vitess parser.

Problems reported:
  - the text does not parse as MySQL
  - the text is not a SELECT
  - the tables MySQL sees differ from the model's FROM and JOIN tables
  - the select list width differs from the model's
*/
package compat

import (
	"fmt"
	"strings"

	"github.com/knocknote/vitess-sqlparser/sqlparser"

	"querysync/internal/logging"
	qsql "querysync/internal/sql"
)

var logger = logging.NewLogger("compat")

// Report is the outcome of a compatibility check.
type Report struct {
	SQL        string   `json:"sql"`
	Compatible bool     `json:"compatible"`
	Problems   []string `json:"problems"`
}

func (r *Report) addProblem(format string, args ...interface{}) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
	r.Compatible = false
}

// CheckQuery generates SQL for q and checks it.
func CheckQuery(q qsql.Query) *Report {
	return Check(qsql.Generate(q), q)
}

// Check parses text with the MySQL grammar and compares what it finds with q.
func Check(text string, q qsql.Query) *Report {
	report := &Report{SQL: text, Compatible: true, Problems: []string{}}
	if strings.TrimSpace(text) == "" {
		report.addProblem("nothing to check: query has no table")
		return report
	}

	stmt, err := sqlparser.Parse(text)
	if err != nil {
		logger.Debug("MySQL grammar rejected query", "sql", text, "error", err)
		report.addProblem("MySQL parse error: %v", err)
		return report
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		report.addProblem("not a SELECT statement (%T)", stmt)
		return report
	}

	var seen []string
	for _, expr := range sel.From {
		seen = collectTables(expr, seen)
	}
	want := q.Tables()
	if !sameTables(seen, want) {
		report.addProblem("tables differ: MySQL reads [%s], model has [%s]",
			strings.Join(seen, ", "), strings.Join(want, ", "))
	}

	if got, exp := len(sel.SelectExprs), selectWidth(q); got != exp {
		report.addProblem("select list has %d expressions, model has %d", got, exp)
	}

	return report
}

// collectTables walks a FROM expression left to right.
func collectTables(expr sqlparser.TableExpr, tables []string) []string {
	switch e := expr.(type) {
	case *sqlparser.AliasedTableExpr:
		if name, ok := e.Expr.(sqlparser.TableName); ok {
			table := name.Name.String()
			if q := name.Qualifier.String(); q != "" {
				table = q + "." + table
			}
			tables = append(tables, table)
		}
	case *sqlparser.JoinTableExpr:
		tables = collectTables(e.LeftExpr, tables)
		tables = collectTables(e.RightExpr, tables)
	case *sqlparser.ParenTableExpr:
		for _, inner := range e.Exprs {
			tables = collectTables(inner, tables)
		}
	}
	return tables
}

func sameTables(seen, want []string) bool {
	if len(seen) != len(want) {
		return false
	}
	for i := range seen {
		if !strings.EqualFold(seen[i], unquote(want[i])) {
			return false
		}
	}
	return true
}

// unquote strips backticks from every part of a qualified name.
func unquote(name string) string {
	return strings.ReplaceAll(name, "`", "")
}

// selectWidth is the number of select expressions Generate emits for q.
func selectWidth(q qsql.Query) int {
	n := 0
	for _, f := range q.Select {
		if f.Name != "" {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}
