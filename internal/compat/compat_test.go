package compat

import (
	"strings"
	"testing"

	qsql "querysync/internal/sql"
)

func mustParse(t *testing.T, text string) qsql.Query {
	t.Helper()
	q, err := qsql.Parse(text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return q
}

func TestCheckCompatible(t *testing.T) {
	tests := []string{
		"SELECT a, COUNT(*) AS c FROM t WHERE a > 5 AND b = 'x' GROUP BY a ORDER BY a DESC LIMIT 10",
		"SELECT u.name FROM users u INNER JOIN orders o ON u.id = o.user_id WHERE o.total BETWEEN 1 AND 10",
		"SELECT * FROM t WHERE name IN ('a', 'b') AND deleted_at IS NULL",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			report := CheckQuery(mustParse(t, text))
			if !report.Compatible {
				t.Errorf("Expected compatible, got problems %v", report.Problems)
			}
			if report.SQL != text {
				t.Errorf("Expected SQL %s, got %s", text, report.SQL)
			}
		})
	}
}

func TestCheckProblems(t *testing.T) {
	model := mustParse(t, "SELECT a FROM t")

	tests := []struct {
		name    string
		text    string
		problem string
	}{
		{"empty", "", "nothing to check"},
		{"parse error", "SELECT a FROM", "MySQL parse error"},
		{"not a select", "DELETE FROM t", "not a SELECT"},
		{"other table", "SELECT a FROM other", "tables differ"},
		{"wider select", "SELECT a, b FROM t", "select list has 2 expressions, model has 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Check(tt.text, model)
			if report.Compatible {
				t.Fatalf("Expected incompatible report for %q", tt.text)
			}
			found := false
			for _, p := range report.Problems {
				if strings.Contains(p, tt.problem) {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected a problem containing %q, got %v", tt.problem, report.Problems)
			}
		})
	}
}

func TestCheckEmptyModel(t *testing.T) {
	report := CheckQuery(qsql.NewQuery())
	if report.Compatible || len(report.Problems) != 1 {
		t.Errorf("Expected a single problem for an empty model, got %v", report.Problems)
	}
}
