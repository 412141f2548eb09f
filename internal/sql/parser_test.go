package sql

import (
	"testing"

	"querysync/internal/errors"
)

func TestParseCanonicalQuery(t *testing.T) {
	input := "SELECT a, COUNT(*) AS c FROM t WHERE a > 5 AND b = 'x' GROUP BY a ORDER BY a DESC LIMIT 10"
	q, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(q.Select) != 2 {
		t.Fatalf("Expected 2 select fields, got %d", len(q.Select))
	}
	if q.Select[0] != (SelectField{Name: "a"}) {
		t.Errorf("Expected field a, got %+v", q.Select[0])
	}
	if q.Select[1] != (SelectField{Name: "*", Aggregate: AggregateCount, Alias: "c"}) {
		t.Errorf("Expected COUNT(*) AS c, got %+v", q.Select[1])
	}
	if q.From != "t" {
		t.Errorf("Expected from t, got %s", q.From)
	}

	if len(q.Where) != 2 {
		t.Fatalf("Expected 2 conditions, got %d", len(q.Where))
	}
	first := q.Where[0]
	if first.Column != "a" || first.Operator != OpGt || first.Conjunction != And {
		t.Errorf("Unexpected first condition %+v", first)
	}
	if v, ok := first.Value.(Single); !ok || !v.Value.Equal(NumberValue(5)) {
		t.Errorf("Expected value 5, got %#v", first.Value)
	}
	second := q.Where[1]
	if second.Column != "b" || second.Operator != OpEq || second.Conjunction != And {
		t.Errorf("Unexpected second condition %+v", second)
	}
	if v, ok := second.Value.(Single); !ok || !v.Value.Equal(StringValue("x")) {
		t.Errorf("Expected value 'x', got %#v", second.Value)
	}

	if len(q.GroupBy) != 1 || q.GroupBy[0] != "a" {
		t.Errorf("Expected group by [a], got %v", q.GroupBy)
	}
	if len(q.OrderBy) != 1 || q.OrderBy[0] != (OrderSpec{Column: "a", Direction: Desc}) {
		t.Errorf("Expected order by a DESC, got %v", q.OrderBy)
	}
	if q.Limit != 10 {
		t.Errorf("Expected limit 10, got %d", q.Limit)
	}

	if got := Generate(q); got != input {
		t.Errorf("Expected round trip\n  %s\ngot\n  %s", input, got)
	}
}

func TestParseEscapedQuote(t *testing.T) {
	input := "SELECT * FROM users WHERE name = 'O''Brien'"
	q, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(q.Where) != 1 {
		t.Fatalf("Expected 1 condition, got %d", len(q.Where))
	}
	v, ok := q.Where[0].Value.(Single)
	if !ok || v.Value.Text() != "O'Brien" {
		t.Errorf("Expected O'Brien, got %#v", q.Where[0].Value)
	}
	if got := Generate(q); got != input {
		t.Errorf("Expected %s, got %s", input, got)
	}
}

func TestParseBetween(t *testing.T) {
	q, err := Parse("SELECT * FROM t WHERE x BETWEEN 1 AND 10")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(q.Where) != 1 {
		t.Fatalf("Expected 1 condition, got %d", len(q.Where))
	}
	c := q.Where[0]
	if c.Operator != OpBetween {
		t.Errorf("Expected BETWEEN, got %s", c.Operator)
	}
	r, ok := c.Value.(Range)
	if !ok {
		t.Fatalf("Expected Range value, got %T", c.Value)
	}
	if !r.Low.Equal(NumberValue(1)) || !r.High.Equal(NumberValue(10)) {
		t.Errorf("Expected [1, 10], got [%v, %v]", r.Low, r.High)
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "-- only a comment", "/* block */"} {
		q, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", input, err)
		}
		if q.From != "" || len(q.Select) != 0 || len(q.Where) != 0 || q.Limit != 0 {
			t.Errorf("Expected empty model for %q, got %+v", input, q)
		}
		if q.Select == nil || q.Where == nil {
			t.Errorf("Expected non-nil lists for %q", input)
		}
	}
}

func TestParseUnsupportedStatement(t *testing.T) {
	tests := []string{
		"DELETE FROM t",
		"update t set a = 1",
		"WITH x AS (SELECT 1) SELECT * FROM x",
		"(SELECT a FROM t)",
	}

	for _, input := range tests {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("Expected error for %q", input)
			continue
		}
		if !errors.IsUnsupportedStatement(err) {
			t.Errorf("Expected UnsupportedStatement for %q, got %v", input, err)
		}
	}
}

func TestParseFlattensGrouping(t *testing.T) {
	q, err := Parse("SELECT * FROM t WHERE (a=1 OR b=2) AND c=3")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	expected := []struct {
		column string
		conj   Conjunction
		value  float64
	}{
		{"a", And, 1},
		{"b", Or, 2},
		{"c", And, 3},
	}
	if len(q.Where) != len(expected) {
		t.Fatalf("Expected %d conditions, got %d", len(expected), len(q.Where))
	}
	for i, exp := range expected {
		c := q.Where[i]
		if c.Column != exp.column || c.Conjunction != exp.conj || c.Operator != OpEq {
			t.Errorf("Condition %d: expected %s %s =, got %+v", i, exp.conj, exp.column, c)
		}
		if v, ok := c.Value.(Single); !ok || !v.Value.Equal(NumberValue(exp.value)) {
			t.Errorf("Condition %d: expected value %v, got %#v", i, exp.value, c.Value)
		}
	}

	if got := Generate(q); got != "SELECT * FROM t WHERE a = 1 OR b = 2 AND c = 3" {
		t.Errorf("Unexpected flattened SQL: %s", got)
	}
}

func TestParseConditionOperators(t *testing.T) {
	tests := []struct {
		input    string
		operator Operator
		output   string
	}{
		{"x IS NULL", OpIsNull, "x IS NULL"},
		{"x is not null", OpIsNotNull, "x IS NOT NULL"},
		{"x IN (1, 'a', NULL)", OpIn, "x IN (1, 'a', NULL)"},
		{"x NOT IN (1)", OpNotIn, "x NOT IN (1)"},
		{"x LIKE 'a%'", OpLike, "x LIKE 'a%'"},
		{"x NOT LIKE 'a%'", OpNotLike, "x NOT LIKE 'a%'"},
		{"x <> 3", OpNe, "x != 3"},
		{"x != 3", OpNe, "x != 3"},
		{"x >= -2.5", OpGe, "x >= -2.5"},
		{"x <= 7", OpLe, "x <= 7"},
		{"x < 7", OpLt, "x < 7"},
		{"x = TRUE", OpEq, "x = TRUE"},
		{"t.x = \"double\"", OpEq, "t.x = 'double'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q, err := Parse("SELECT * FROM t WHERE " + tt.input)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(q.Where) != 1 {
				t.Fatalf("Expected 1 condition, got %d", len(q.Where))
			}
			if q.Where[0].Operator != tt.operator {
				t.Errorf("Expected operator %s, got %s", tt.operator, q.Where[0].Operator)
			}
			if got := GenerateCondition(q.Where[0]); got != tt.output {
				t.Errorf("Expected %s, got %s", tt.output, got)
			}
		})
	}
}

func TestParseJoins(t *testing.T) {
	input := "SELECT u.name, o.total FROM users u LEFT OUTER JOIN orders AS o ON u.id = o.user_id CROSS JOIN regions"
	q, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if q.From != "users" || q.FromAlias != "u" {
		t.Errorf("Expected from users u, got %s %s", q.From, q.FromAlias)
	}
	if len(q.Joins) != 2 {
		t.Fatalf("Expected 2 joins, got %d", len(q.Joins))
	}
	expected := Join{Type: JoinLeft, Table: "orders", Alias: "o", LeftCol: "u.id", RightCol: "o.user_id"}
	if q.Joins[0] != expected {
		t.Errorf("Expected %+v, got %+v", expected, q.Joins[0])
	}
	if q.Joins[1] != (Join{Type: JoinCross, Table: "regions"}) {
		t.Errorf("Expected cross join regions, got %+v", q.Joins[1])
	}

	want := "SELECT u.name, o.total FROM users u LEFT JOIN orders o ON u.id = o.user_id CROSS JOIN regions"
	if got := Generate(q); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestParseJoinTypes(t *testing.T) {
	tests := []struct {
		clause string
		want   JoinType
	}{
		{"JOIN", JoinInner},
		{"INNER JOIN", JoinInner},
		{"LEFT JOIN", JoinLeft},
		{"RIGHT OUTER JOIN", JoinRight},
		{"FULL OUTER JOIN", JoinOuter},
		{"OUTER JOIN", JoinOuter},
	}

	for _, tt := range tests {
		t.Run(tt.clause, func(t *testing.T) {
			q, err := Parse("SELECT * FROM a " + tt.clause + " b ON a.id = b.id")
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(q.Joins) != 1 {
				t.Fatalf("Expected 1 join, got %d", len(q.Joins))
			}
			if q.Joins[0].Type != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, q.Joins[0].Type)
			}
		})
	}
}

func TestParseDiagnostics(t *testing.T) {
	result, err := ParseWithDiagnostics("SELECT a, UPPER(b), c FROM t WHERE d = 1 AND NOT e AND f IS NULL LIMIT abc")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	q := result.Query

	if len(q.Select) != 2 || q.Select[0].Name != "a" || q.Select[1].Name != "c" {
		t.Errorf("Expected fields [a c], got %+v", q.Select)
	}
	if len(q.Where) != 2 || q.Where[0].Column != "d" || q.Where[1].Column != "f" {
		t.Errorf("Expected conditions on d and f, got %+v", q.Where)
	}
	if q.Limit != 0 {
		t.Errorf("Expected no limit, got %d", q.Limit)
	}

	clauses := map[string]bool{}
	for _, d := range result.Diagnostics {
		clauses[d.Clause] = true
	}
	if len(result.Diagnostics) != 3 {
		t.Errorf("Expected 3 diagnostics, got %d: %v", len(result.Diagnostics), result.Diagnostics)
	}
	for _, clause := range []string{ClauseSelect, ClauseWhere, ClauseLimit} {
		if !clauses[clause] {
			t.Errorf("Expected a %s diagnostic, got %v", clause, result.Diagnostics)
		}
	}
}

func TestParseCommentsAndCase(t *testing.T) {
	input := "select a -- pick a\nfrom t /* the table */ where a = '--not a comment'"
	q, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if q.From != "t" {
		t.Errorf("Expected from t, got %s", q.From)
	}
	if len(q.Where) != 1 {
		t.Fatalf("Expected 1 condition, got %d", len(q.Where))
	}
	if v, ok := q.Where[0].Value.(Single); !ok || v.Value.Text() != "--not a comment" {
		t.Errorf("Expected literal to survive comment stripping, got %#v", q.Where[0].Value)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		input string
		limit int
		diags int
	}{
		{"SELECT * FROM t LIMIT 5", 5, 0},
		{"SELECT * FROM t LIMIT 0", 0, 1},
		{"SELECT * FROM t LIMIT 10, 20", 10, 1},
		{"SELECT * FROM t LIMIT -3", 0, 1},
		{"SELECT * FROM t LIMIT 7;", 7, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseWithDiagnostics(tt.input)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if result.Query.Limit != tt.limit {
				t.Errorf("Expected limit %d, got %d", tt.limit, result.Query.Limit)
			}
			if len(result.Diagnostics) != tt.diags {
				t.Errorf("Expected %d diagnostics, got %v", tt.diags, result.Diagnostics)
			}
		})
	}
}

func TestParseSemicolonEndsStatement(t *testing.T) {
	result, err := ParseWithDiagnostics("SELECT a FROM t; DROP TABLE t")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.Query.From != "t" {
		t.Errorf("Expected from t, got %s", result.Query.From)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Clause != ClauseStatement {
		t.Errorf("Expected one statement diagnostic, got %v", result.Diagnostics)
	}
}

func TestParseAggregates(t *testing.T) {
	tests := []struct {
		expr  string
		field SelectField
	}{
		{"COUNT(*)", SelectField{Name: "*", Aggregate: AggregateCount}},
		{"count(DISTINCT user_id)", SelectField{Name: "user_id", Aggregate: AggregateCountDistinct}},
		{"SUM(o.total) AS revenue", SelectField{Name: "o.total", Aggregate: AggregateSum, Alias: "revenue"}},
		{"AVG(price)", SelectField{Name: "price", Aggregate: AggregateAvg}},
		{"MIN(price)", SelectField{Name: "price", Aggregate: AggregateMin}},
		{"MAX(price) AS top", SelectField{Name: "price", Aggregate: AggregateMax, Alias: "top"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			q, err := Parse("SELECT " + tt.expr + " FROM t")
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(q.Select) != 1 {
				t.Fatalf("Expected 1 field, got %d", len(q.Select))
			}
			if q.Select[0] != tt.field {
				t.Errorf("Expected %+v, got %+v", tt.field, q.Select[0])
			}
		})
	}
}

func mustCompare(t *testing.T, column string, op Operator, v Scalar) Condition {
	t.Helper()
	c, err := Compare(column, op, v)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	return c
}

func TestGenerateParseIdempotent(t *testing.T) {
	full := NewQuery()
	full.Select = []SelectField{
		{Name: "u.id"},
		{Name: "amount", Aggregate: AggregateSum, Alias: "total"},
		{Name: "id", Aggregate: AggregateCountDistinct},
	}
	full.From = "users"
	full.FromAlias = "u"
	full.Joins = []Join{{Type: JoinLeft, Table: "orders", Alias: "o", LeftCol: "u.id", RightCol: "o.user_id"}}
	full.Where = []Condition{
		mustCompare(t, "status", OpEq, StringValue("active")),
		IsNull("deleted_at", false).WithConjunction(Or),
		Between("age", NumberValue(18), NumberValue(65)),
		In("country", false, StringValue("US"), StringValue("CA")),
		mustCompare(t, "name", OpLike, StringValue("A%")),
		mustCompare(t, "score", OpGe, NumberValue(0.5)),
	}
	full.GroupBy = []string{"u.id"}
	full.OrderBy = []OrderSpec{{Column: "total", Direction: Desc}, {Column: "u.id"}}
	full.Limit = 25

	bare := NewQuery()
	bare.From = "t"

	literals := NewQuery()
	literals.From = "t"
	literals.Where = []Condition{
		mustCompare(t, "flag", OpEq, BoolValue(true)),
		mustCompare(t, "name", OpNe, StringValue("it's")).WithConjunction(Or),
		mustCompare(t, "big", OpLt, NumberValue(1e21)),
		IsNull("x", true),
		In("y", true, NumberValue(-1), NullValue()),
	}

	tests := []struct {
		name  string
		query Query
	}{
		{"full", full},
		{"bare", bare},
		{"literals", literals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := Generate(tt.query)
			q, err := Parse(first)
			if err != nil {
				t.Fatalf("Parse(%s) failed: %v", first, err)
			}
			if second := Generate(q); second != first {
				t.Errorf("Expected idempotent output\n  %s\ngot\n  %s", first, second)
			}
		})
	}
}
