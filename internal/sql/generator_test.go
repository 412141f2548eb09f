package sql

import "testing"

func TestGenerateEmptyModel(t *testing.T) {
	if got := Generate(NewQuery()); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
	if got := Generate(Query{}); got != "" {
		t.Errorf("Expected empty string for zero Query, got %q", got)
	}
}

func TestGenerateSelectList(t *testing.T) {
	tests := []struct {
		name   string
		fields []SelectField
		want   string
	}{
		{"empty list", nil, "SELECT * FROM t"},
		{"blank names skipped", []SelectField{{Name: ""}, {Name: "a"}}, "SELECT a FROM t"},
		{"only blank names", []SelectField{{Name: ""}}, "SELECT * FROM t"},
		{"alias", []SelectField{{Name: "a", Alias: "b"}}, "SELECT a AS b FROM t"},
		{"count distinct", []SelectField{{Name: "a", Aggregate: AggregateCountDistinct}}, "SELECT COUNT(DISTINCT a) FROM t"},
		{"aggregate alias", []SelectField{{Name: "x", Aggregate: AggregateAvg, Alias: "m"}}, "SELECT AVG(x) AS m FROM t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery()
			q.From = "t"
			q.Select = tt.fields
			if got := Generate(q); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestGenerateJoins(t *testing.T) {
	q := NewQuery()
	q.From = "a"
	q.Joins = []Join{
		{Table: "b", LeftCol: "a.id", RightCol: "b.a_id"},
		{Type: JoinCross, Table: "c"},
		{Type: JoinLeft, Table: ""},
		{Type: JoinRight, Table: "d", Alias: "dd", LeftCol: "a.id", RightCol: "dd.id"},
	}

	want := "SELECT * FROM a INNER JOIN b ON a.id = b.a_id CROSS JOIN c RIGHT JOIN d dd ON a.id = dd.id"
	if got := Generate(q); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestGenerateConditionDegrades(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want string
	}{
		{"between without pair", Condition{Column: "x", Operator: OpBetween, Value: Single{Value: NumberValue(1)}}, "x BETWEEN '' AND ''"},
		{"between list", Condition{Column: "x", Operator: OpBetween, Value: List{NumberValue(1)}}, "x BETWEEN '' AND ''"},
		{"in without list", Condition{Column: "x", Operator: OpIn, Value: Single{Value: NumberValue(1)}}, "x IN ()"},
		{"in empty list", Condition{Column: "x", Operator: OpNotIn, Value: List{}}, "x NOT IN ()"},
		{"comparison without value", Condition{Column: "x", Operator: OpEq}, "x = NULL"},
		{"null check ignores value", Condition{Column: "x", Operator: OpIsNull, Value: Single{Value: NumberValue(1)}}, "x IS NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateCondition(tt.cond); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestGenerateConjunctions(t *testing.T) {
	q := NewQuery()
	q.From = "t"
	q.Where = []Condition{
		{Column: "a", Operator: OpEq, Value: Single{Value: NumberValue(1)}, Conjunction: Or},
		{Column: "b", Operator: OpEq, Value: Single{Value: NumberValue(2)}},
		{Column: "c", Operator: OpEq, Value: Single{Value: NumberValue(3)}, Conjunction: Or},
	}

	want := "SELECT * FROM t WHERE a = 1 AND b = 2 OR c = 3"
	if got := Generate(q); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestGenerateQuoteEscaping(t *testing.T) {
	q := NewQuery()
	q.From = "users"
	q.Where = []Condition{{Column: "name", Operator: OpEq, Value: Single{Value: StringValue("O'Brien")}}}

	want := "SELECT * FROM users WHERE name = 'O''Brien'"
	if got := Generate(q); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestGenerateOrderAndLimit(t *testing.T) {
	q := NewQuery()
	q.From = "t"
	q.GroupBy = []string{"a", "", "b"}
	q.OrderBy = []OrderSpec{{Column: "a"}, {Column: ""}, {Column: "b", Direction: Desc}}
	q.Limit = -4

	want := "SELECT * FROM t GROUP BY a, b ORDER BY a ASC, b DESC"
	if got := Generate(q); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
