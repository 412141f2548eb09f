package sql

import (
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	withFrom := func(mutate func(q *Query)) Query {
		q := NewQuery()
		q.From = "t"
		mutate(&q)
		return q
	}

	tests := []struct {
		name   string
		query  Query
		errors []string
	}{
		{
			name:   "empty model",
			query:  NewQuery(),
			errors: []string{"No table selected"},
		},
		{
			name:   "valid",
			query:  withFrom(func(q *Query) {}),
			errors: []string{},
		},
		{
			name: "null value",
			query: withFrom(func(q *Query) {
				q.Where = []Condition{{Column: "a", Operator: OpEq, Value: Single{Value: NullValue()}}}
			}),
			errors: []string{"Filter 1: value is required"},
		},
		{
			name: "zero is a value and false is not",
			query: withFrom(func(q *Query) {
				q.Where = []Condition{
					{Column: "a", Operator: OpEq, Value: Single{Value: NumberValue(0)}},
					{Column: "b", Operator: OpEq, Value: Single{Value: BoolValue(false)}},
					{Column: "c", Operator: OpEq, Value: Single{Value: BoolValue(true)}},
				}
			}),
			errors: []string{"Filter 2: value is required"},
		},
		{
			name: "null check needs no value",
			query: withFrom(func(q *Query) {
				q.Where = []Condition{IsNull("a", true)}
			}),
			errors: []string{},
		},
		{
			name: "empty condition",
			query: withFrom(func(q *Query) {
				q.Where = []Condition{{}}
			}),
			errors: []string{
				"Filter 1: column is required",
				"Filter 1: operator is required",
				"Filter 1: value is required",
			},
		},
		{
			name: "missing operator still checks the value",
			query: withFrom(func(q *Query) {
				q.Where = []Condition{{Column: "a"}}
			}),
			errors: []string{"Filter 1: operator is required", "Filter 1: value is required"},
		},
		{
			name: "unknown conjunction",
			query: withFrom(func(q *Query) {
				q.Where = []Condition{
					{Column: "a", Operator: OpEq, Value: Single{Value: NumberValue(1)}},
					{Column: "b", Operator: OpEq, Value: Single{Value: NumberValue(2)}, Conjunction: "XOR"},
				}
			}),
			errors: []string{"Filter 2: unknown conjunction \"XOR\""},
		},
		{
			name: "second filter empty string and empty list",
			query: withFrom(func(q *Query) {
				q.Where = []Condition{
					{Column: "a", Operator: OpEq, Value: Single{Value: NumberValue(1)}},
					{Column: "b", Operator: OpEq, Value: Single{Value: StringValue("")}},
					In("c", false),
				}
			}),
			errors: []string{"Filter 2: value is required", "Filter 3: value is required"},
		},
		{
			name: "join problems",
			query: withFrom(func(q *Query) {
				q.Joins = []Join{{Type: JoinLeft}, {Type: JoinCross, Table: "c"}}
			}),
			errors: []string{
				"Join 1: table is required",
				"Join 1: left column is required",
				"Join 1: right column is required",
			},
		},
		{
			name: "everything at once",
			query: Query{
				Joins: []Join{{Table: "b", LeftCol: "a.id"}},
				Where: []Condition{{Column: "x", Operator: "~"}},
			},
			errors: []string{
				"No table selected",
				"Join 1: right column is required",
				"Filter 1: unknown operator \"~\"",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			if !reflect.DeepEqual(result.Errors, tt.errors) {
				t.Errorf("Expected errors %q, got %q", tt.errors, result.Errors)
			}
			if result.Valid != (len(tt.errors) == 0) {
				t.Errorf("Expected valid=%v, got %v", len(tt.errors) == 0, result.Valid)
			}
		})
	}
}
