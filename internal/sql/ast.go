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
Package sql translates between SQL SELECT text and an editable query model.

Query Model Overview:
=====================

The Query model is the structured form of a single SELECT statement that a
visual editor can manipulate. It is a plain value: the parser produces it,
the editor mutates it, and the generator turns it back into SQL text.

Model Hierarchy:
================

	Query
	├── Select   []SelectField   (name, aggregate, alias)
	├── From     string          (empty means "no query")
	├── Joins    []Join          (type, table, alias, leftCol, rightCol)
	├── Where    []Condition     (column, operator, value, conjunction)
	├── GroupBy  []string
	├── OrderBy  []OrderSpec     (column, direction)
	└── Limit    int             (0 means absent)

Example:
========

For the SQL: SELECT name FROM users WHERE id = 1

	Query{
	    Select: []SelectField{{Name: "name"}},
	    From:   "users",
	    Where:  []Condition{{Column: "id", Operator: OpEq, Value: Single{NumberValue(1)}}},
	}

JSON:
=====

The JSON field names (select, from, joins, where, groupBy, orderBy, limit)
are the wire contract with the browser editor and must not change.
*/
package sql

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Aggregate is the optional aggregate function applied to a select field.
type Aggregate string

const (
	AggregateNone          Aggregate = ""
	AggregateCount         Aggregate = "COUNT"
	AggregateSum           Aggregate = "SUM"
	AggregateAvg           Aggregate = "AVG"
	AggregateMin           Aggregate = "MIN"
	AggregateMax           Aggregate = "MAX"
	AggregateCountDistinct Aggregate = "COUNT_DISTINCT"
)

// aggregateFuncs maps SQL function names to aggregates.
var aggregateFuncs = map[string]Aggregate{
	"COUNT": AggregateCount,
	"SUM":   AggregateSum,
	"AVG":   AggregateAvg,
	"MIN":   AggregateMin,
	"MAX":   AggregateMax,
}

// Valid reports whether a is one of the supported aggregates (or none).
func (a Aggregate) Valid() bool {
	if a == AggregateNone || a == AggregateCountDistinct {
		return true
	}
	_, ok := aggregateFuncs[string(a)]
	return ok
}

// SelectField is one entry of the select list.
type SelectField struct {
	Name      string    `json:"name"`
	Aggregate Aggregate `json:"aggregate,omitempty"`
	Alias     string    `json:"alias,omitempty"`
}

// JoinType is the join flavour.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinOuter JoinType = "OUTER"
	JoinCross JoinType = "CROSS"
)

// Join is a single JOIN block with an equality ON condition.
type Join struct {
	Type     JoinType `json:"type,omitempty"`
	Table    string   `json:"table"`
	Alias    string   `json:"alias,omitempty"`
	LeftCol  string   `json:"leftCol"`
	RightCol string   `json:"rightCol"`
}

// EffectiveType returns the join type, defaulting to INNER.
func (j Join) EffectiveType() JoinType {
	if j.Type == "" {
		return JoinInner
	}
	return j.Type
}

// Conjunction links a condition to the one before it.
type Conjunction string

const (
	And Conjunction = "AND"
	Or  Conjunction = "OR"
)

// Valid reports whether c is AND, OR or unset.
func (c Conjunction) Valid() bool {
	return c == "" || c == And || c == Or
}

// UnmarshalJSON accepts the conjunction in any letter case.
func (c *Conjunction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("conjunction: %w", err)
	}
	*c = Conjunction(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}

// Direction is the sort direction of an ORDER BY item.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderSpec is one ORDER BY item.
type OrderSpec struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction,omitempty"`
}

// EffectiveDirection returns the direction, defaulting to ASC.
func (o OrderSpec) EffectiveDirection() Direction {
	if o.Direction == "" {
		return Asc
	}
	return o.Direction
}

// Query is the editable model of one SELECT statement.
type Query struct {
	Select    []SelectField `json:"select"`
	From      string        `json:"from"`
	FromAlias string        `json:"fromAlias,omitempty"`
	Joins     []Join        `json:"joins"`
	Where     []Condition   `json:"where"`
	GroupBy   []string      `json:"groupBy"`
	OrderBy   []OrderSpec   `json:"orderBy"`
	Limit     int           `json:"limit,omitempty"`
}

// NewQuery returns an empty model whose lists encode as [] rather than null.
func NewQuery() Query {
	return Query{
		Select:  []SelectField{},
		Joins:   []Join{},
		Where:   []Condition{},
		GroupBy: []string{},
		OrderBy: []OrderSpec{},
	}
}

// IsEmpty reports whether the model describes no query at all.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.From) == ""
}

// Tables returns the FROM table followed by every join table, skipping blanks.
func (q Query) Tables() []string {
	var tables []string
	if q.From != "" {
		tables = append(tables, q.From)
	}
	for _, j := range q.Joins {
		if j.Table != "" {
			tables = append(tables, j.Table)
		}
	}
	return tables
}

// Clone returns a deep copy so callers can mutate the result freely.
func (q Query) Clone() Query {
	out := q
	out.Select = append([]SelectField{}, q.Select...)
	out.Joins = append([]Join{}, q.Joins...)
	out.GroupBy = append([]string{}, q.GroupBy...)
	out.OrderBy = append([]OrderSpec{}, q.OrderBy...)
	out.Where = make([]Condition, len(q.Where))
	for i, c := range q.Where {
		if l, ok := c.Value.(List); ok {
			c.Value = append(List{}, l...)
		}
		out.Where[i] = c
	}
	return out
}
