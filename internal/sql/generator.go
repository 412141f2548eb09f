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

package sql

import (
	"strconv"
	"strings"
)

// Generate renders q as a single-line SELECT statement. Clauses are emitted
// in the order SELECT, FROM, JOIN, WHERE, GROUP BY, ORDER BY, LIMIT and
// clauses without data are omitted. A model without a FROM table renders
// as "". Identifiers are emitted verbatim; only scalar literals are escaped.
func Generate(q Query) string {
	if q.IsEmpty() {
		return ""
	}

	parts := []string{"SELECT " + generateSelectList(q.Select)}

	from := "FROM " + q.From
	if q.FromAlias != "" {
		from += " " + q.FromAlias
	}
	parts = append(parts, from)

	for _, j := range q.Joins {
		if j.Table == "" {
			continue
		}
		parts = append(parts, generateJoin(j))
	}

	if where := generateWhere(q.Where); where != "" {
		parts = append(parts, "WHERE "+where)
	}

	if groups := nonEmpty(q.GroupBy); len(groups) > 0 {
		parts = append(parts, "GROUP BY "+strings.Join(groups, ", "))
	}

	if len(q.OrderBy) > 0 {
		items := make([]string, 0, len(q.OrderBy))
		for _, o := range q.OrderBy {
			if o.Column == "" {
				continue
			}
			items = append(items, o.Column+" "+string(o.EffectiveDirection()))
		}
		if len(items) > 0 {
			parts = append(parts, "ORDER BY "+strings.Join(items, ", "))
		}
	}

	if q.Limit > 0 {
		parts = append(parts, "LIMIT "+strconv.Itoa(q.Limit))
	}

	return strings.Join(parts, " ")
}

func generateSelectList(fields []SelectField) string {
	items := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			continue
		}
		items = append(items, generateSelectField(f))
	}
	if len(items) == 0 {
		return "*"
	}
	return strings.Join(items, ", ")
}

func generateSelectField(f SelectField) string {
	var expr string
	switch f.Aggregate {
	case AggregateNone:
		expr = f.Name
	case AggregateCountDistinct:
		expr = "COUNT(DISTINCT " + f.Name + ")"
	default:
		expr = string(f.Aggregate) + "(" + f.Name + ")"
	}
	if f.Alias != "" {
		expr += " AS " + f.Alias
	}
	return expr
}

func generateJoin(j Join) string {
	s := string(j.EffectiveType()) + " JOIN " + j.Table
	if j.Alias != "" {
		s += " " + j.Alias
	}
	if j.LeftCol != "" || j.RightCol != "" {
		s += " ON " + j.LeftCol + " = " + j.RightCol
	}
	return s
}

func generateWhere(conds []Condition) string {
	var sb strings.Builder
	for i, c := range conds {
		if i > 0 {
			sb.WriteString(" ")
			sb.WriteString(string(c.EffectiveConjunction()))
			sb.WriteString(" ")
		}
		sb.WriteString(GenerateCondition(c))
	}
	return sb.String()
}

// GenerateCondition renders a single condition without its conjunction.
// Values of the wrong shape degrade to placeholders: '' for a BETWEEN
// bound and () for an IN list.
func GenerateCondition(c Condition) string {
	switch {
	case c.Operator.IsNullCheck():
		return c.Column + " " + string(c.Operator)

	case c.Operator == OpBetween:
		low, high := "''", "''"
		if r, ok := c.Value.(Range); ok {
			low, high = r.Low.Literal(), r.High.Literal()
		}
		return c.Column + " BETWEEN " + low + " AND " + high

	case c.Operator == OpIn || c.Operator == OpNotIn:
		list := "()"
		if l, ok := c.Value.(List); ok {
			items := make([]string, len(l))
			for i, v := range l {
				items[i] = v.Literal()
			}
			list = "(" + strings.Join(items, ", ") + ")"
		}
		return c.Column + " " + string(c.Operator) + " " + list
	}

	value := NullValue()
	if s, ok := c.Value.(Single); ok {
		value = s.Value
	}
	return c.Column + " " + string(c.Operator) + " " + value.Literal()
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
