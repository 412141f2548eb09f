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
	"bytes"
	"encoding/json"
	"fmt"
)

// Operator is a WHERE condition operator.
type Operator string

const (
	OpEq        Operator = "="
	OpNe        Operator = "!="
	OpGt        Operator = ">"
	OpGe        Operator = ">="
	OpLt        Operator = "<"
	OpLe        Operator = "<="
	OpLike      Operator = "LIKE"
	OpNotLike   Operator = "NOT LIKE"
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
	OpBetween   Operator = "BETWEEN"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

// ValueShape is the value arity an operator takes.
type ValueShape int

const (
	ShapeInvalid ValueShape = iota
	ShapeNone
	ShapeScalar
	ShapePair
	ShapeList
)

// Shape returns the value shape op requires, or ShapeInvalid for unknown operators.
func (op Operator) Shape() ValueShape {
	switch op {
	case OpIsNull, OpIsNotNull:
		return ShapeNone
	case OpBetween:
		return ShapePair
	case OpIn, OpNotIn:
		return ShapeList
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe, OpLike, OpNotLike:
		return ShapeScalar
	}
	return ShapeInvalid
}

// IsNullCheck reports whether op is IS NULL or IS NOT NULL.
func (op Operator) IsNullCheck() bool {
	return op.Shape() == ShapeNone
}

// ConditionValue is the value side of a condition. The set of
// implementations is closed: NoValue, Single, Range and List.
type ConditionValue interface {
	shape() ValueShape
}

// NoValue is the value of a null-check.
type NoValue struct{}

// Single is a single scalar operand.
type Single struct {
	Value Scalar
}

// Range is the low/high pair of BETWEEN.
type Range struct {
	Low  Scalar
	High Scalar
}

// List is the operand list of IN and NOT IN.
type List []Scalar

func (NoValue) shape() ValueShape { return ShapeNone }
func (Single) shape() ValueShape  { return ShapeScalar }
func (Range) shape() ValueShape   { return ShapePair }
func (List) shape() ValueShape    { return ShapeList }

// Condition is one link of the flat WHERE chain.
type Condition struct {
	Column      string
	Operator    Operator
	Value       ConditionValue
	ColumnType  string
	Conjunction Conjunction
}

// NewCondition builds a condition and checks that the number of values
// matches what the operator takes: none for null-checks, two for BETWEEN,
// any number for IN/NOT IN and exactly one otherwise.
func NewCondition(column string, op Operator, values ...Scalar) (Condition, error) {
	c := Condition{Column: column, Operator: op, Conjunction: And}
	switch op.Shape() {
	case ShapeNone:
		if len(values) != 0 {
			return Condition{}, fmt.Errorf("%s takes no value, got %d", op, len(values))
		}
		c.Value = NoValue{}
	case ShapeScalar:
		if len(values) != 1 {
			return Condition{}, fmt.Errorf("%s takes exactly one value, got %d", op, len(values))
		}
		c.Value = Single{Value: values[0]}
	case ShapePair:
		if len(values) != 2 {
			return Condition{}, fmt.Errorf("%s takes two values, got %d", op, len(values))
		}
		c.Value = Range{Low: values[0], High: values[1]}
	case ShapeList:
		c.Value = append(List{}, values...)
	default:
		return Condition{}, fmt.Errorf("unknown operator %q", op)
	}
	return c, nil
}

// IsNull builds an IS NULL (or IS NOT NULL when not is true) condition.
func IsNull(column string, not bool) Condition {
	op := OpIsNull
	if not {
		op = OpIsNotNull
	}
	return Condition{Column: column, Operator: op, Value: NoValue{}, Conjunction: And}
}

// Compare builds a single-operand condition such as a = 1 or name LIKE 'x%'.
func Compare(column string, op Operator, value Scalar) (Condition, error) {
	if op.Shape() != ShapeScalar {
		return Condition{}, fmt.Errorf("%q is not a single-value operator", op)
	}
	return NewCondition(column, op, value)
}

// Between builds a BETWEEN condition.
func Between(column string, low, high Scalar) Condition {
	return Condition{Column: column, Operator: OpBetween, Value: Range{Low: low, High: high}, Conjunction: And}
}

// In builds an IN (or NOT IN when not is true) condition.
func In(column string, not bool, values ...Scalar) Condition {
	op := OpIn
	if not {
		op = OpNotIn
	}
	return Condition{Column: column, Operator: op, Value: append(List{}, values...), Conjunction: And}
}

// WithConjunction returns a copy of c linked by conj.
func (c Condition) WithConjunction(conj Conjunction) Condition {
	c.Conjunction = conj
	return c
}

// EffectiveConjunction returns the conjunction, defaulting to AND.
func (c Condition) EffectiveConjunction() Conjunction {
	if c.Conjunction == Or {
		return Or
	}
	return And
}

// HasValue reports whether the condition carries a usable value. Null, the
// empty string and an empty list count as missing; 0 and false do not.
func (c Condition) HasValue() bool {
	switch v := c.Value.(type) {
	case Single:
		return !v.Value.IsMissing()
	case Range:
		return !v.Low.IsMissing() && !v.High.IsMissing()
	case List:
		return len(v) > 0
	}
	return false
}

// conditionJSON is the wire form of Condition.
type conditionJSON struct {
	Column      string          `json:"column"`
	Operator    Operator        `json:"operator"`
	Value       json.RawMessage `json:"value,omitempty"`
	ColumnType  string          `json:"columnType,omitempty"`
	Conjunction Conjunction     `json:"conjunction,omitempty"`
}

// MarshalJSON writes the value as absent, a scalar, a [low, high] pair or a list.
func (c Condition) MarshalJSON() ([]byte, error) {
	out := conditionJSON{
		Column:      c.Column,
		Operator:    c.Operator,
		ColumnType:  c.ColumnType,
		Conjunction: c.Conjunction,
	}
	var value interface{}
	switch v := c.Value.(type) {
	case Single:
		value = v.Value
	case Range:
		value = []Scalar{v.Low, v.High}
	case List:
		value = []Scalar(v)
		if v == nil {
			value = []Scalar{}
		}
	}
	if value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		out.Value = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any value shape. Arrays become a Range for BETWEEN
// when they hold exactly two items and a List otherwise; a missing value
// becomes NoValue. Mismatched shapes are left for the generator to degrade.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var in conditionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = Condition{
		Column:      in.Column,
		Operator:    in.Operator,
		ColumnType:  in.ColumnType,
		Conjunction: in.Conjunction,
		Value:       NoValue{},
	}

	raw := bytes.TrimSpace(in.Value)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '[' {
		var items []Scalar
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("condition %q: %w", in.Column, err)
		}
		if in.Operator == OpBetween && len(items) == 2 {
			c.Value = Range{Low: items[0], High: items[1]}
		} else {
			c.Value = List(items)
		}
		return nil
	}
	if bytes.Equal(raw, []byte("null")) && in.Operator.IsNullCheck() {
		return nil
	}
	var s Scalar
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("condition %q: %w", in.Column, err)
	}
	c.Value = Single{Value: s}
	return nil
}
