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
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ScalarKind identifies which field of a Scalar is meaningful.
type ScalarKind int

const (
	KindNull ScalarKind = iota
	KindString
	KindNumber
	KindBool
)

// String returns the kind name used in error messages.
func (k ScalarKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Scalar is a single literal value: string, number, boolean or null.
// The zero Scalar is null.
type Scalar struct {
	kind ScalarKind
	str  string
	num  float64
	b    bool
}

// NullValue returns the null scalar.
func NullValue() Scalar { return Scalar{} }

// StringValue returns a string scalar.
func StringValue(s string) Scalar { return Scalar{kind: KindString, str: s} }

// NumberValue returns a numeric scalar.
func NumberValue(f float64) Scalar { return Scalar{kind: KindNumber, num: f} }

// BoolValue returns a boolean scalar.
func BoolValue(b bool) Scalar { return Scalar{kind: KindBool, b: b} }

// ScalarOf converts a plain Go value into a Scalar.
func ScalarOf(v interface{}) (Scalar, error) {
	switch x := v.(type) {
	case nil:
		return NullValue(), nil
	case Scalar:
		return x, nil
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case int:
		return NumberValue(float64(x)), nil
	case int32:
		return NumberValue(float64(x)), nil
	case int64:
		return NumberValue(float64(x)), nil
	case float32:
		return NumberValue(float64(x)), nil
	case float64:
		return NumberValue(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Scalar{}, fmt.Errorf("invalid number %q", x.String())
		}
		return NumberValue(f), nil
	}
	return Scalar{}, fmt.Errorf("unsupported scalar type %T", v)
}

// MustScalar is like ScalarOf but panics on unsupported types.
func MustScalar(v interface{}) Scalar {
	s, err := ScalarOf(v)
	if err != nil {
		panic(err)
	}
	return s
}

// Kind returns the scalar's kind.
func (s Scalar) Kind() ScalarKind { return s.kind }

// IsNull reports whether the scalar is null.
func (s Scalar) IsNull() bool { return s.kind == KindNull }

// Text returns the string payload; empty for other kinds.
func (s Scalar) Text() string { return s.str }

// Number returns the numeric payload; zero for other kinds.
func (s Scalar) Number() float64 { return s.num }

// Bool returns the boolean payload; false for other kinds.
func (s Scalar) Bool() bool { return s.b }

// IsMissing reports whether the scalar counts as "no value" for validation:
// null, the empty string, false or NaN. Zero is a present value.
func (s Scalar) IsMissing() bool {
	switch s.kind {
	case KindNull:
		return true
	case KindString:
		return s.str == ""
	case KindBool:
		return !s.b
	case KindNumber:
		return math.IsNaN(s.num)
	}
	return false
}

// Interface returns the scalar as a plain Go value (nil, string, float64, bool).
func (s Scalar) Interface() interface{} {
	switch s.kind {
	case KindString:
		return s.str
	case KindNumber:
		return s.num
	case KindBool:
		return s.b
	}
	return nil
}

// Equal reports whether two scalars have the same kind and payload.
func (s Scalar) Equal(o Scalar) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case KindString:
		return s.str == o.str
	case KindNumber:
		return s.num == o.num
	case KindBool:
		return s.b == o.b
	}
	return true
}

// Literal renders the scalar as a SQL literal. Strings are single-quoted with
// embedded quotes doubled; this is the only escaping the generator performs.
func (s Scalar) Literal() string {
	switch s.kind {
	case KindNumber:
		return formatNumber(s.num)
	case KindBool:
		if s.b {
			return "TRUE"
		}
		return "FALSE"
	case KindString:
		return "'" + strings.ReplaceAll(s.str, "'", "''") + "'"
	}
	return "NULL"
}

// String implements fmt.Stringer using the SQL literal form.
func (s Scalar) String() string { return s.Literal() }

// FormatScalar renders v as a SQL literal.
func FormatScalar(v Scalar) string { return v.Literal() }

func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "NULL"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// numericLiteral is the decimal/exponent grammar accepted as a number.
var numericLiteral = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// ParseScalar converts literal SQL value text into a Scalar.
//
// Rules, in order:
//  1. One layer of matching '...' or "..." quoting is stripped; doubled
//     quote characters inside are unescaped. The result is a string.
//  2. Bare NULL, TRUE and FALSE (any case) become null and booleans.
//  3. A decimal or exponent numeric literal becomes a number.
//  4. Anything else is kept as a string.
func ParseScalar(text string) Scalar {
	trimmed := strings.TrimSpace(text)
	if n := len(trimmed); n >= 2 {
		q := trimmed[0]
		if (q == '\'' || q == '"') && trimmed[n-1] == q {
			inner := trimmed[1 : n-1]
			return StringValue(strings.ReplaceAll(inner, string([]byte{q, q}), string(q)))
		}
	}

	switch strings.ToUpper(trimmed) {
	case "NULL":
		return NullValue()
	case "TRUE":
		return BoolValue(true)
	case "FALSE":
		return BoolValue(false)
	}

	if trimmed != "" && numericLiteral.MatchString(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return NumberValue(f)
		}
	}
	return StringValue(trimmed)
}

// MarshalJSON encodes the scalar as a JSON null, string, number or boolean.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.kind == KindNumber && (math.IsNaN(s.num) || math.IsInf(s.num, 0)) {
		return []byte("null"), nil
	}
	return json.Marshal(s.Interface())
}

// UnmarshalJSON decodes a JSON null, string, number or boolean.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	v, err := ScalarOf(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
