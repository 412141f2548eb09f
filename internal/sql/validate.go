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
	"fmt"
	"strings"
)

// ValidationResult lists the structural problems of a model.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func (r *ValidationResult) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

// Validate reports every structural problem of q, in order: the FROM table,
// then each join, then each condition. Positions are 1-based.
func Validate(q Query) ValidationResult {
	result := ValidationResult{Valid: true, Errors: []string{}}

	if q.IsEmpty() {
		result.addError("No table selected")
	}

	for i, j := range q.Joins {
		n := i + 1
		if strings.TrimSpace(j.Table) == "" {
			result.addError("Join %d: table is required", n)
		}
		if j.EffectiveType() == JoinCross {
			continue
		}
		if strings.TrimSpace(j.LeftCol) == "" {
			result.addError("Join %d: left column is required", n)
		}
		if strings.TrimSpace(j.RightCol) == "" {
			result.addError("Join %d: right column is required", n)
		}
	}

	for i, c := range q.Where {
		n := i + 1
		if strings.TrimSpace(c.Column) == "" {
			result.addError("Filter %d: column is required", n)
		}
		known := true
		if c.Operator == "" {
			result.addError("Filter %d: operator is required", n)
		} else if c.Operator.Shape() == ShapeInvalid {
			result.addError("Filter %d: unknown operator %q", n, c.Operator)
			known = false
		}
		if known && !c.Operator.IsNullCheck() && !c.HasValue() {
			result.addError("Filter %d: value is required", n)
		}
		if !c.Conjunction.Valid() {
			result.addError("Filter %d: unknown conjunction %q", n, c.Conjunction)
		}
	}

	return result
}
