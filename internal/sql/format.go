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

import "strings"

// Format reflows SQL text for display: each top-level clause (FROM, JOIN,
// WHERE, GROUP BY, ORDER BY, LIMIT) starts a new line and each top-level
// AND/OR starts a new line indented by two spaces. Comments are dropped.
// Quoted literals, parenthesized content and the AND of a BETWEEN range
// are left alone. Empty input returns "".
func Format(text string) string {
	input := Normalize(text)
	tokens := Tokenize(input)
	if len(tokens) == 0 {
		return ""
	}

	var sb strings.Builder
	depth := 0
	inBetween := false

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if i > 0 && depth == 0 {
			if _, n := clauseStart(tokens, i); n > 0 {
				sb.WriteString("\n")
				sb.WriteString(spanText(input, tokens[i:i+n]))
				i += n - 1
				inBetween = false
				continue
			}
			switch {
			case tok.Is("BETWEEN"):
				inBetween = true
			case tok.Is("AND") && inBetween:
				inBetween = false
			case tok.Is("AND") || tok.Is("OR"):
				sb.WriteString("\n  ")
				sb.WriteString(input[tok.Pos:tok.End])
				continue
			}
		}

		if i > 0 && tok.Pos > tokens[i-1].End {
			sb.WriteString(" ")
		}
		sb.WriteString(input[tok.Pos:tok.End])

		switch tok.Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			if depth > 0 {
				depth--
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
