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

// Clause names used in diagnostics.
const (
	ClauseSelect    = "SELECT"
	ClauseFrom      = "FROM"
	ClauseJoin      = "JOIN"
	ClauseWhere     = "WHERE"
	ClauseGroupBy   = "GROUP BY"
	ClauseOrderBy   = "ORDER BY"
	ClauseLimit     = "LIMIT"
	ClauseStatement = "STATEMENT"
)

// segment is one top-level clause: the keyword tokens that opened it and
// the tokens of its body.
type segment struct {
	clause string
	head   []Token
	body   []Token
}

// joinTypeWords may open a join clause ahead of JOIN.
var joinTypeWords = map[string]bool{
	"INNER": true, "LEFT": true, "RIGHT": true, "FULL": true, "CROSS": true, "OUTER": true,
}

// clauseStart reports whether a clause begins at tokens[i] and how many
// keyword tokens open it.
func clauseStart(tokens []Token, i int) (string, int) {
	tok := tokens[i]
	if tok.Type != TokenKeyword {
		return "", 0
	}
	next := func(k int) Token {
		if i+k < len(tokens) {
			return tokens[i+k]
		}
		return Token{Type: TokenEOF}
	}

	switch tok.Value {
	case "FROM":
		return ClauseFrom, 1
	case "WHERE":
		return ClauseWhere, 1
	case "LIMIT":
		return ClauseLimit, 1
	case "GROUP":
		if next(1).Is("BY") {
			return ClauseGroupBy, 2
		}
	case "ORDER":
		if next(1).Is("BY") {
			return ClauseOrderBy, 2
		}
	case "JOIN":
		return ClauseJoin, 1
	}

	if joinTypeWords[tok.Value] {
		n := 1
		for next(n).Type == TokenKeyword && joinTypeWords[next(n).Value] && n < 3 {
			n++
		}
		if next(n).Is("JOIN") {
			return ClauseJoin, n + 1
		}
	}
	return "", 0
}

// segmentClauses splits the tokens of a SELECT statement into clauses at
// parenthesis depth 0. The first segment is always SELECT. A top-level
// semicolon ends the statement; anything after it is reported and ignored.
func segmentClauses(tokens []Token) ([]segment, []Diagnostic) {
	var diags []Diagnostic
	if len(tokens) == 0 {
		return nil, nil
	}

	segments := []segment{{clause: ClauseSelect, head: tokens[:1]}}
	cur := &segments[0]
	depth := 0

	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			if depth > 0 {
				depth--
			}
		case TokenSemicolon:
			if depth == 0 {
				if i+1 < len(tokens) {
					diags = append(diags, Diagnostic{
						Clause:  ClauseStatement,
						Message: "text after ';' ignored",
					})
				}
				return segments, diags
			}
		}

		if depth == 0 {
			if clause, n := clauseStart(tokens, i); n > 0 {
				segments = append(segments, segment{clause: clause, head: tokens[i : i+n]})
				cur = &segments[len(segments)-1]
				i += n - 1
				continue
			}
		}
		cur.body = append(cur.body, tok)
	}
	return segments, diags
}

// spanText returns the source text covered by tokens.
func spanText(input string, tokens []Token) string {
	if len(tokens) == 0 {
		return ""
	}
	return input[tokens[0].Pos:tokens[len(tokens)-1].End]
}

// splitTopLevel splits tokens on sep at parenthesis depth 0. An empty
// token list yields no pieces.
func splitTopLevel(tokens []Token, sep TokenType) [][]Token {
	if len(tokens) == 0 {
		return nil
	}
	var pieces [][]Token
	depth, start := 0, 0
	for i, tok := range tokens {
		switch tok.Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				pieces = append(pieces, tokens[start:i])
				start = i + 1
			}
		}
	}
	return append(pieces, tokens[start:])
}
