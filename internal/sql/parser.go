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
Package sql contains the Parser component that turns SELECT text into a Query.

Parser Overview:
================

Parsing runs in three stages:

 1. Normalize: comments are stripped and whitespace collapsed.
 2. Segment: the token stream is cut into top-level clauses (SELECT, FROM,
    JOIN, WHERE, GROUP BY, ORDER BY, LIMIT) at parenthesis depth 0.
 3. Clause parsing: each clause is handled by a small recursive-descent
    parser that keeps two tokens, cur and peek, like the statement parser
    of a full SQL engine but scoped to a single clause.

Failure Policy:
===============

Only a statement that does not start with SELECT is rejected. Every other
problem is local: the clause (or the single select item or condition) that
could not be understood is left at its default, a Diagnostic is recorded
and a warning is logged. Parse therefore always returns the best model it
could build.

Grammar (Simplified):
=====================

	select_item := '*' | AGG '(' [DISTINCT] (ident | '*') ')' [AS ident] | ident [AS ident]
	from        := ident [[AS] ident]
	join        := [INNER|LEFT|RIGHT|FULL|CROSS] [OUTER] JOIN ident [[AS] ident] [ON expr '=' expr]
	condition   := ident ( IS [NOT] NULL
	                     | BETWEEN value AND value
	                     | [NOT] IN '(' value {',' value} ')'
	                     | [NOT] LIKE value
	                     | op value )
	where       := condition { (AND | OR) condition }

The WHERE chain is flat: grouping parentheses at the edges of a condition
are discarded and there is no operator precedence.
*/
package sql

import (
	"fmt"
	"strconv"
	"strings"

	"querysync/internal/errors"
	"querysync/internal/logging"
)

var parseLogger = logging.NewLogger("parser")

// Diagnostic records a part of the input the parser could not use.
type Diagnostic struct {
	Clause  string `json:"clause"`
	Message string `json:"message"`
	Text    string `json:"text,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Text == "" {
		return fmt.Sprintf("%s: %s", d.Clause, d.Message)
	}
	return fmt.Sprintf("%s: %s: %q", d.Clause, d.Message, d.Text)
}

// ParseResult is a parsed model together with everything that was dropped.
type ParseResult struct {
	Query       Query        `json:"query"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Parse converts SELECT text into a Query. Empty input yields an empty
// model. Non-empty input that is not a SELECT statement fails with an
// UnsupportedStatement error; nothing else is fatal.
func Parse(text string) (Query, error) {
	result, err := ParseWithDiagnostics(text)
	if err != nil {
		return NewQuery(), err
	}
	return result.Query, nil
}

// ParseWithDiagnostics is Parse, also returning the diagnostics.
func ParseWithDiagnostics(text string) (*ParseResult, error) {
	return NewParser(text).Parse()
}

// Parser parses one SELECT statement.
type Parser struct {
	input  string
	tokens []Token
	result *ParseResult
}

// NewParser normalizes text and tokenizes it.
func NewParser(text string) *Parser {
	normalized := Normalize(text)
	return &Parser{
		input:  normalized,
		tokens: Tokenize(normalized),
	}
}

// Input returns the normalized text the parser works on.
func (p *Parser) Input() string {
	return p.input
}

// Parse runs the parser. It may be called more than once.
func (p *Parser) Parse() (*ParseResult, error) {
	p.result = &ParseResult{Query: NewQuery(), Diagnostics: []Diagnostic{}}
	if len(p.tokens) == 0 {
		return p.result, nil
	}

	first := p.tokens[0]
	if !first.Is("SELECT") {
		leading := p.input[first.Pos:first.End]
		parseLogger.Debug("Rejected statement", "leading", leading)
		return nil, errors.UnsupportedStatement(leading)
	}

	segments, diags := segmentClauses(p.tokens)
	for _, d := range diags {
		p.report(d)
	}

	seen := make(map[string]bool)
	for _, seg := range segments {
		if seg.clause != ClauseJoin {
			if seen[seg.clause] {
				p.report(Diagnostic{
					Clause:  seg.clause,
					Message: "duplicate clause ignored",
					Text:    spanText(p.input, append(append([]Token{}, seg.head...), seg.body...)),
				})
				continue
			}
			seen[seg.clause] = true
		}
		p.parseSegment(seg)
	}

	parseLogger.Debug("Parsed query",
		"from", p.result.Query.From,
		"fields", len(p.result.Query.Select),
		"conditions", len(p.result.Query.Where),
		"diagnostics", len(p.result.Diagnostics))
	return p.result, nil
}

func (p *Parser) parseSegment(seg segment) {
	text := spanText(p.input, seg.body)
	p.guard(seg.clause, text, func() error {
		switch seg.clause {
		case ClauseSelect:
			return p.parseSelectList(seg.body)
		case ClauseFrom:
			return p.parseFrom(seg.body)
		case ClauseJoin:
			return p.parseJoin(seg.head, seg.body)
		case ClauseWhere:
			return p.parseWhere(seg.body)
		case ClauseGroupBy:
			return p.parseGroupBy(seg.body)
		case ClauseOrderBy:
			return p.parseOrderBy(seg.body)
		case ClauseLimit:
			return p.parseLimit(seg.body)
		}
		return fmt.Errorf("unknown clause")
	})
}

// guard runs fn and turns a returned error or a panic into a diagnostic.
func (p *Parser) guard(clause, text string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			p.report(Diagnostic{Clause: clause, Message: fmt.Sprintf("internal error: %v", r), Text: text})
		}
	}()
	if err := fn(); err != nil {
		p.report(Diagnostic{Clause: clause, Message: err.Error(), Text: text})
	}
}

func (p *Parser) report(d Diagnostic) {
	p.result.Diagnostics = append(p.result.Diagnostics, d)
	parseLogger.Warn("Ignored part of query", "clause", d.Clause, "reason", d.Message, "text", d.Text)
}

// ============================================================================
// SELECT
// ============================================================================

func (p *Parser) parseSelectList(body []Token) error {
	fields := []SelectField{}
	for _, piece := range splitTopLevel(body, TokenComma) {
		field, err := parseSelectField(p.input, piece)
		if err != nil {
			p.report(Diagnostic{Clause: ClauseSelect, Message: err.Error(), Text: spanText(p.input, piece)})
			continue
		}
		fields = append(fields, field)
	}
	p.result.Query.Select = fields
	return nil
}

func parseSelectField(input string, piece []Token) (SelectField, error) {
	if len(piece) == 0 {
		return SelectField{}, fmt.Errorf("empty select item")
	}
	cp := newClauseParser(input, piece)

	var field SelectField
	switch {
	case cp.cur.Type == TokenStar:
		if cp.peek.Type != TokenEOF {
			return SelectField{}, fmt.Errorf("unexpected %q after *", cp.tail())
		}
		return SelectField{Name: "*"}, nil
	case cp.cur.Type == TokenIdent && cp.peek.Type == TokenLParen && isAggregateName(cp.cur.Value):
		agg, column, err := cp.parseAggregate()
		if err != nil {
			return SelectField{}, err
		}
		field = SelectField{Name: column, Aggregate: agg}
	case cp.cur.Type == TokenIdent && cp.peek.Type != TokenLParen:
		field = SelectField{Name: cp.cur.Value}
	default:
		return SelectField{}, fmt.Errorf("unsupported select expression")
	}

	if cp.peekIs("AS") {
		cp.nextToken()
		if !cp.expectPeek(TokenIdent) {
			return SelectField{}, fmt.Errorf("expected alias after AS")
		}
		field.Alias = cp.cur.Value
	}
	if cp.peek.Type != TokenEOF {
		return SelectField{}, fmt.Errorf("unexpected %q in select item", cp.tail())
	}
	return field, nil
}

func isAggregateName(name string) bool {
	_, ok := aggregateFuncs[strings.ToUpper(name)]
	return ok
}

// parseAggregate parses FUNC '(' [DISTINCT] arg ')' with cur on FUNC.
func (p *clauseParser) parseAggregate() (Aggregate, string, error) {
	funcName := strings.ToUpper(p.cur.Value)
	agg := aggregateFuncs[funcName]

	p.nextToken() // (
	p.nextToken()

	if p.cur.Is("DISTINCT") {
		if agg != AggregateCount {
			return "", "", fmt.Errorf("DISTINCT is only supported in COUNT()")
		}
		agg = AggregateCountDistinct
		p.nextToken()
	}

	var column string
	switch {
	case p.cur.Type == TokenStar && agg != AggregateCountDistinct:
		column = "*"
	case p.cur.Type == TokenIdent:
		column = p.cur.Value
	default:
		return "", "", fmt.Errorf("expected column name or * in %s()", funcName)
	}

	if !p.expectPeek(TokenRParen) {
		return "", "", fmt.Errorf("expected ) after %s(%s", funcName, column)
	}
	return agg, column, nil
}

// ============================================================================
// FROM and JOIN
// ============================================================================

func (p *Parser) parseFrom(body []Token) error {
	cp := newClauseParser(p.input, body)
	if cp.cur.Type != TokenIdent {
		return fmt.Errorf("expected table name")
	}
	table := cp.cur.Value
	alias, err := cp.parseTableAlias()
	if err != nil {
		return err
	}

	p.result.Query.From = table
	p.result.Query.FromAlias = alias
	if cp.peek.Type != TokenEOF {
		p.report(Diagnostic{Clause: ClauseFrom, Message: "text after table name ignored", Text: cp.tail()})
	}
	return nil
}

// parseTableAlias reads an optional [AS] alias after the table name in cur.
func (p *clauseParser) parseTableAlias() (string, error) {
	if p.peekIs("AS") {
		p.nextToken()
		if !p.expectPeek(TokenIdent) {
			return "", fmt.Errorf("expected alias after AS")
		}
		return p.cur.Value, nil
	}
	if p.peek.Type == TokenIdent {
		p.nextToken()
		return p.cur.Value, nil
	}
	return "", nil
}

// joinTypeOf maps the words before JOIN to a join type.
func joinTypeOf(head []Token) JoinType {
	jt := JoinInner
	for _, tok := range head {
		switch tok.Value {
		case "LEFT":
			jt = JoinLeft
		case "RIGHT":
			jt = JoinRight
		case "CROSS":
			jt = JoinCross
		case "FULL", "OUTER":
			if jt == JoinInner {
				jt = JoinOuter
			}
		}
	}
	return jt
}

func (p *Parser) parseJoin(head, body []Token) error {
	cp := newClauseParser(p.input, body)
	if cp.cur.Type != TokenIdent {
		return fmt.Errorf("expected table name after JOIN")
	}

	join := Join{Type: joinTypeOf(head), Table: cp.cur.Value}
	alias, err := cp.parseTableAlias()
	if err != nil {
		return err
	}
	join.Alias = alias

	switch {
	case cp.peekIs("ON"):
		cp.nextToken()
		cp.nextToken()
		left, right, extra, err := cp.parseJoinCondition()
		if err != nil {
			p.report(Diagnostic{Clause: ClauseJoin, Message: err.Error(), Text: spanText(p.input, body)})
		} else {
			join.LeftCol, join.RightCol = left, right
			if extra != "" {
				p.report(Diagnostic{Clause: ClauseJoin, Message: "only one ON equality is supported", Text: extra})
			}
		}
	case cp.peek.Type != TokenEOF:
		p.report(Diagnostic{Clause: ClauseJoin, Message: "text after join table ignored", Text: cp.tail()})
	}

	p.result.Query.Joins = append(p.result.Query.Joins, join)
	return nil
}

// parseJoinCondition reads "left = right" from cur to the end of the clause.
// Anything after a top-level AND or OR is returned as extra.
func (p *clauseParser) parseJoinCondition() (left, right, extra string, err error) {
	rest := p.remaining()
	eq, stop := -1, len(rest)
	depth := 0
	for i, tok := range rest {
		switch {
		case tok.Type == TokenLParen:
			depth++
		case tok.Type == TokenRParen && depth > 0:
			depth--
		case depth == 0 && eq < 0 && tok.Type == TokenOperator && tok.Value == "=":
			eq = i
		case depth == 0 && eq >= 0 && (tok.Is("AND") || tok.Is("OR")):
			stop = i
		}
		if stop < len(rest) {
			break
		}
	}
	if eq < 0 {
		return "", "", "", fmt.Errorf("ON requires an equality")
	}
	left = spanText(p.input, rest[:eq])
	right = spanText(p.input, rest[eq+1:stop])
	if left == "" || right == "" {
		return "", "", "", fmt.Errorf("ON equality needs a column on both sides")
	}
	return left, right, spanText(p.input, rest[stop:]), nil
}

// ============================================================================
// WHERE
// ============================================================================

type conditionFragment struct {
	conj   Conjunction
	tokens []Token
}

// splitConditions cuts a WHERE body at AND/OR. The AND that closes a
// BETWEEN range is part of its condition. Parentheses are not tracked.
func splitConditions(tokens []Token) []conditionFragment {
	if len(tokens) == 0 {
		return nil
	}
	frags := []conditionFragment{{conj: And}}
	inBetween := false
	for _, tok := range tokens {
		switch {
		case tok.Is("BETWEEN"):
			inBetween = true
		case tok.Is("AND") && inBetween:
			inBetween = false
		case tok.Is("AND"):
			frags = append(frags, conditionFragment{conj: And})
			continue
		case tok.Is("OR"):
			frags = append(frags, conditionFragment{conj: Or})
			continue
		}
		last := &frags[len(frags)-1]
		last.tokens = append(last.tokens, tok)
	}
	return frags
}

// trimGroupingParens drops grouping parentheses from the edges of a
// condition: every leading '(' and each trailing ')' that has no partner.
func trimGroupingParens(tokens []Token) []Token {
	for len(tokens) > 0 && tokens[0].Type == TokenLParen {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].Type == TokenRParen && parenBalance(tokens) < 0 {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func parenBalance(tokens []Token) int {
	balance := 0
	for _, tok := range tokens {
		switch tok.Type {
		case TokenLParen:
			balance++
		case TokenRParen:
			balance--
		}
	}
	return balance
}

func (p *Parser) parseWhere(body []Token) error {
	conditions := []Condition{}
	for _, frag := range splitConditions(body) {
		tokens := trimGroupingParens(frag.tokens)
		if len(tokens) == 0 {
			p.report(Diagnostic{Clause: ClauseWhere, Message: "empty condition", Text: spanText(p.input, frag.tokens)})
			continue
		}
		cond, err := parseCondition(p.input, tokens)
		if err != nil {
			p.report(Diagnostic{Clause: ClauseWhere, Message: err.Error(), Text: spanText(p.input, tokens)})
			continue
		}
		cond.Conjunction = frag.conj
		conditions = append(conditions, cond)
	}
	p.result.Query.Where = conditions
	return nil
}

// parseCondition classifies one condition. Priority: IS [NOT] NULL,
// BETWEEN, [NOT] IN, [NOT] LIKE, binary comparison.
func parseCondition(input string, tokens []Token) (Condition, error) {
	cp := newClauseParser(input, tokens)
	if cp.cur.Type != TokenIdent {
		return Condition{}, fmt.Errorf("expected column name")
	}
	cond := Condition{Column: cp.cur.Value, Conjunction: And}
	cp.nextToken()

	not := false
	if cp.cur.Is("NOT") && (cp.peekIs("IN") || cp.peekIs("LIKE")) {
		not = true
		cp.nextToken()
	}

	switch {
	case cp.cur.Is("IS") && !not:
		cond.Operator = OpIsNull
		if cp.peekIs("NOT") {
			cp.nextToken()
			cond.Operator = OpIsNotNull
		}
		if !cp.peekIs("NULL") {
			return Condition{}, fmt.Errorf("expected NULL after IS")
		}
		cp.nextToken()
		if cp.peek.Type != TokenEOF {
			return Condition{}, fmt.Errorf("unexpected %q after IS NULL", cp.tail())
		}
		cond.Value = NoValue{}

	case cp.cur.Is("BETWEEN") && !not:
		cp.nextToken()
		low, high, err := cp.parseRange()
		if err != nil {
			return Condition{}, err
		}
		cond.Operator = OpBetween
		cond.Value = Range{Low: low, High: high}

	case cp.cur.Is("IN"):
		cond.Operator = OpIn
		if not {
			cond.Operator = OpNotIn
		}
		list, err := cp.parseValueList()
		if err != nil {
			return Condition{}, err
		}
		cond.Value = list

	case cp.cur.Is("LIKE"):
		cond.Operator = OpLike
		if not {
			cond.Operator = OpNotLike
		}
		cp.nextToken()
		if cp.cur.Type == TokenEOF {
			return Condition{}, fmt.Errorf("missing value after LIKE")
		}
		cond.Value = Single{Value: ParseScalar(cp.rest())}

	case cp.cur.Type == TokenOperator:
		cond.Operator = Operator(cp.cur.Value)
		if cp.cur.Value == "<>" {
			cond.Operator = OpNe
		}
		cp.nextToken()
		if cp.cur.Type == TokenEOF {
			return Condition{}, fmt.Errorf("missing value after %s", cond.Operator)
		}
		cond.Value = Single{Value: ParseScalar(cp.rest())}

	default:
		return Condition{}, fmt.Errorf("unsupported condition")
	}
	return cond, nil
}

// parseRange reads "low AND high" starting at cur.
func (p *clauseParser) parseRange() (Scalar, Scalar, error) {
	rest := p.remaining()
	for i, tok := range rest {
		if tok.Is("AND") {
			low := spanText(p.input, rest[:i])
			high := spanText(p.input, rest[i+1:])
			if low == "" || high == "" {
				break
			}
			return ParseScalar(low), ParseScalar(high), nil
		}
	}
	return Scalar{}, Scalar{}, fmt.Errorf("BETWEEN requires low AND high")
}

// parseValueList reads "( v1, v2, ... )" with cur on IN.
func (p *clauseParser) parseValueList() (List, error) {
	if !p.expectPeek(TokenLParen) {
		return nil, fmt.Errorf("expected ( after IN")
	}
	p.nextToken()
	rest := p.remaining()
	if len(rest) == 0 || rest[len(rest)-1].Type != TokenRParen {
		return nil, fmt.Errorf("unterminated IN list")
	}

	list := List{}
	for _, piece := range splitTopLevel(rest[:len(rest)-1], TokenComma) {
		if len(piece) == 0 {
			return nil, fmt.Errorf("empty item in IN list")
		}
		list = append(list, ParseScalar(spanText(p.input, piece)))
	}
	return list, nil
}

// ============================================================================
// GROUP BY, ORDER BY, LIMIT
// ============================================================================

func (p *Parser) parseGroupBy(body []Token) error {
	columns := []string{}
	for _, piece := range splitTopLevel(body, TokenComma) {
		if len(piece) == 0 {
			p.report(Diagnostic{Clause: ClauseGroupBy, Message: "empty column"})
			continue
		}
		columns = append(columns, spanText(p.input, piece))
	}
	p.result.Query.GroupBy = columns
	return nil
}

func (p *Parser) parseOrderBy(body []Token) error {
	specs := []OrderSpec{}
	for _, piece := range splitTopLevel(body, TokenComma) {
		dir := Asc
		if n := len(piece); n > 0 && (piece[n-1].Is("ASC") || piece[n-1].Is("DESC")) {
			dir = Direction(piece[n-1].Value)
			piece = piece[:n-1]
		}
		if len(piece) == 0 {
			p.report(Diagnostic{Clause: ClauseOrderBy, Message: "empty column"})
			continue
		}
		specs = append(specs, OrderSpec{Column: spanText(p.input, piece), Direction: dir})
	}
	p.result.Query.OrderBy = specs
	return nil
}

func (p *Parser) parseLimit(body []Token) error {
	text := spanText(p.input, body)
	digits := leadingDigits(text)
	if digits == "" {
		return fmt.Errorf("LIMIT expects a positive integer")
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return fmt.Errorf("LIMIT %s is out of range", digits)
	}
	if n == 0 {
		return fmt.Errorf("LIMIT 0 ignored")
	}
	p.result.Query.Limit = n
	if len(digits) < len(text) {
		p.report(Diagnostic{Clause: ClauseLimit, Message: "text after LIMIT value ignored", Text: text[len(digits):]})
	}
	return nil
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i]
}

// ============================================================================
// Clause token cursor
// ============================================================================

// clauseParser walks the tokens of one clause with a cur/peek pair.
type clauseParser struct {
	input  string
	tokens []Token
	pos    int
	cur    Token
	peek   Token
}

func newClauseParser(input string, tokens []Token) *clauseParser {
	p := &clauseParser{input: input, tokens: tokens, pos: -1}
	p.nextToken()
	return p
}

func (p *clauseParser) nextToken() {
	p.pos++
	p.cur = p.at(p.pos)
	p.peek = p.at(p.pos + 1)
}

func (p *clauseParser) at(i int) Token {
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	end := 0
	if n := len(p.tokens); n > 0 {
		end = p.tokens[n-1].End
	}
	return Token{Type: TokenEOF, Pos: end, End: end}
}

// expectPeek advances if the next token has type t.
func (p *clauseParser) expectPeek(t TokenType) bool {
	if p.peek.Type == t {
		p.nextToken()
		return true
	}
	return false
}

func (p *clauseParser) peekIs(keyword string) bool {
	return p.peek.Is(keyword)
}

// remaining returns the tokens from cur to the end of the clause.
func (p *clauseParser) remaining() []Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return p.tokens[p.pos:]
}

// rest returns the source text from cur to the end of the clause.
func (p *clauseParser) rest() string {
	return spanText(p.input, p.remaining())
}

// tail returns the source text after cur.
func (p *clauseParser) tail() string {
	if p.pos+1 >= len(p.tokens) {
		return ""
	}
	return spanText(p.input, p.tokens[p.pos+1:])
}
