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
Package sql contains the Lexer component for SQL tokenization.

Lexer Overview:
===============

The Lexer turns normalized SQL text into a stream of tokens for the clause
segmenter and the clause parsers. Every token records the byte span it was
read from, so parsers can always recover the exact source text of a value.

	Input: "SELECT name FROM users WHERE id <> 1"

	Output Tokens:
	  1. {TokenKeyword,  "SELECT", 0,  6}
	  2. {TokenIdent,    "name",   7,  11}
	  3. {TokenKeyword,  "FROM",   12, 16}
	  4. {TokenIdent,    "users",  17, 22}
	  5. {TokenKeyword,  "WHERE",  23, 28}
	  6. {TokenIdent,    "id",     29, 31}
	  7. {TokenOperator, "<>",     32, 34}
	  8. {TokenNumber,   "1",      35, 36}

Keywords:
=========

Only words that steer the grammar are keywords; everything else, including
aggregate function names, is an identifier. Keywords are case-insensitive
and are folded to upper case.

String Literals:
================

Single- and double-quoted literals are one token. A doubled quote character
inside a literal is an escaped quote: 'O''Brien'. Backtick-quoted names are
identifiers and keep their backticks.
*/
package sql

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF       TokenType = iota // End of input
	TokenIdent                      // Identifier, possibly qualified (t.col, t.*)
	TokenString                     // Quoted literal ('x' or "x")
	TokenNumber                     // Numeric literal (1, -2.5, 1e3, .5)
	TokenKeyword                    // Grammar keyword (SELECT, FROM, ...)
	TokenComma                      // ,
	TokenLParen                     // (
	TokenRParen                     // )
	TokenStar                       // *
	TokenOperator                   // = != <> < <= > >=
	TokenSemicolon                  // ;
	TokenIllegal                    // Any other character
)

var tokenTypeNames = [...]string{
	TokenEOF:       "EOF",
	TokenIdent:     "IDENT",
	TokenString:    "STRING",
	TokenNumber:    "NUMBER",
	TokenKeyword:   "KEYWORD",
	TokenComma:     "COMMA",
	TokenLParen:    "LPAREN",
	TokenRParen:    "RPAREN",
	TokenStar:      "STAR",
	TokenOperator:  "OPERATOR",
	TokenSemicolon: "SEMICOLON",
	TokenIllegal:   "ILLEGAL",
}

func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return "UNKNOWN"
}

// Token is a single lexical unit. Pos and End are byte offsets into the
// lexer input; input[Pos:End] is the raw source text of the token. For
// string tokens Value holds the unquoted, unescaped content.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
	End   int
}

// Is reports whether the token is the given keyword.
func (t Token) Is(keyword string) bool {
	return t.Type == TokenKeyword && t.Value == keyword
}

// keywords is the set of words the grammar reacts to.
var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AS": true,
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true,
	"FULL": true, "OUTER": true, "CROSS": true, "ON": true,
	"AND": true, "OR": true, "NOT": true, "IS": true, "NULL": true,
	"IN": true, "LIKE": true, "BETWEEN": true,
	"GROUP": true, "ORDER": true, "BY": true, "LIMIT": true,
	"ASC": true, "DESC": true, "DISTINCT": true,
	"TRUE": true, "FALSE": true,
}

// IsKeyword reports whether word (any case) is a grammar keyword.
func IsKeyword(word string) bool {
	return keywords[strings.ToUpper(word)]
}

// Lexer transforms an input string into a stream of tokens.
type Lexer struct {
	input string
	pos   int
	prev  TokenType
	upper cases.Caser
}

// NewLexer creates a new Lexer for the given input string.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		prev:  TokenEOF,
		upper: cases.Upper(language.Und),
	}
}

// Tokenize returns every token of input, excluding the final EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenEOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// NextToken advances the lexer and returns the next token.
//
// Token recognition order:
//  1. End of input
//  2. Identifier or keyword (letter or underscore), or `backtick` name
//  3. Number, including a sign that cannot be a binary minus
//  4. Quoted literal
//  5. Operators and punctuation
func (l *Lexer) NextToken() Token {
	tok := l.scan()
	l.prev = tok.Type
	return tok
}

func (l *Lexer) scan() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: len(l.input), End: len(l.input)}
	}

	start := l.pos
	ch := l.input[l.pos]
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])

	if isIdentStart(r) {
		l.readWord()
		l.readQualifier()
		lit := l.input[start:l.pos]
		if !strings.Contains(lit, ".") {
			upper := l.upper.String(lit)
			if keywords[upper] {
				return Token{Type: TokenKeyword, Value: upper, Pos: start, End: l.pos}
			}
		}
		return Token{Type: TokenIdent, Value: lit, Pos: start, End: l.pos}
	}

	if ch == '`' {
		l.readBacktick()
		l.readQualifier()
		return Token{Type: TokenIdent, Value: l.input[start:l.pos], Pos: start, End: l.pos}
	}

	if l.startsNumber() {
		l.readNumber()
		return Token{Type: TokenNumber, Value: l.input[start:l.pos], Pos: start, End: l.pos}
	}

	if ch == '\'' || ch == '"' {
		value := l.readQuoted(ch)
		return Token{Type: TokenString, Value: value, Pos: start, End: l.pos}
	}

	switch ch {
	case '<':
		l.pos++
		if l.pos < len(l.input) && (l.input[l.pos] == '=' || l.input[l.pos] == '>') {
			l.pos++
		}
		return l.token(TokenOperator, start)
	case '>':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
		}
		return l.token(TokenOperator, start)
	case '!':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			l.pos += 2
			return l.token(TokenOperator, start)
		}
	case '=':
		l.pos++
		return l.token(TokenOperator, start)
	case ',':
		l.pos++
		return l.token(TokenComma, start)
	case '(':
		l.pos++
		return l.token(TokenLParen, start)
	case ')':
		l.pos++
		return l.token(TokenRParen, start)
	case '*':
		l.pos++
		return l.token(TokenStar, start)
	case ';':
		l.pos++
		return l.token(TokenSemicolon, start)
	}

	_, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	return l.token(TokenIllegal, start)
}

func (l *Lexer) token(t TokenType, start int) Token {
	return Token{Type: t, Value: l.input[start:l.pos], Pos: start, End: l.pos}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *Lexer) readWord() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isIdentPart(r) {
			return
		}
		l.pos += size
	}
}

func (l *Lexer) readBacktick() {
	l.pos++ // opening `
	for l.pos < len(l.input) && l.input[l.pos] != '`' {
		l.pos++
	}
	if l.pos < len(l.input) {
		l.pos++
	}
}

// readQualifier consumes ".name", ".`name`" or ".*" suffixes.
func (l *Lexer) readQualifier() {
	for l.pos+1 < len(l.input) && l.input[l.pos] == '.' {
		next := l.input[l.pos+1]
		r, _ := utf8.DecodeRuneInString(l.input[l.pos+1:])
		switch {
		case next == '*':
			l.pos += 2
			return
		case next == '`':
			l.pos++
			l.readBacktick()
		case isIdentPart(r):
			l.pos++
			l.readWord()
		default:
			return
		}
	}
}

// startsNumber reports whether a numeric literal begins at the current
// position. A sign only belongs to the number when the previous token
// cannot end an operand, so "a-1" is never read as "a" "-1".
func (l *Lexer) startsNumber() bool {
	i := l.pos
	ch := l.input[i]
	if ch == '+' || ch == '-' {
		switch l.prev {
		case TokenIdent, TokenNumber, TokenString, TokenRParen, TokenStar:
			return false
		}
		i++
		if i >= len(l.input) {
			return false
		}
		ch = l.input[i]
	}
	if isDigit(ch) {
		return true
	}
	return ch == '.' && i+1 < len(l.input) && isDigit(l.input[i+1])
}

func (l *Lexer) readNumber() {
	if c := l.input[l.pos]; c == '+' || c == '-' {
		l.pos++
	}
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		i := l.pos + 1
		if i < len(l.input) && (l.input[i] == '+' || l.input[i] == '-') {
			i++
		}
		if i < len(l.input) && isDigit(l.input[i]) {
			l.pos = i
			for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
				l.pos++
			}
		}
	}
}

// readQuoted consumes a quoted literal and returns its unescaped content.
// An unterminated literal runs to the end of input.
func (l *Lexer) readQuoted(quote byte) string {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == quote {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == quote {
				sb.WriteByte(quote)
				l.pos += 2
				continue
			}
			l.pos++
			return sb.String()
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return sb.String()
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// skipWhitespace advances the position past any whitespace characters.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}
