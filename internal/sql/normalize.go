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
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize strips -- and /* */ comments, collapses every whitespace run to
// a single space and trims the result. Quoted literals and backtick names
// are copied untouched, so a "--" inside 'a--b' is not a comment.
func Normalize(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	pendingSpace := false
	writeByte := func(b byte) {
		if pendingSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		pendingSpace = false
		sb.WriteByte(b)
	}

	for i := 0; i < len(text); {
		ch := text[i]

		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			end := quotedEnd(text, i)
			writeByte(ch)
			sb.WriteString(text[i+1 : end])
			i = end
			continue

		case ch == '-' && i+1 < len(text) && text[i+1] == '-':
			for i < len(text) && text[i] != '\n' {
				i++
			}
			pendingSpace = true
			continue

		case ch == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				i = len(text)
			} else {
				i += 2 + end + 2
			}
			pendingSpace = true
			continue
		}

		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			pendingSpace = true
			i += size
			continue
		}
		if pendingSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		pendingSpace = false
		sb.WriteString(text[i : i+size])
		i += size
	}
	return sb.String()
}

// quotedEnd returns the offset just past the literal opened at text[start].
// Doubled quote characters are part of the literal. An unterminated literal
// ends at the end of text.
func quotedEnd(text string, start int) int {
	quote := text[start]
	i := start + 1
	for i < len(text) {
		if text[i] == quote {
			if quote != '`' && i+1 < len(text) && text[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(text)
}
