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
Package textenc decodes SQL input files into Go strings.

Query files exported from older tools are not always UTF-8. The CLI reads
them as bytes and decodes them here before parsing, so quoted literals such
as 'Müller' survive intact.

Supported Encodings:
====================

  - utf8 (default): must be valid UTF-8; a leading byte order mark is dropped
  - latin1: ISO 8859-1
  - windows1252: Windows code page 1252
  - ascii: 7-bit only, any byte above 0x7F is an error
  - utf16: byte order taken from the BOM, big endian without one
  - utf16le, utf16be: fixed byte order, a BOM is still honored
*/
package textenc

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decoder converts bytes in one character encoding to a Go string.
type Decoder interface {
	Decode(b []byte) (string, error)
	Name() string
}

type utf8Decoder struct{}

func (utf8Decoder) Decode(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		return "", fmt.Errorf("invalid UTF-8 sequence at byte %d", invalidOffset(b))
	}
	return string(b), nil
}

func (utf8Decoder) Name() string { return "utf8" }

func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}

type asciiDecoder struct{}

func (asciiDecoder) Decode(b []byte) (string, error) {
	for i, c := range b {
		if c > 0x7F {
			return "", fmt.Errorf("non-ASCII byte 0x%02X at byte %d", c, i)
		}
	}
	return string(b), nil
}

func (asciiDecoder) Name() string { return "ascii" }

// xtextDecoder wraps a golang.org/x/text encoding.
type xtextDecoder struct {
	name string
	enc  encoding.Encoding
}

func (d xtextDecoder) Decode(b []byte) (string, error) {
	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("invalid %s input: %w", d.name, err)
	}
	return string(out), nil
}

func (d xtextDecoder) Name() string { return d.name }

// Lookup returns the decoder for name. Names are case-insensitive and
// ignore '-' and '_', so "UTF-8", "utf_8" and "utf8" are the same. An
// empty name selects utf8.
func Lookup(name string) (Decoder, error) {
	key := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(name)))
	switch key {
	case "", "utf8":
		return utf8Decoder{}, nil
	case "ascii", "usascii":
		return asciiDecoder{}, nil
	case "latin1", "iso88591":
		return xtextDecoder{name: "latin1", enc: charmap.ISO8859_1}, nil
	case "windows1252", "cp1252":
		return xtextDecoder{name: "windows1252", enc: charmap.Windows1252}, nil
	case "utf16":
		return xtextDecoder{name: "utf16", enc: unicode.UTF16(unicode.BigEndian, unicode.UseBOM)}, nil
	case "utf16le":
		return xtextDecoder{name: "utf16le", enc: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)}, nil
	case "utf16be":
		return xtextDecoder{name: "utf16be", enc: unicode.UTF16(unicode.BigEndian, unicode.UseBOM)}, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", name)
}

// Decode decodes b using the named encoding.
func Decode(b []byte, name string) (string, error) {
	d, err := Lookup(name)
	if err != nil {
		return "", err
	}
	return d.Decode(b)
}
