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
Package banner prints the startup banner for the querysync server and shell.

ANSI Color Codes:
=================

Format: \033[<code>m

  - 31: Red foreground
  - 32: Green foreground
  - 33: Yellow foreground
  - 36: Cyan foreground
  - 0:  Reset all attributes
  - 1:  Bold text

Callers pass color=false when the output is not a terminal; every escape
code is then left out.
*/
package banner

import (
	"fmt"
	"io"
	"strings"

	"querysync/internal/config"
)

const logo = `
  ___                        ____
 / _ \ _   _  ___ _ __ _   _/ ___| _   _ _ __   ___
| | | | | | |/ _ \ '__| | | \___ \| | | | '_ \ / __|
| |_| | |_| |  __/ |  | |_| |___) | |_| | | | | (__
 \__\_\\__,_|\___|_|   \__, |____/ \__, |_| |_|\___|
                       |___/       |___/`

// ANSI escape codes for terminal text formatting.
const (
	AnsiRed    = "\033[31m"
	AnsiGreen  = "\033[32m"
	AnsiYellow = "\033[33m"
	AnsiCyan   = "\033[36m"
	AnsiReset  = "\033[0m"
	AnsiBold   = "\033[1m"
	AnsiDim    = "\033[2m"
)

// Version information reported by the binaries and the health endpoint.
const (
	Version   = "0.4.0"
	Copyright = "(c)2026 Firefly Software Solutions Inc"
	License   = "Licensed under Apache 2.0"
)

type painter struct {
	color bool
}

func (p painter) paint(codes, s string) string {
	if !p.color {
		return s
	}
	return codes + s + AnsiReset
}

// PrintShell writes the interactive shell banner.
func PrintShell(w io.Writer, color bool) {
	p := painter{color: color}
	fmt.Fprintln(w, p.paint(AnsiCyan, logo))
	fmt.Fprintln(w, p.paint(AnsiCyan+AnsiBold, ":: querysync shell ::           (v"+Version+")"))
	fmt.Fprintln(w, p.paint(AnsiDim, "  "+Copyright+" - "+License))
	fmt.Fprintln(w)
}

// PrintServerWithConfig writes the server banner and the effective
// configuration, followed by a separator before the logs start.
func PrintServerWithConfig(w io.Writer, cfg *config.Config, color bool) {
	p := painter{color: color}

	fmt.Fprintln(w, p.paint(AnsiCyan, logo))
	fmt.Fprintln(w, p.paint(AnsiCyan+AnsiBold, ":: querysync API ::             (v"+Version+")"))
	fmt.Fprintln(w, p.paint(AnsiDim, "  SQL SELECT <-> query model translator"))
	fmt.Fprintln(w)

	source := p.paint(AnsiDim, "defaults + environment")
	if cfg.ConfigFile != "" {
		source = p.paint(AnsiYellow, cfg.ConfigFile)
	}
	fmt.Fprintf(w, "  %s %s\n\n", p.paint(AnsiDim, "Config:"), source)

	p.section(w, "Server")
	p.row(w, p.kv("Listen", p.paint(AnsiGreen, cfg.ListenAddr)), p.kv("Log", cfg.LogLevel))
	fmt.Fprintln(w)

	p.section(w, "Parse cache")
	if cfg.CacheEnabled {
		p.row(w, p.kv("Entries", fmt.Sprintf("%d", cfg.CacheEntries)), p.kv("TTL", cfg.CacheTTL().String()))
	} else {
		p.row(w, p.kv("Cache", p.paint(AnsiDim, "disabled")), "")
	}
	fmt.Fprintln(w)

	p.section(w, "Preview")
	if cfg.PreviewEnabled() {
		p.row(w, p.kv("Database", cfg.PreviewDB), p.kv("Rows", fmt.Sprintf("%d", cfg.PreviewRowLimit)))
	} else {
		p.row(w, p.kv("Preview", p.paint(AnsiDim, "disabled")), "")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, p.paint(AnsiDim, "  "+Copyright))
	fmt.Fprintln(w)
	p.logSeparator(w)
}

func (p painter) section(w io.Writer, title string) {
	const width = 78
	rightPad := width - 2 - len(title) - 4
	if rightPad < 0 {
		rightPad = 0
	}
	fmt.Fprintf(w, "  %s[ %s ]%s\n", p.paint(AnsiDim, "--"), p.paint(AnsiCyan+AnsiBold, title), p.paint(AnsiDim, strings.Repeat("-", rightPad)))
}

func (p painter) kv(key, value string) string {
	return p.paint(AnsiDim, key+":") + " " + value
}

func (p painter) row(w io.Writer, col1, col2 string) {
	fmt.Fprintf(w, "  %-40s %s\n", col1, col2)
}

func (p painter) logSeparator(w io.Writer) {
	const lineWidth = 78
	text := " LOGS START HERE "
	padding := (lineWidth - len(text) - 4) / 2
	if padding < 0 {
		padding = 0
	}
	line := strings.Repeat("-", padding)
	fmt.Fprintf(w, "  %s%s%s\n\n", p.paint(AnsiYellow, "vv"+line), p.paint(AnsiBold, text), p.paint(AnsiYellow, line+"vv"))
}
