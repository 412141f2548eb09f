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
Package wizard provides the interactive configuration wizard behind
"querysync config init".

Interactive Flow:
=================

 1. Server: listen address, log level, JSON logs
 2. Parse cache: on or off, size, TTL
 3. Preview: sample database path, row limit, timeout
 4. Summary

Every prompt shows the current value in brackets; pressing Enter keeps it.
Invalid answers are rejected and the prompt repeats. End of input keeps the
remaining values unchanged.
*/
package wizard

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"querysync/internal/banner"
	"querysync/internal/config"
)

// Wizard asks for configuration values on in and writes prompts to out.
type Wizard struct {
	in    *bufio.Reader
	out   io.Writer
	color bool
}

// New creates a wizard.
func New(in io.Reader, out io.Writer, color bool) *Wizard {
	return &Wizard{in: bufio.NewReader(in), out: out, color: color}
}

// Run walks through every step starting from base and returns the new
// configuration. base is not modified.
func (w *Wizard) Run(base *config.Config) (*config.Config, error) {
	cfg := *base

	w.printHeader()

	w.printStepHeader(1, "Server")
	cfg.ListenAddr = w.promptWithValidation("Listen address", cfg.ListenAddr, validateAddress)
	cfg.LogLevel = strings.ToLower(w.promptWithValidation("Log level (debug, info, warn, error)", cfg.LogLevel, validateLogLevel))
	cfg.LogJSON = w.promptYesNo("JSON log output", cfg.LogJSON)
	fmt.Fprintln(w.out)

	w.printStepHeader(2, "Parse cache")
	cfg.CacheEnabled = w.promptYesNo("Cache parse results", cfg.CacheEnabled)
	if cfg.CacheEnabled {
		cfg.CacheEntries = w.promptInt("Cache entries", cfg.CacheEntries, 1, 1<<20)
		cfg.CacheTTLSecs = w.promptInt("Cache TTL in seconds", cfg.CacheTTLSecs, 0, 86400)
	}
	fmt.Fprintln(w.out)

	w.printStepHeader(3, "Preview")
	fmt.Fprintln(w.out, "  "+w.paint(banner.AnsiDim, "Leave the database path empty to disable previews."))
	cfg.PreviewDB = w.promptWithDefault("SQLite database path", cfg.PreviewDB)
	if cfg.PreviewEnabled() {
		cfg.PreviewRowLimit = w.promptInt("Row limit", cfg.PreviewRowLimit, 1, config.MaxPreviewRowLimit)
		cfg.PreviewTimeoutSecs = w.promptInt("Timeout in seconds", cfg.PreviewTimeoutSecs, 1, 300)
	}
	fmt.Fprintln(w.out)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w.printSummary(&cfg)
	return &cfg, nil
}

func (w *Wizard) paint(codes, s string) string {
	if !w.color {
		return s
	}
	return codes + s + banner.AnsiReset
}

func (w *Wizard) printHeader() {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "  "+w.paint(banner.AnsiCyan+banner.AnsiBold, "querysync configuration wizard"))
	fmt.Fprintln(w.out, "  "+w.paint(banner.AnsiDim, strings.Repeat("-", 56)))
	fmt.Fprintln(w.out)
}

func (w *Wizard) printStepHeader(step int, title string) {
	fmt.Fprintf(w.out, "  %s %s\n", w.paint(banner.AnsiBold, fmt.Sprintf("Step %d:", step)), w.paint(banner.AnsiBold, title))
	fmt.Fprintln(w.out, "  "+w.paint(banner.AnsiDim, strings.Repeat("-", 56)))
}

func (w *Wizard) printError(msg string) {
	fmt.Fprintln(w.out, "  "+w.paint(banner.AnsiRed, msg))
}

// promptWithDefault displays a prompt and returns user input or the default value.
func (w *Wizard) promptWithDefault(prompt, defaultVal string) string {
	fmt.Fprintf(w.out, "  %s [%s]: ", prompt, w.paint(banner.AnsiYellow, defaultVal))
	input, err := w.in.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		if err != nil {
			fmt.Fprintln(w.out)
		}
		return defaultVal
	}
	return input
}

func (w *Wizard) promptWithValidation(prompt, defaultVal string, validate func(string) bool) string {
	for {
		value := w.promptWithDefault(prompt, defaultVal)
		if validate(value) {
			return value
		}
		w.printError("Invalid input. Please try again.")
	}
}

func (w *Wizard) promptInt(prompt string, defaultVal, min, max int) int {
	value := w.promptWithValidation(prompt, strconv.Itoa(defaultVal), func(s string) bool {
		n, err := strconv.Atoi(s)
		return err == nil && n >= min && n <= max
	})
	n, _ := strconv.Atoi(value)
	return n
}

func (w *Wizard) promptYesNo(prompt string, defaultVal bool) bool {
	value := w.promptWithValidation(prompt+" (y/n)", boolToYesNo(defaultVal), func(s string) bool {
		_, ok := parseYesNo(s)
		return ok
	})
	b, _ := parseYesNo(value)
	return b
}

func (w *Wizard) printSummary(cfg *config.Config) {
	fmt.Fprintln(w.out, "  "+w.paint(banner.AnsiBold, "Configuration Summary"))
	fmt.Fprintln(w.out, "  "+w.paint(banner.AnsiDim, strings.Repeat("-", 56)))
	for _, line := range strings.Split(strings.TrimRight(cfg.String(), "\n"), "\n") {
		fmt.Fprintln(w.out, "  "+line)
	}
	fmt.Fprintln(w.out)
}

// validateAddress accepts host:port and :port.
func validateAddress(addr string) bool {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	return ValidatePort(port)
}

func validateLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ValidatePort reports whether port is a number between 1 and 65535.
func ValidatePort(port string) bool {
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

func boolToYesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

func parseYesNo(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true, true
	case "n", "no", "false", "0":
		return false, true
	}
	return false, false
}
