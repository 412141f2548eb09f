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
Package main is the querysync interactive shell.

The shell reads SELECT statements terminated by ';', parses them into the
query model and prints the canonical SQL together with any parse warnings.
The last model stays current, so backslash commands can show it as JSON,
format it, validate it, cross-check it against the MySQL grammar or run a
row-limited preview against the configured SQLite database.

Line Editing:
=============

On a terminal the shell uses readline: history (saved to history_file),
Tab completion of keywords and commands, Ctrl+C to drop the statement being
typed and Ctrl+D to exit. When stdin is piped, lines are read one by one
without prompts, so scripts can be fed in directly.
*/
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"querysync/internal/banner"
	"querysync/internal/config"
	"querysync/internal/errors"
	"querysync/internal/logging"
	"querysync/internal/preview"
)

// isTerminal returns true if stdin is a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var completions = []string{
	"SELECT", "DISTINCT", "FROM", "WHERE", "AND", "OR", "NOT", "IN", "LIKE",
	"BETWEEN", "IS NULL", "IS NOT NULL", "JOIN", "INNER JOIN", "LEFT JOIN",
	"RIGHT JOIN", "FULL JOIN", "CROSS JOIN", "ON", "AS", "GROUP BY",
	"ORDER BY", "ASC", "DESC", "LIMIT", "COUNT", "SUM", "AVG", "MIN", "MAX",
}

// createCompleter creates a readline completer for tab completion.
func createCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(completions)+len(shellCommands))
	for _, kw := range completions {
		items = append(items, readline.PcItem(kw))
	}
	for _, c := range shellCommands {
		items = append(items, readline.PcItem(c.name))
	}
	return readline.NewPrefixCompleter(items...)
}

// filterInput filters input runes for readline.
func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func main() {
	cmd := &cli.Command{
		Name:    "querysync-shell",
		Usage:   "interactive SELECT editor",
		Version: banner.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "configuration file `PATH`"},
			&cli.StringFlag{Name: "preview-db", Usage: "SQLite `PATH` for \\run"},
			&cli.StringFlag{Name: "execute", Aliases: []string{"e"}, Usage: "run `STATEMENT` and exit"},
			&cli.BoolFlag{Name: "no-color", Usage: "disable colored output"},
		},
		Action: runShell,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errors.FormatError(err))
		os.Exit(1)
	}
}

func runShell(ctx context.Context, cmd *cli.Command) error {
	mgr := config.NewManager()
	if err := mgr.Load(cmd.String("config")); err != nil {
		return err
	}
	values := map[string]string{}
	if v := cmd.String("preview-db"); v != "" {
		values["preview_db"] = v
	}
	if err := mgr.ApplyValues(values); err != nil {
		return err
	}
	cfg := mgr.Get()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Only errors reach the terminal; warnings are shown inline.
	logging.Configure(logging.Config{
		Level:  logging.ERROR,
		Output: os.Stderr,
		Color:  term.IsTerminal(int(os.Stderr.Fd())),
	})

	var runner *preview.Runner
	if cfg.PreviewEnabled() {
		r, err := preview.Open(cfg.PreviewDB, preview.Options{
			RowLimit: cfg.PreviewRowLimit,
			Timeout:  cfg.PreviewTimeout(),
		})
		if err != nil {
			return err
		}
		defer r.Close()
		runner = r
	}

	interactive := isTerminal()
	color := interactive && !cmd.Bool("no-color")
	s := newSession(os.Stdout, color, runner)

	if stmt := cmd.String("execute"); stmt != "" {
		for _, line := range strings.Split(stmt, "\n") {
			s.feed(ctx, line)
		}
		if s.inStatement() {
			s.feed(ctx, ";")
		}
		return nil
	}

	if !interactive {
		runSimpleREPL(ctx, s, os.Stdin)
		return nil
	}

	banner.PrintShell(os.Stdout, color)
	fmt.Printf("  Type %s to quit, %s for help, %s for completion\n\n",
		s.paint(banner.AnsiYellow, "\\q"),
		s.paint(banner.AnsiYellow, "\\h"),
		s.paint(banner.AnsiYellow, "Tab"))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:              s.paint(banner.AnsiCyan, "querysync") + s.paint(banner.AnsiDim, ">") + " ",
		HistoryFile:         os.ExpandEnv(cfg.HistoryFile),
		AutoComplete:        createCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Advanced line editing unavailable:", err)
		runSimpleREPL(ctx, s, os.Stdin)
		return nil
	}
	defer rl.Close()

	prompt := s.paint(banner.AnsiCyan, "querysync") + s.paint(banner.AnsiDim, ">") + " "
	continuation := s.paint(banner.AnsiDim, "        -> ")
	for {
		if s.inStatement() {
			rl.SetPrompt(continuation)
		} else {
			rl.SetPrompt(prompt)
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if s.inStatement() {
				s.cancel()
				continue
			}
			fmt.Println(s.paint(banner.AnsiDim, "(Use \\q to quit or Ctrl+D to exit)"))
			continue
		}
		if err != nil {
			fmt.Println()
			fmt.Println("Goodbye!")
			return nil
		}

		if s.feed(ctx, line) {
			fmt.Println("Goodbye!")
			return nil
		}
	}
}

// runSimpleREPL reads lines from in without prompts or line editing.
func runSimpleREPL(ctx context.Context, s *session, in io.Reader) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if s.feed(ctx, scanner.Text()) {
			return
		}
	}
	if s.inStatement() {
		s.feed(ctx, ";")
	}
}
