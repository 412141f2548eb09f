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
Package main is the querysync command-line tool.

Commands:
=========

	querysync parse    [SQL]     SELECT text -> query model JSON
	querysync generate [MODEL]   query model JSON (or SQL) -> canonical SQL
	querysync format   [SQL]     multi-line layout of SELECT text
	querysync validate [MODEL]   structural problems of a model
	querysync check    [MODEL]   MySQL grammar cross-check of the generated SQL
	querysync serve              HTTP API for the visual editor
	querysync discover           API servers announced over mDNS
	querysync config             print the effective configuration
	querysync config init        interactive configuration wizard

Input comes from the arguments, from --file, or from stdin when stdin is
not a terminal. Wherever a model is expected, SQL text is accepted too and
parsed first.

Configuration precedence: defaults, then the configuration file, then
QUERYSYNC_* environment variables, then command-line flags.
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"querysync/internal/api"
	"querysync/internal/banner"
	"querysync/internal/cache"
	"querysync/internal/compat"
	"querysync/internal/config"
	"querysync/internal/discovery"
	"querysync/internal/errors"
	"querysync/internal/logging"
	"querysync/internal/metrics"
	"querysync/internal/preview"
	qsql "querysync/internal/sql"
	"querysync/internal/textenc"
	"querysync/internal/wizard"
)

var logger = logging.NewLogger("cli")

// app holds the streams the commands read and write.
type app struct {
	in            io.Reader
	out           io.Writer
	stdinIsTTY    func() bool
	stdoutIsColor func() bool
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func main() {
	a := &app{
		in:            os.Stdin,
		out:           os.Stdout,
		stdinIsTTY:    func() bool { return isTerminal(os.Stdin) },
		stdoutIsColor: func() bool { return isTerminal(os.Stdout) },
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.command().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errors.FormatError(err))
		os.Exit(1)
	}
}

// inputFlags are shared by every command that reads SQL or a model.
func inputFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "read input from `PATH` instead of the arguments",
		},
		&cli.StringFlag{
			Name:  "encoding",
			Usage: "character `ENCODING` of --file or stdin (utf8, latin1, windows1252, ascii, utf16)",
		},
	}, extra...)
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:    "querysync",
		Usage:   "translate between SQL SELECT text and the visual query model",
		Version: banner.Version,
		Writer:  a.out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "configuration file `PATH`"},
			&cli.BoolFlag{Name: "verbose", Usage: "log at the configured level instead of errors only"},
		},
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "parse SELECT text into a query model",
				ArgsUsage: "[SQL]",
				Flags:     inputFlags(&cli.BoolFlag{Name: "compact", Usage: "print single-line JSON"}),
				Action:    a.runParse,
			},
			{
				Name:      "generate",
				Usage:     "generate canonical SQL from a query model",
				ArgsUsage: "[MODEL]",
				Flags:     inputFlags(&cli.BoolFlag{Name: "pretty", Usage: "print the formatted multi-line layout"}),
				Action:    a.runGenerate,
			},
			{
				Name:      "format",
				Usage:     "format SELECT text over several lines",
				ArgsUsage: "[SQL]",
				Flags:     inputFlags(),
				Action:    a.runFormat,
			},
			{
				Name:      "validate",
				Usage:     "report structural problems of a query model",
				ArgsUsage: "[MODEL]",
				Flags:     inputFlags(),
				Action:    a.runValidate,
			},
			{
				Name:      "check",
				Usage:     "cross-check the generated SQL against the MySQL grammar",
				ArgsUsage: "[MODEL]",
				Flags:     inputFlags(&cli.BoolFlag{Name: "json", Usage: "print the report as JSON"}),
				Action:    a.runCheck,
			},
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "listen `ADDR` (host:port)"},
					&cli.StringFlag{Name: "preview-db", Usage: "SQLite `PATH` for result previews"},
					&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
					&cli.BoolFlag{Name: "log-json", Usage: "JSON log output"},
					&cli.BoolFlag{Name: "no-cache", Usage: "disable the parse cache"},
					&cli.BoolFlag{Name: "advertise", Usage: "announce the API on the local network over mDNS"},
				},
				Action: a.runServe,
			},
			{
				Name:  "discover",
				Usage: "list querysync API servers announced on the local network",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Value: discovery.DefaultBrowseTimeout, Usage: "how long to wait for answers"},
					&cli.BoolFlag{Name: "json", Usage: "print the servers as JSON"},
				},
				Action: a.runDiscover,
			},
			{
				Name:  "config",
				Usage: "print the effective configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "toml", Usage: "print in configuration file format"},
				},
				Action: a.runConfig,
				Commands: []*cli.Command{
					{
						Name:  "init",
						Usage: "create a configuration file interactively",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write to `PATH`"},
						},
						Action: a.runConfigInit,
					},
				},
			},
		},
	}
}

// loadConfig loads the configuration and sets up logging for a command.
func (a *app) loadConfig(cmd *cli.Command) (*config.Config, error) {
	mgr := config.NewManager()
	if err := mgr.Load(cmd.String("config")); err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := logging.ERROR
	if cmd.Bool("verbose") {
		level = logging.ParseLevel(cfg.LogLevel)
	}
	logging.Configure(logging.Config{
		Level:    level,
		Output:   os.Stderr,
		JSONMode: cfg.LogJSON,
		Color:    isTerminal(os.Stderr),
	})
	return cfg, nil
}

// readInput returns the command's input text.
func (a *app) readInput(cmd *cli.Command) (string, error) {
	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.InvalidRequest(err.Error()).WithCause(err)
		}
		return decodeInput(data, cmd.String("encoding"))
	}
	if cmd.Args().Len() > 0 {
		return strings.Join(cmd.Args().Slice(), " "), nil
	}
	if a.stdinIsTTY != nil && a.stdinIsTTY() {
		return "", errors.InvalidRequest("no input").
			WithHint("Pass the text as an argument, with --file, or on stdin")
	}
	data, err := io.ReadAll(a.in)
	if err != nil {
		return "", err
	}
	return decodeInput(data, cmd.String("encoding"))
}

func decodeInput(data []byte, encoding string) (string, error) {
	text, err := textenc.Decode(data, encoding)
	if err != nil {
		return "", errors.InvalidRequest(err.Error()).WithCause(err).
			WithHint("Pass --encoding with the character encoding of the input")
	}
	return text, nil
}

// readModel accepts a model as JSON, optionally wrapped as {"query": ...},
// or as SQL text.
func (a *app) readModel(cmd *cli.Command) (qsql.Query, error) {
	text, err := a.readInput(cmd)
	if err != nil {
		return qsql.NewQuery(), err
	}
	return modelFromText(text)
}

func modelFromText(text string) (qsql.Query, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return qsql.Parse(trimmed)
	}

	var envelope struct {
		Query *qsql.Query `json:"query"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return qsql.NewQuery(), errors.InvalidRequest("malformed model JSON: " + err.Error()).WithCause(err)
	}
	if envelope.Query != nil {
		return *envelope.Query, nil
	}

	q := qsql.NewQuery()
	if err := json.Unmarshal([]byte(trimmed), &q); err != nil {
		return qsql.NewQuery(), errors.InvalidRequest("malformed model JSON: " + err.Error()).WithCause(err)
	}
	return q, nil
}

func (a *app) runParse(ctx context.Context, cmd *cli.Command) error {
	if _, err := a.loadConfig(cmd); err != nil {
		return err
	}
	text, err := a.readInput(cmd)
	if err != nil {
		return err
	}

	result, err := qsql.ParseWithDiagnostics(text)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.out)
	if !cmd.Bool("compact") {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func (a *app) runGenerate(ctx context.Context, cmd *cli.Command) error {
	if _, err := a.loadConfig(cmd); err != nil {
		return err
	}
	q, err := a.readModel(cmd)
	if err != nil {
		return err
	}

	text := qsql.Generate(q)
	if cmd.Bool("pretty") {
		text = qsql.Format(text)
	}
	fmt.Fprintln(a.out, text)
	return nil
}

func (a *app) runFormat(ctx context.Context, cmd *cli.Command) error {
	if _, err := a.loadConfig(cmd); err != nil {
		return err
	}
	text, err := a.readInput(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, qsql.Format(text))
	return nil
}

func (a *app) runValidate(ctx context.Context, cmd *cli.Command) error {
	if _, err := a.loadConfig(cmd); err != nil {
		return err
	}
	q, err := a.readModel(cmd)
	if err != nil {
		return err
	}

	result := qsql.Validate(q)
	if result.Valid {
		fmt.Fprintln(a.out, "valid")
		return nil
	}
	for _, e := range result.Errors {
		fmt.Fprintln(a.out, e)
	}
	return errors.InvalidQuery(result.Errors)
}

func (a *app) runCheck(ctx context.Context, cmd *cli.Command) error {
	if _, err := a.loadConfig(cmd); err != nil {
		return err
	}
	q, err := a.readModel(cmd)
	if err != nil {
		return err
	}

	report := compat.CheckQuery(q)
	if cmd.Bool("json") {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(a.out, report.SQL)
		if report.Compatible {
			fmt.Fprintln(a.out, "compatible")
		}
		for _, p := range report.Problems {
			fmt.Fprintln(a.out, "problem: "+p)
		}
	}
	if !report.Compatible {
		return errors.InvalidQuery(report.Problems).WithHint("The generated SQL is not valid MySQL")
	}
	return nil
}

func (a *app) runServe(ctx context.Context, cmd *cli.Command) error {
	flags := map[string]string{}
	if v := cmd.String("listen"); v != "" {
		flags["listen_addr"] = v
	}
	if v := cmd.String("preview-db"); v != "" {
		flags["preview_db"] = v
	}
	if v := cmd.String("log-level"); v != "" {
		flags["log_level"] = v
	}
	if cmd.IsSet("log-json") {
		flags["log_json"] = strconv.FormatBool(cmd.Bool("log-json"))
	}
	if cmd.Bool("no-cache") {
		flags["cache_enabled"] = "false"
	}

	mgr := config.NewManager()
	if err := mgr.Load(cmd.String("config")); err != nil {
		return err
	}
	if err := mgr.ApplyValues(flags); err != nil {
		return err
	}
	cfg := mgr.Get()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Configure(logging.Config{
		Level:    logging.ParseLevel(cfg.LogLevel),
		Output:   os.Stderr,
		JSONMode: cfg.LogJSON,
		Color:    isTerminal(os.Stderr),
	})
	if !cfg.LogJSON {
		banner.PrintServerWithConfig(a.out, cfg, a.stdoutIsColor != nil && a.stdoutIsColor())
	}

	var pc *cache.ParseCache
	if cfg.CacheEnabled {
		pc = cache.New(cache.Config{
			MaxEntries: cfg.CacheEntries,
			TTL:        cfg.CacheTTL(),
			Enabled:    true,
		})
		defer pc.Close()
	}

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

	// SIGHUP re-reads the file and environment, then the flags above. Only
	// the log level and format change without a restart.
	mgr.OnReload(func(c *config.Config) {
		logging.SetGlobalLevel(logging.ParseLevel(c.LogLevel))
		logging.SetJSONMode(c.LogJSON)
		logger.Info("Configuration reloaded", "log_level", c.LogLevel)
	})
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := mgr.Reload(); err != nil {
					logger.Error("Configuration reload failed", "error", err)
				}
			}
		}
	}()

	if cmd.Bool("advertise") {
		adv, err := discovery.Advertise(discovery.Config{
			Addr:    cfg.ListenAddr,
			Version: banner.Version,
			Preview: runner.Enabled(),
		})
		if err != nil {
			logger.Warn("mDNS advertisement failed", "error", err)
		} else {
			defer adv.Shutdown()
		}
	}

	server := api.NewServer(api.Options{
		Addr:    cfg.ListenAddr,
		Version: banner.Version,
		Cache:   pc,
		Preview: runner,
		Metrics: metrics.Get(),
	})
	return server.Run(ctx)
}

func (a *app) runDiscover(ctx context.Context, cmd *cli.Command) error {
	if _, err := a.loadConfig(cmd); err != nil {
		return err
	}
	servers, err := discovery.Browse(ctx, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(servers)
	}
	if len(servers) == 0 {
		fmt.Fprintln(a.out, "No servers found.")
		return nil
	}
	for _, s := range servers {
		preview := ""
		if s.Preview {
			preview = "  preview"
		}
		fmt.Fprintf(a.out, "%-24s %-36s v%s%s\n", s.Instance, s.URL, s.Version, preview)
	}
	return nil
}

func (a *app) runConfig(ctx context.Context, cmd *cli.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("toml") {
		fmt.Fprint(a.out, cfg.ToTOML())
		return nil
	}
	fmt.Fprint(a.out, cfg.String())
	return nil
}

func (a *app) runConfigInit(ctx context.Context, cmd *cli.Command) error {
	base, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}

	color := a.stdoutIsColor != nil && a.stdoutIsColor()
	cfg, err := wizard.New(a.in, a.out, color).Run(base)
	if err != nil {
		return err
	}

	path := cmd.String("output")
	if path == "" {
		path = base.ConfigFile
	}
	if path == "" {
		path = config.DefaultConfigPaths[1]
	}
	if err := cfg.SaveToFile(path); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Configuration written to %s\n", os.ExpandEnv(path))
	return nil
}
