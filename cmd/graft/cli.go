package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/graftdev/graft/internal/config"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/ops"
	"github.com/graftdev/graft/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "graft",
		Usage:   "Guarded find-and-patch for source files",
		Version: Version,
		Commands: []*cli.Command{
			applyCmd(db, cfg, baseDir),
			planCmd(cfg),
			extractCmd(cfg),
			rulesetCmd(db, cfg, baseDir),
			historyCmd(db),
			showCmd(db),
			revertCmd(db, cfg, baseDir),
			purgeCmd(db, baseDir),
			exportCmd(db, cfg, baseDir),
			webCmd(db, cfg, baseDir),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// patchFlags are shared between apply and plan.
func patchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "File to patch"},
		&cli.StringFlag{Name: "pattern", Aliases: []string{"p"}, Usage: "Literal text to find (a regular expression with --regex)"},
		&cli.StringFlag{Name: "pattern-file", Usage: `Read the pattern from a file ("-" reads stdin)`},
		&cli.StringFlag{Name: "replacement", Aliases: []string{"r"}, Usage: "Replacement text (empty deletes the match)"},
		&cli.StringFlag{Name: "replacement-file", Usage: `Read the replacement from a file ("-" reads stdin)`},
		&cli.BoolFlag{Name: "regex", Usage: "Treat the pattern as a regular expression"},
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Occurrence policy: single|first|all"},
		&cli.StringFlag{Name: "validator", Usage: "Validation gate: auto|braces|go|json|none"},
	}
}

// applyCmd creates the apply command.
func applyCmd(db *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "Patch one file: match, validate, write atomically, journal the attempt",
		Flags: append(patchFlags(),
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Note recorded in the journal"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Report the outcome without writing or journaling"},
		),
		Action: func(c *cli.Context) error {
			pattern, replacement, err := resolvePatchText(c)
			if err != nil {
				return outputError(err)
			}

			input := ops.ApplyInput{
				Path:        c.String("file"),
				Pattern:     pattern,
				Replacement: replacement,
				Regex:       c.Bool("regex"),
				Mode:        c.String("mode"),
				Validator:   c.String("validator"),
				DryRun:      c.Bool("dry-run"),
			}
			if desc := c.String("description"); desc != "" {
				input.Description = &desc
			}

			output, err := ops.Apply(c.Context, db, cfg, baseDir, input)
			if err != nil {
				return outputError(err)
			}

			// A no-op is a success: the pattern is simply not there.
			return outputJSON(output)
		},
	}
}

// planCmd creates the plan command.
func planCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Predict what an apply would do without writing or journaling",
		Flags: patchFlags(),
		Action: func(c *cli.Context) error {
			pattern, replacement, err := resolvePatchText(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Plan(c.Context, cfg, ops.PlanInput{
				Path:        c.String("file"),
				Pattern:     pattern,
				Replacement: replacement,
				Regex:       c.Bool("regex"),
				Mode:        c.String("mode"),
				Validator:   c.String("validator"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// extractCmd creates the extract command.
func extractCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Parse the first object or array literal out of a file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "File to read"},
			&cli.StringFlag{Name: "from", Usage: "Literal anchor; extraction starts after its first occurrence"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Extract(c.Context, cfg, ops.ExtractInput{
				Path: c.String("file"),
				From: c.String("from"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// rulesetCmd creates the ruleset command with run and check subcommands.
func rulesetCmd(db *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "ruleset",
		Usage: "Run or check a declarative patch ruleset",
		Subcommands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Apply every rule in a ruleset file, in order",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "Report per-rule outcomes without writing or journaling"},
					&cli.BoolFlag{Name: "keep-going", Aliases: []string{"k"}, Usage: "Continue past failed rules instead of stopping"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return outputError(errors.NewInvalidRequest("ruleset path is required"))
					}

					output, err := ops.RunRuleset(c.Context, db, cfg, baseDir, ops.RunRulesetInput{
						Path:      c.Args().First(),
						DryRun:    c.Bool("dry-run"),
						KeepGoing: c.Bool("keep-going"),
					})
					if err != nil {
						return outputError(err)
					}

					if err := outputJSON(output); err != nil {
						return err
					}
					if output.Failed > 0 {
						return cli.Exit(fmt.Sprintf("%d rule(s) failed", output.Failed), 1)
					}
					return nil
				},
			},
			{
				Name:      "check",
				Usage:     "Validate a ruleset file without applying anything",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return outputError(errors.NewInvalidRequest("ruleset path is required"))
					}

					output, err := ops.CheckRuleset(c.Context, ops.RunRulesetInput{
						Path: c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}

					if err := outputJSON(output); err != nil {
						return err
					}
					if !output.Valid {
						return cli.Exit(fmt.Sprintf("ruleset has %d problem(s)", len(output.Problems)), 1)
					}
					return nil
				},
			},
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List journal entries, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Filter by target file"},
			&cli.StringFlag{Name: "status", Usage: "Filter by outcome: applied|noop|ambiguous|validation_failed"},
			&cli.StringFlag{Name: "action", Usage: "Filter by action: apply|revert"},
			&cli.StringFlag{Name: "source", Usage: "Filter by surface: cli, mcp, or ruleset:<name>"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum entries to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Entries to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(c.Context, db, ops.HistoryInput{
				FilePath: c.String("file"),
				Status:   c.String("status"),
				Action:   c.String("action"),
				Source:   c.String("source"),
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one journal entry in full, by ID or by target file",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Show the most recent attempt against this file"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ShowInput{}

			// Check for positional ID argument
			if c.NArg() > 0 {
				input.ID = c.Args().First()
			} else {
				input.Path = c.String("file")
			}

			output, err := ops.Show(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// revertCmd creates the revert command.
func revertCmd(db *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:      "revert",
		Usage:     "Restore the pre-image of an applied patch",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Revert the most recent applied patch against this file"},
			&cli.BoolFlag{Name: "force", Usage: "Restore even if the file changed since the patch landed"},
		},
		Action: func(c *cli.Context) error {
			input := ops.RevertInput{
				Force: c.Bool("force"),
			}

			// Check for positional ID argument
			if c.NArg() > 0 {
				input.ID = c.Args().First()
			} else {
				input.Path = c.String("file")
			}

			output, err := ops.Revert(c.Context, db, cfg, baseDir, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete journal entries and retained versions older than a window",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Required: true, Usage: "Retention window, e.g. 30d or 48h"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Count matching entries without deleting anything"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Purge(c.Context, db, baseDir, ops.PurgeInput{
				OlderThan: c.String("older-than"),
				DryRun:    c.Bool("dry-run"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export journal entries to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.graft/exports/attempts-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Filter by target file"},
			&cli.StringFlag{Name: "status", Usage: "Filter by outcome"},
			&cli.StringFlag{Name: "action", Usage: "Filter by action: apply|revert"},
			&cli.StringFlag{Name: "source", Usage: "Filter by surface"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, db, cfg, baseDir, ops.ExportInput{
				Path:     c.String("path"),
				FilePath: c.String("file"),
				Status:   c.String("status"),
				Action:   c.String("action"),
				Source:   c.String("source"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// webCmd creates the web command.
func webCmd(db *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the read-only journal browser",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Bind address (default: web_addr from config)"},
		},
		Action: func(c *cli.Context) error {
			addr := c.String("addr")
			if addr == "" && cfg != nil {
				addr = cfg.WebAddr
			}
			if addr == "" {
				addr = "127.0.0.1:7463"
			}

			srv := web.NewServer(db, cfg, baseDir, Version, addr)
			if err := web.Run(srv); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// Helper functions

// resolvePatchText resolves the pattern and replacement from flags, reading
// files or stdin where requested. The pattern is required; the replacement
// defaults to empty, which deletes the match.
func resolvePatchText(c *cli.Context) (string, string, error) {
	if c.String("pattern-file") == "-" && c.String("replacement-file") == "-" {
		return "", "", errors.NewInvalidRequest("only one of --pattern-file and --replacement-file can read stdin")
	}

	pattern, err := resolveText(c, "pattern")
	if err != nil {
		return "", "", errors.NewInvalidRequest(err.Error())
	}
	if pattern == "" {
		return "", "", errors.NewInvalidRequest("either --pattern or --pattern-file is required")
	}

	replacement, err := resolveText(c, "replacement")
	if err != nil {
		return "", "", errors.NewInvalidRequest(err.Error())
	}

	return pattern, replacement, nil
}

// resolveText returns the value of --<name>, or the contents of
// --<name>-file. A file argument of "-" reads stdin. One trailing newline is
// stripped from file and stdin input; interior newlines are preserved.
func resolveText(c *cli.Context, name string) (string, error) {
	inline := c.String(name)
	fromFile := c.String(name + "-file")

	if inline != "" && fromFile != "" {
		return "", fmt.Errorf("--%s and --%s-file are mutually exclusive", name, name)
	}
	if fromFile == "" {
		return inline, nil
	}
	if fromFile == "-" {
		return readStdin()
	}

	data, err := os.ReadFile(fromFile)
	if err != nil {
		return "", fmt.Errorf("reading --%s-file: %v", name, err)
	}
	return trimOneNewline(string(data)), nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if graftErr, ok := err.(*errors.GraftError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", graftErr.Code, graftErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return trimOneNewline(string(data)), nil
}

// trimOneNewline strips a single trailing newline, the one an editor or echo
// appends. A pattern that genuinely ends in a newline can still be expressed
// by ending the file with two.
func trimOneNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
