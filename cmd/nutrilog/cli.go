package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/nutrilog/internal/config"
	"github.com/hpungsan/nutrilog/internal/errors"
	"github.com/hpungsan/nutrilog/internal/logging"
	"github.com/hpungsan/nutrilog/internal/ops"
	"github.com/hpungsan/nutrilog/internal/period"
	"github.com/hpungsan/nutrilog/internal/report"
	"github.com/hpungsan/nutrilog/internal/web"
)

// env carries what commands need. Fields are nil for --help/--version.
type env struct {
	db     *sql.DB
	cfg    *config.Config
	logger *slog.Logger
	clock  period.Clock // nil means the system clock
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "nutrilog",
		Usage:   "Nutrition log reports: history, daily rollups, summaries",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Record source for reads: sqlite|postgres (default from config)"},
		},
		Commands: []*cli.Command{
			addCmd(e),
			historyCmd(e),
			rollupCmd(e),
			summaryCmd(e),
			topCmd(e),
			mealsCmd(e),
			latestCmd(e),
			deleteCmd(e),
			catalogCmd(e),
			exportCmd(e),
			importCmd(e),
			reportCmd(e),
			serveCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// withSources opens the selected record source for the duration of fn.
func (e *env) withSources(c *cli.Context, fn func(src ops.Sources) error) error {
	name := c.String("source")
	if name == "" && e.cfg != nil {
		name = e.cfg.RecordSource
	}
	logger := e.logger
	if logger == nil {
		logger = logging.Discard()
	}

	src, closeSrc, err := openSources(c.Context, e.db, e.cfg, logger, name)
	if err != nil {
		return outputError(err)
	}
	defer closeSrc()

	src.Clock = e.clock
	return fn(src)
}

func windowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "Window start date (DD-MM-YYYY or YYYY-MM-DD)"},
		&cli.StringFlag{Name: "to", Usage: "Window end date (defaults to today)"},
		&cli.StringFlag{Name: "period", Aliases: []string{"p"}, Usage: `"last week", "last month", "last 3 months" or "last year"`},
	}
}

func kindFlag(usage string) cli.Flag {
	return &cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: usage}
}

func windowInput(c *cli.Context) ops.WindowInput {
	return ops.WindowInput{
		From:   c.String("from"),
		To:     c.String("to"),
		Period: c.String("period"),
	}
}

// floatPtr returns the flag value, or nil when the flag was not given.
func floatPtr(c *cli.Context, name string) *float64 {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Float64(name)
	return &v
}

func addCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Log a food, weight or water record",
		ArgsUsage: "[item name]",
		Flags: []cli.Flag{
			kindFlag("Record kind: consumption|weight|water (default consumption)"),
			&cli.Float64Flag{Name: "quantity", Aliases: []string{"q"}, Usage: "Grams or portions for food, ml for water"},
			&cli.Float64Flag{Name: "value", Usage: "Calories, body weight or water volume (food calories default from the catalog)"},
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Date (default today)"},
			&cli.StringFlag{Name: "time", Aliases: []string{"t"}, Usage: "Time of day HH:MM (default now)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.LogRecord(c.Context, e.db, e.cfg, ops.LogInput{
				Kind:     c.String("kind"),
				ItemName: strings.Join(c.Args().Slice(), " "),
				Quantity: floatPtr(c, "quantity"),
				Value:    floatPtr(c, "value"),
				Date:     c.String("date"),
				Time:     c.String("time"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func historyCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List records newest first",
		Flags: append(windowFlags(),
			kindFlag("Record kind (default consumption)"),
			&cli.StringFlag{Name: "meal", Aliases: []string{"m"}, Usage: "Meal period: Breakfast|Lunch|Snack|Dinner|All"},
			&cli.StringFlag{Name: "query", Usage: "Only items whose name contains this text"},
			&cli.BoolFlag{Name: "classified", Usage: "Only items with a catalog entry"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results (max 100)"},
			&cli.IntFlag{Name: "offset", Usage: "Pagination offset"},
		),
		Action: func(c *cli.Context) error {
			return e.withSources(c, func(src ops.Sources) error {
				output, err := ops.History(c.Context, src, ops.HistoryInput{
					Kind:           c.String("kind"),
					Window:         windowInput(c),
					MealPeriod:     c.String("meal"),
					NameContains:   c.String("query"),
					ClassifiedOnly: c.Bool("classified"),
					Limit:          c.Int("limit"),
					Offset:         c.Int("offset"),
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, output)
			})
		},
	}
}

func rollupCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "rollup",
		Usage: "Per-day totals over a window",
		Flags: append(windowFlags(),
			kindFlag("Record kind (default consumption)"),
			&cli.StringFlag{Name: "aggregate", Aliases: []string{"a"}, Usage: "sum|average|min|max|count"},
		),
		Action: func(c *cli.Context) error {
			return e.withSources(c, func(src ops.Sources) error {
				output, err := ops.Rollup(c.Context, src, ops.RollupInput{
					Kind:      c.String("kind"),
					Window:    windowInput(c),
					Aggregate: c.String("aggregate"),
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, output)
			})
		},
	}
}

func summaryCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Totals and averages over a window or a single day",
		Flags: append(windowFlags(),
			kindFlag("Record kind (default consumption)"),
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Summarize one day instead of a window"},
		),
		Action: func(c *cli.Context) error {
			return e.withSources(c, func(src ops.Sources) error {
				output, err := ops.Summary(c.Context, src, ops.SummaryInput{
					Kind:   c.String("kind"),
					Window: windowInput(c),
					Date:   c.String("date"),
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, output)
			})
		},
	}
}

func topCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "Most frequently logged foods",
		Flags: append(windowFlags(),
			kindFlag("Record kind (consumption only)"),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Number of items (default from config)"},
		),
		Action: func(c *cli.Context) error {
			return e.withSources(c, func(src ops.Sources) error {
				output, err := ops.Top(c.Context, src, ops.TopInput{
					Kind:   c.String("kind"),
					Window: windowInput(c),
					Limit:  c.Int("limit"),
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, output)
			})
		},
	}
}

func mealsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "meals",
		Usage: "Calories by meal period",
		Flags: append(windowFlags(),
			&cli.StringFlag{Name: "meal", Aliases: []string{"m"}, Usage: "Only this meal period"},
		),
		Action: func(c *cli.Context) error {
			return e.withSources(c, func(src ops.Sources) error {
				output, err := ops.MealBreakdown(c.Context, src, ops.MealBreakdownInput{
					Window:     windowInput(c),
					MealPeriod: c.String("meal"),
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, output)
			})
		},
	}
}

func latestCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "latest",
		Usage: "Most recent record of a kind",
		Flags: []cli.Flag{
			kindFlag("Record kind (default weight)"),
		},
		Action: func(c *cli.Context) error {
			return e.withSources(c, func(src ops.Sources) error {
				output, err := ops.Latest(c.Context, src, ops.LatestInput{Kind: c.String("kind")})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, output)
			})
		},
	}
}

func deleteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Permanently delete a record from the local store",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("record id is required"))
			}
			output, err := ops.DeleteRecord(c.Context, e.db, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func catalogCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Manage calorie catalog entries",
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Create or replace a catalog entry",
				ArgsUsage: "<item name>",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "per-100g", Usage: "Calories per 100 g"},
					&cli.Float64Flag{Name: "per-portion", Usage: "Calories per portion"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.SetCatalog(c.Context, e.db, ops.CatalogSetInput{
						ItemName:           strings.Join(c.Args().Slice(), " "),
						CaloriesPer100g:    floatPtr(c, "per-100g"),
						CaloriesPerPortion: floatPtr(c, "per-portion"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:      "get",
				Usage:     "Show one catalog entry",
				ArgsUsage: "<item name>",
				Action: func(c *cli.Context) error {
					return e.withSources(c, func(src ops.Sources) error {
						output, err := ops.GetCatalog(c.Context, src, ops.CatalogGetInput{
							ItemName: strings.Join(c.Args().Slice(), " "),
						})
						if err != nil {
							return outputError(err)
						}
						return outputJSON(c.App.Writer, output)
					})
				},
			},
			{
				Name:  "list",
				Usage: "List the local catalog",
				Action: func(c *cli.Context) error {
					output, err := ops.ListCatalog(c.Context, e.db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
		},
	}
}

func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export records and catalog to JSONL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output file path (default ~/.nutrilog/exports/)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, e.db, e.cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func importCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import records and catalog from JSONL",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|skip"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("import path is required"))
			}
			output, err := ops.Import(c.Context, e.db, e.cfg, ops.ImportInput{
				Path: c.Args().First(),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func reportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Print a markdown report for a window",
		Flags: append(windowFlags(),
			kindFlag("Record kind (default consumption)"),
			&cli.IntFlag{Name: "top", Usage: "Number of top items (default from config)"},
		),
		Action: func(c *cli.Context) error {
			return e.withSources(c, func(src ops.Sources) error {
				d, err := report.Build(c.Context, src, report.Input{
					Kind:   c.String("kind"),
					Window: windowInput(c),
					Top:    c.Int("top"),
				})
				if err != nil {
					return outputError(err)
				}
				_, err = io.WriteString(c.App.Writer, report.Markdown(d))
				return err
			})
		},
	}
}

func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the read-only web UI and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8090, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			return e.withSources(c, func(src ops.Sources) error {
				logger := logging.WithComponent(src.Logger, "web")
				srv, err := web.NewServer(src, logger, Version, c.String("bind"), c.Int("port"))
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				if err := web.Run(srv, logger); err != nil {
					return cli.Exit(fmt.Sprintf("server error: %v", err), 1)
				}
				return nil
			})
		},
	}
}

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var nErr *errors.NutriError
	if stderrors.As(err, &nErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", nErr.Code, nErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
