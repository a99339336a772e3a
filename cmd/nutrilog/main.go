package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hpungsan/nutrilog/internal/config"
	"github.com/hpungsan/nutrilog/internal/db"
	"github.com/hpungsan/nutrilog/internal/errors"
	"github.com/hpungsan/nutrilog/internal/logging"
	"github.com/hpungsan/nutrilog/internal/mcp"
	"github.com/hpungsan/nutrilog/internal/ops"
	"github.com/hpungsan/nutrilog/internal/pgstore"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"add": true, "history": true, "rollup": true, "summary": true,
	"top": true, "meals": true, "latest": true, "delete": true,
	"catalog": true, "export": true, "import": true,
	"report": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return cliCommands[arg] || isFlagLike(arg)
}

// isFlagLike reports whether arg is a global flag rather than a command.
// "--source postgres history" must still reach the CLI.
func isFlagLike(arg string) bool {
	return len(arg) > 1 && arg[0] == '-'
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func printBanner() {
	fmt.Println(`
   _   _       _        _ _
  | \ | |_   _| |_ _ __(_) | ___   __ _
  |  \| | | | | __| '__| | |/ _ \ / _' |
  | |\  | |_| | |_| |  | | | (_) | (_| |
  |_| \_|\__,_|\__|_|  |_|_|\___/ \__, |
                                  |___/
  Nutrition log reports

  Usage: nutrilog <command> [options]
         nutrilog --help

  MCP server mode requires piped input.`)
}

// openSources builds the read side for the named record source. Catalog
// lookups follow the records so a Postgres deployment reads its own catalog.
// The returned close function is never nil.
func openSources(ctx context.Context, database *sql.DB, cfg *config.Config, logger *slog.Logger, name string) (ops.Sources, func() error, error) {
	src := ops.Sources{Config: cfg, Logger: logger}
	noop := func() error { return nil }

	switch name {
	case "", config.SourceSQLite:
		store := db.NewStore(database)
		src.Records, src.Catalog = store, store
		return src, noop, nil
	case config.SourcePostgres:
		pg, err := pgstore.Open(ctx, cfg.Postgres, logging.WithComponent(logger, "pgstore"))
		if err != nil {
			return ops.Sources{}, noop, err
		}
		src.Records, src.Catalog = pg, pg
		return src, pg.Close, nil
	default:
		return ops.Sources{}, noop, errors.NewInvalidRequest(
			fmt.Sprintf("source must be %q or %q, got %q", config.SourceSQLite, config.SourcePostgres, name))
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(&env{})
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fail("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".nutrilog")

	wd, err := os.Getwd()
	if err != nil {
		wd = baseDir
	}
	cfg, err := config.LoadWithRepo(baseDir, wd)
	if err != nil {
		fail("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fail("invalid config: %v", err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	database, err := db.Init(baseDir)
	if err != nil {
		fail("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	if isCLIMode(os.Args) {
		app := newCLIApp(&env{db: database, cfg: cfg, logger: logger})
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'nutrilog --help' for usage.\n")
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("ignoring unknown disabled_tools", "names", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("ignoring unknown disabled_types", "names", unknown)
	}

	src, closeSrc, err := openSources(context.Background(), database, cfg, logger, cfg.RecordSource)
	if err != nil {
		fail("failed to open record source: %v", err)
	}
	defer closeSrc()

	logger.Info("starting MCP server", "version", Version, "source", cfg.RecordSource)
	if err := mcp.Run(database, src, cfg, Version); err != nil {
		logger.Error("mcp server stopped", "error", err)
		closeSrc()
		database.Close()
		os.Exit(1)
	}
}
