package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Danticipation/chakrai/internal/bootstrap"
	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/services"
	"github.com/Danticipation/chakrai/internal/store"
	"github.com/Danticipation/chakrai/internal/version"
)

func main() {
	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	// Check if command is provided
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Handle subcommands
	switch args[0] {
	case "server":
		runServer()
	case "migrate":
		runMigrate(args[1:])
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("Anonymous identity and session-binding server")
	fmt.Println("\nCommands:")
	fmt.Println("  server     Start the identity server")
	fmt.Println("  migrate    Backfill pseudonymous UIDs for legacy integer user ids")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	cfg := config.Load()
	if err := bootstrap.Run(cfg); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
}

// runMigrate runs the legacy user-id backfill against the configured database.
// Tables are given as table:id_column pairs; the run is idempotent.
func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	tablesFlag := fs.String(
		"tables",
		"",
		"comma-separated table:id_column pairs (e.g. journal_entries:user_id,mood_entries:user_id)",
	)
	fs.Usage = func() {
		fmt.Printf("Usage: %s migrate -tables table:id_column[,table:id_column...]\n", os.Args[0])
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	tables, err := parseLegacyTables(*tablesFlag)
	if err != nil {
		log.Fatalf("Invalid -tables: %v", err)
	}

	cfg := config.Load()
	if cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN is required")
	}

	ctx := context.Background()
	db, err := store.New(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	result, err := services.NewMigrationService(db).BackfillLegacyUsers(ctx, tables)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf(
		"Migration complete: %d mappings created, %d rows backfilled",
		result.MappingsCreated, result.RowsBackfilled,
	)
}

func parseLegacyTables(s string) ([]services.LegacyTable, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("at least one table:id_column pair is required")
	}

	var tables []services.LegacyTable
	for _, pair := range strings.Split(s, ",") {
		name, col, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || name == "" || col == "" {
			return nil, fmt.Errorf("malformed pair %q (want table:id_column)", pair)
		}
		tables = append(tables, services.LegacyTable{Name: name, IDColumn: col})
	}
	return tables, nil
}
