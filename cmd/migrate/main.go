package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/adapters/postgres"
	"github.com/kevin07696/openbanking-service/internal/config"
	"github.com/kevin07696/openbanking-service/pkg/security"
)

var (
	flags   = flag.NewFlagSet("migrate", flag.ExitOnError)
	dbURL   = flags.String("database-url", "", "PostgreSQL URL (default: DATABASE_URL)")
	timeout = flags.Duration("timeout", 2*time.Minute, "overall deadline")
)

func main() {
	flags.Usage = usage
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		flags.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *dbURL != "" {
		cfg.Database.URL = *dbURL
	}
	if cfg.Database.URL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set")
		os.Exit(1)
	}

	logger, err := security.NewLoggerForEnvironment(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := postgres.Open(ctx, postgres.DefaultConfig(cfg.Database.URL), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close(context.Background())

	switch args[0] {
	case "up":
		result, err := db.Migrate(ctx)
		if err != nil {
			logger.Fatal("Migration failed", zap.Error(err))
		}
		fmt.Printf("applied %d, already applied %d (%s)\n", len(result.Applied), len(result.Skipped), result.Duration.Round(time.Millisecond))
	case "status":
		statuses, err := db.Status(ctx)
		if err != nil {
			logger.Fatal("Failed to read migration status", zap.Error(err))
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
		for _, st := range statuses {
			applied := "pending"
			if st.AppliedAt != nil {
				applied = st.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%04d\t%s\t%s\n", st.Version, st.Name, applied)
		}
		_ = w.Flush()
	default:
		flags.Usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Print(`Usage: migrate [flags] COMMAND

Commands:
    up        Apply all pending migrations
    status    List migrations and when they were applied

Flags:
    -database-url URL   PostgreSQL URL, defaults to DATABASE_URL
    -timeout DURATION   Overall deadline (default 2m)

Examples:
    migrate up
    migrate status
`)
}
