package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/migrate"
)

// New migration files are authored with the goose CLI under
// pkg/migrate/migrations; this binary applies the set embedded at build time.
func main() {
	cmd := flag.String("cmd", "up", "up | down | status | to | validate")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	if *cmd == "validate" {
		if err := migrate.Validate(migrate.Migrations()); err != nil {
			fmt.Fprintf(os.Stderr, "migrations invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migrations valid")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Console:     cfg.App.LogConsole(),
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	if err := run(ctx, cfg, logg, *cmd, *target); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, cmd, target string) error {
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()
	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	migrator, err := migrate.New(sqlDB)
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "schema up to date")
	case "down":
		version, err := migrator.Down(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "rolled_back", version), "rolled back one migration")
	case "to":
		version, err := strconv.ParseInt(target, 10, 64)
		if err != nil {
			return fmt.Errorf("-version %q: %w", target, err)
		}
		if err := migrator.To(ctx, version); err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "version", version), "schema at target version")
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			applied := "pending"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-16d %-22s %s\n", s.Source.Version, applied, s.Source.Path)
		}
	default:
		return fmt.Errorf("unknown -cmd %q", cmd)
	}
	return nil
}
