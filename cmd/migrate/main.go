package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/bizsite-ai-platform/internal/config"
	appmigrations "github.com/wolfman30/bizsite-ai-platform/migrations"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

const usage = "usage: migrate [up | down | force <version> | version]"

type command struct {
	name    string
	version int
}

// parseCommand reads the subcommand; no arguments means "up".
func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{name: "up"}, nil
	}
	switch args[0] {
	case "up", "down", "version":
		if len(args) > 1 {
			return command{}, fmt.Errorf("%s takes no arguments", args[0])
		}
		return command{name: args[0]}, nil
	case "force":
		if len(args) != 2 {
			return command{}, errors.New("force needs exactly one version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil || v < -1 {
			return command{}, fmt.Errorf("invalid version %q", args[1])
		}
		return command{name: "force", version: v}, nil
	}
	return command{}, fmt.Errorf("unknown command %q", args[0])
}

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)

	cmd, err := parseCommand(os.Args[1:])
	if err != nil {
		logger.Error(err.Error())
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(cmd, strings.TrimSpace(cfg.DatabaseURL), logger); err != nil {
		logger.Error("migration failed", "command", cmd.name, "error", err)
		os.Exit(1)
	}
}

func run(cmd command, databaseURL string, logger *logging.Logger) error {
	if databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		return fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch cmd.name {
	case "down":
		if err := m.Steps(-1); err != nil {
			return fmt.Errorf("down: %w", err)
		}
		logger.Info("rolled back one migration")
	case "force":
		if err := m.Force(cmd.version); err != nil {
			return fmt.Errorf("force: %w", err)
		}
		logger.Info("schema version forced", "version", cmd.version)
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("version: %w", err)
		}
		logger.Info("schema version", "version", version, "dirty", dirty)
	default:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("up: %w", err)
		}
		logger.Info("leads and audit schema up to date")
	}
	return nil
}
