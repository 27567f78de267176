package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/pkg/database"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

func main() {
	steps := flag.Int("steps", 0, "number of migrations to roll back with down (0 rolls back all)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: migrate [-steps n] up|down|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLogger := logger.New(cfg.Env).With("service", "migrate")

	db, err := database.NewPostgresDB(context.Background(), cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()

	m, err := database.NewMigrator(db)
	if err != nil {
		appLogger.Fatal("Failed to create migrator", err)
	}

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = m.Up()
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			appLogger.Info("No migrations applied")
			return
		}
		if verr != nil {
			appLogger.Fatal("Failed to read migration version", verr)
		}
		appLogger.WithFields(map[string]interface{}{
			"version": version,
			"dirty":   dirty,
		}).Info("Current migration version")
		return
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		appLogger.Fatal("Migration failed", err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		appLogger.Info("No change")
		return
	}
	appLogger.Infof("Migration %s applied", flag.Arg(0))
}
