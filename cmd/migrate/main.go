package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"address-risk-api/internal/config"
	"address-risk-api/internal/repository"

	"github.com/golang-migrate/migrate/v4"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up, down or version")
	source := flag.String("source", "", "Migration source URL (defaults to MIGRATIONS_URL)")
	flag.Parse()

	// Load config
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	sourceURL := cfg.MigrationsURL
	if *source != "" {
		sourceURL = *source
	}

	switch *direction {
	case "up":
		fmt.Printf("Applying migrations from: %s\n", sourceURL)
		err = repository.MigrateUp(cfg.DBSource, sourceURL)
	case "down":
		fmt.Printf("Rolling back migrations from: %s\n", sourceURL)
		err = repository.MigrateDown(cfg.DBSource, sourceURL)
	case "version":
		err = printVersion(cfg.DBSource, sourceURL)
	default:
		fmt.Printf("Error: unknown --direction %q\n", *direction)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Error running migrations: %v\n", err)
		os.Exit(1)
	}

	if *direction != "version" {
		if err := printVersion(cfg.DBSource, sourceURL); err != nil {
			fmt.Printf("Error verifying migrations: %v\n", err)
			os.Exit(1)
		}
	}
}

func printVersion(dsn, sourceURL string) error {
	version, dirty, err := repository.MigrationVersion(dsn, sourceURL)
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("Schema version: none")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Schema version: %d (dirty: %t)\n", version, dirty)
	return nil
}
