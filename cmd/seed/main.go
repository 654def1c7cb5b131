package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meur/steamtier/internal/logger"
	"github.com/meur/steamtier/internal/models"
	"github.com/meur/steamtier/internal/storage"
)

func main() {
	dbPath := flag.String("db", "./steamtier.db", "SQLite database path")
	seedsDir := flag.String("seeds", "./seeds", "Seeds directory")
	reset := flag.Bool("reset", false, "Delete seeded games before loading")
	flag.Parse()

	log := logger.New(logger.Config{Level: logger.ParseLevel(os.Getenv("LOG_LEVEL"))})

	if err := run(log, *dbPath, *seedsDir, *reset); err != nil {
		log.WithError(err).Fatal("seeding failed")
	}
}

func run(log *logger.Logger, dbPath, seedsDir string, reset bool) error {
	store, err := storage.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	files, err := filepath.Glob(filepath.Join(seedsDir, "*.json"))
	if err != nil {
		return fmt.Errorf("bad seeds directory: %w", err)
	}
	if len(files) == 0 {
		log.Warn("no seed files found", "dir", seedsDir)
		return nil
	}

	total := 0
	for _, path := range files {
		catalog, err := readCatalog(path)
		if err != nil {
			log.Warn("failed to read seed file", "file", path, "error", err)
			continue
		}
		if reset {
			if _, err := store.DeleteGames(catalog.IDs()); err != nil {
				return fmt.Errorf("resetting games from %s: %w", path, err)
			}
		}
		if err := store.BulkCreateGames(catalog); err != nil {
			log.Warn("failed to seed", "file", path, "error", err)
			continue
		}
		total += len(catalog)
		log.Info("seeded catalog", "file", filepath.Base(path), "games", len(catalog))
	}

	log.Info("seeding complete", "games", total)
	return nil
}

func readCatalog(path string) (models.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var catalog models.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}
	return catalog, catalog.Validate()
}
