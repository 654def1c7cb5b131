package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/meur/steamtier/internal/cache"
	"github.com/meur/steamtier/internal/logger"
	"github.com/meur/steamtier/internal/steam"
	"github.com/meur/steamtier/internal/storage"
)

type options struct {
	dbPath  string
	steamID string
	token   string
	groupID string
	timeout time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.dbPath, "db", "./steamtier.db", "SQLite database path")
	flag.StringVar(&opts.steamID, "steam-id", "", "Steam ID, profile URL or vanity name to import")
	flag.StringVar(&opts.token, "family-token", "", "Web API token to import the family shared library instead")
	flag.StringVar(&opts.groupID, "family-group", "0", "Family group id")
	flag.DurationVar(&opts.timeout, "timeout", time.Minute, "Overall import timeout")
	flag.Parse()

	// STEAM_API_KEY usually lives in .env next to the server config
	_ = godotenv.Load()

	log := logger.New(logger.Config{Level: logger.ParseLevel(os.Getenv("LOG_LEVEL"))})

	if err := run(log, opts); err != nil {
		log.WithError(err).Fatal("library import failed")
	}
}

func run(log *logger.Logger, opts options) error {
	if opts.steamID == "" && opts.token == "" {
		return errors.New("one of -steam-id or -family-token is required")
	}

	store, err := storage.New(opts.dbPath)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer store.Close()

	client := steam.NewClient(steam.ClientConfig{
		APIKey:            os.Getenv("STEAM_API_KEY"),
		RequestsPerSecond: 2,
		Burst:             1,
		Logger:            log.WithComponent("steam"),
	})
	responses := cache.New(time.Minute, 0)
	defer responses.Close()
	importer := steam.NewImporter(client, responses, steam.DefaultTTLs(), store, log.WithComponent("importer"))

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	var imp *steam.Import
	if opts.token != "" {
		imp, err = importer.FamilyGames(ctx, opts.token, opts.groupID)
	} else {
		imp, err = importer.OwnedGames(ctx, opts.steamID)
	}
	if err != nil {
		return fmt.Errorf("steam import: %w", err)
	}

	before, _ := store.CountGames()
	if err := store.BulkCreateGames(imp.Games); err != nil {
		return fmt.Errorf("storing games: %w", err)
	}
	after, _ := store.CountGames()

	log.Info("library imported",
		"steam_id", imp.SteamID,
		"games", len(imp.Games),
		"new", after-before,
	)
	return nil
}
