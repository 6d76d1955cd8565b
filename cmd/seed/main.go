// Command seed loads a JSON listing file into the configured stores.
//
//	SEED_FILE=data/seed.json SEED_TARGETS=mysql,meilisearch go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"brokerage-portal/internal/config"
	"brokerage-portal/internal/database"
	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"
	"brokerage-portal/internal/search"

	"github.com/joho/godotenv"
)

// listingSaver is a store that accepts bulk upserts.
type listingSaver interface {
	SaveListings(ctx context.Context, kind models.ListingKind, listings []models.Listing) error
	Close() error
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	_ = godotenv.Load()

	configPath := getEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}

	path := getEnv("SEED_FILE", cfg.Datasource.SeedFile)
	if path == "" {
		path = "data/seed.json"
	}
	source, err := listing.LoadSeedFile(path)
	if err != nil {
		log.Fatalf("Failed to load seed file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	targets := strings.Split(getEnv("SEED_TARGETS", cfg.Datasource.Type), ",")
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		start := time.Now()
		n, err := seedTarget(ctx, cfg, target, source)
		if err != nil {
			log.Fatalf("Seeding %s failed: %v", target, err)
		}
		log.Printf("Seeded %d listings into %s in %s", n, target, time.Since(start).Round(time.Millisecond))
	}
}

func seedTarget(ctx context.Context, cfg *config.Config, target string, source *listing.MemorySource) (int, error) {
	if target == "meilisearch" {
		host := getEnv("MEILISEARCH_HOST", cfg.Search.Meilisearch.Host)
		if host == "" {
			return 0, fmt.Errorf("no meilisearch host configured")
		}
		client := search.NewSearchClient(host, getEnv("MEILISEARCH_KEY", cfg.Search.Meilisearch.APIKey), cfg.Search.Meilisearch.Index)
		if err := client.InitIndex(); err != nil {
			return 0, err
		}
		return client.Reindex(ctx, source)
	}

	store, err := openSaver(cfg, target)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	total := 0
	for _, kind := range []models.ListingKind{models.KindProperty, models.KindProject} {
		listings, err := source.Query(ctx, listing.Query{Kind: kind})
		if err != nil {
			return total, err
		}
		if err := store.SaveListings(ctx, kind, listings); err != nil {
			return total, fmt.Errorf("save %s: %w", kind.Table(), err)
		}
		total += len(listings)
	}
	return total, nil
}

func openSaver(cfg *config.Config, target string) (listingSaver, error) {
	switch target {
	case "mysql":
		c := cfg.Database.MySQL
		db, err := database.NewGormDB(
			getEnv("DB_HOST", c.Host),
			getEnv("DB_PORT", strconv.Itoa(c.Port)),
			getEnv("DB_USER", c.User),
			getEnv("DB_PASSWORD", c.Password),
			getEnv("DB_NAME", c.Database),
			database.LogLevel(cfg.Logging.Level),
		)
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case "postgres":
		c := cfg.Database.Postgres
		db, err := database.NewDB(
			getEnv("DB_HOST", c.Host),
			getEnv("DB_PORT", strconv.Itoa(c.Port)),
			getEnv("DB_USER", c.User),
			getEnv("DB_PASSWORD", c.Password),
			getEnv("DB_NAME", c.Database),
			getEnv("DB_SSLMODE", c.SSLMode),
		)
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("cannot seed %q (expected mysql, postgres or meilisearch)", target)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
