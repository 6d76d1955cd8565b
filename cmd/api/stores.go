package main

import (
	"errors"
	"fmt"
	"log"

	"brokerage-portal/internal/config"
	"brokerage-portal/internal/database"
	"brokerage-portal/internal/handlers"
	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"
	"brokerage-portal/internal/search"
	"brokerage-portal/internal/supabase"
)

const (
	datasourceSupabase    = "supabase"
	datasourceMySQL       = "mysql"
	datasourcePostgres    = "postgres"
	datasourceMeilisearch = "meilisearch"
	datasourceFile        = "file"
)

// leadBackend stores leads and reports counts for the admin stats.
type leadBackend interface {
	handlers.LeadStore
	handlers.LeadCounter
}

// stores holds the opened listing source and lead store.
type stores struct {
	kind    string
	source  listing.Source
	leads   leadBackend
	closers []func() error
}

func (s *stores) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Printf("Warning: close failed: %v", err)
		}
	}
}

// backend is one opened store. Every database store serves both listings
// and leads.
type backend interface {
	listing.Source
	leadBackend
}

func openBackend(cfg *config.Config, kind string) (backend, func() error, error) {
	switch kind {
	case datasourceSupabase:
		log.Println("Using Supabase")
		client, err := supabase.NewClient(supabase.Config{
			URL:        getEnvOrConfig(cfg.Supabase.URL, "SUPABASE_URL", ""),
			ServiceKey: getEnvOrConfig(cfg.Supabase.ServiceKey, "SUPABASE_SERVICE_KEY", ""),
			Timeout:    cfg.Supabase.GetTimeout(),
			Tables: map[models.ListingKind]string{
				models.KindProperty: cfg.Supabase.PropertyTable,
				models.KindProject:  cfg.Supabase.ProjectTable,
			},
			LeadsTable: cfg.Supabase.LeadsTable,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil

	case datasourceMySQL:
		log.Println("Using MySQL with GORM")
		mysqlCfg := cfg.Database.MySQL
		gormDB, err := database.NewGormDB(
			getEnvOrConfig(mysqlCfg.Host, "DB_HOST", "mysql"),
			getEnvOrConfig(portString(mysqlCfg.Port), "DB_PORT", "3306"),
			getEnvOrConfig(mysqlCfg.User, "DB_USER", "brokerage_user"),
			getEnvOrConfig(mysqlCfg.Password, "DB_PASSWORD", ""),
			getEnvOrConfig(mysqlCfg.Database, "DB_NAME", "brokerage"),
			database.LogLevel(cfg.Logging.Level),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to MySQL: %w", err)
		}
		if err := gormDB.InitSchema(); err != nil {
			gormDB.Close()
			return nil, nil, fmt.Errorf("initialize schema: %w", err)
		}
		return gormDB, gormDB.Close, nil

	case datasourcePostgres:
		log.Println("Using PostgreSQL")
		pgCfg := cfg.Database.Postgres
		db, err := database.NewDB(
			getEnvOrConfig(pgCfg.Host, "DB_HOST", "db"),
			getEnvOrConfig(portString(pgCfg.Port), "DB_PORT", "5432"),
			getEnvOrConfig(pgCfg.User, "DB_USER", "brokerage_user"),
			getEnvOrConfig(pgCfg.Password, "DB_PASSWORD", ""),
			getEnvOrConfig(pgCfg.Database, "DB_NAME", "brokerage"),
			getEnvOrConfig(pgCfg.SSLMode, "DB_SSLMODE", "disable"),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		if err := db.InitSchema(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("initialize schema: %w", err)
		}
		return db, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", kind)
}

// openStores selects the listing source from the datasource setting and the
// lead store from leads.store, which defaults to the datasource when that is
// a database.
func openStores(cfg *config.Config, searchClient *search.SearchClient) (*stores, error) {
	st := &stores{kind: getEnvOrConfig(cfg.Datasource.Type, "DATASOURCE", datasourceSupabase)}

	switch st.kind {
	case datasourceSupabase, datasourceMySQL, datasourcePostgres:
		b, closeFn, err := openBackend(cfg, st.kind)
		if err != nil {
			return nil, err
		}
		st.source = b
		st.closers = append(st.closers, closeFn)
		if cfg.Leads.Store == "" || cfg.Leads.Store == st.kind {
			st.leads = b
		}

	case datasourceMeilisearch:
		if searchClient == nil {
			return nil, errors.New("datasource meilisearch needs search.meilisearch.host")
		}
		log.Println("Using Meilisearch as listing source")
		st.source = searchClient

	case datasourceFile:
		path := getEnvOrConfig(cfg.Datasource.SeedFile, "SEED_FILE", "data/seed.json")
		mem, err := listing.LoadSeedFile(path)
		if err != nil {
			return nil, err
		}
		log.Printf("Using seed file %s", path)
		st.source = mem

	default:
		return nil, fmt.Errorf("unknown datasource %q", st.kind)
	}

	if st.leads == nil && cfg.Leads.Store != "" {
		b, closeFn, err := openBackend(cfg, cfg.Leads.Store)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("open lead store: %w", err)
		}
		st.leads = b
		st.closers = append(st.closers, closeFn)
	}
	if st.leads == nil {
		log.Println("Warning: no lead store configured, contact forms will answer 503")
	}

	return st, nil
}
