package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AdrianSkaw/dynamic/internal/config"
	"github.com/AdrianSkaw/dynamic/internal/dsl"
	"github.com/AdrianSkaw/dynamic/internal/entity"
	"github.com/AdrianSkaw/dynamic/internal/fieldtype"
	"github.com/AdrianSkaw/dynamic/internal/locks"
	"github.com/AdrianSkaw/dynamic/internal/logging"
	"github.com/AdrianSkaw/dynamic/internal/meta"
	"github.com/AdrianSkaw/dynamic/internal/metrics"
	"github.com/AdrianSkaw/dynamic/internal/pg"
	"github.com/AdrianSkaw/dynamic/internal/record"
	"github.com/AdrianSkaw/dynamic/internal/reference"
	"github.com/AdrianSkaw/dynamic/internal/storage"
	"github.com/AdrianSkaw/dynamic/internal/storage/memory"
)

type app struct {
	cfg      config.Config
	log      *slog.Logger
	metrics  *metrics.Metrics
	catalog  *fieldtype.Catalog
	entities *entity.Service
	records  *record.Service
	db       *sql.DB // nil в режиме памяти
}

func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	_ = godotenv.Load() // .env необязателен
	cfg, err := config.Load(os.Getenv("HIVE_CONFIG"), cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	return cfg, log, nil
}

// newApp собирает хранилища и сервисы. migrate — создать служебные таблицы и схему.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, migrate bool) (*app, error) {
	types, err := reference.LoadEntityTypes(cfg.EntityTypesFile)
	if err != nil {
		return nil, fmt.Errorf("load entity types: %w", err)
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	var (
		store meta.Store
		repo  storage.Repository
	)
	if cfg.DBURL == "" {
		log.Warn("dbUrl is empty, using in-memory storage")
		store = meta.NewMemoryStore(types)
		repo = memory.New()
	} else {
		db, err := pg.Open(ctx, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		a.db = db
		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open gorm: %w", err)
		}
		gs := meta.NewGormStore(gdb)
		pr := pg.NewRepository(db, log)
		if migrate {
			if err := gs.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
			if err := gs.SeedTypes(ctx, types); err != nil {
				_ = db.Close()
				return nil, err
			}
			if err := pr.EnsureSchema(ctx, cfg.Schema); err != nil {
				_ = db.Close()
				return nil, err
			}
			log.Info("metadata migrated", "schema", cfg.Schema, "entity_types", len(types))
		}
		store, repo = gs, pr
	}

	a.catalog = fieldtype.NewCatalog(cfg.Schema, store, repo)
	a.entities = entity.NewService(store, repo, a.catalog, cfg.Schema,
		entity.WithLogger(log), entity.WithMetrics(a.metrics))
	reg := locks.NewRegistry()
	a.metrics.TrackLocks(reg.Len)
	a.records = record.NewService(store, repo, a.catalog, reg, cfg.Schema,
		record.WithLogger(log), record.WithMetrics(a.metrics))
	return a, nil
}

// bootstrap создаёт сущности из DSL-каталога.
func (a *app) bootstrap(ctx context.Context, dir string) ([]string, error) {
	if dir == "" {
		dir = a.cfg.DSLDir
	}
	return dsl.Bootstrap(ctx, dir, a.entities, a.log)
}

func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
