package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AdrianSkaw/dynamic/internal/api"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log, cfg.AutoMigrate)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Error("failed to close database connection", "error", err)
				}
			}()

			created, err := a.bootstrap(ctx, "")
			if err != nil {
				return err
			}
			log.Info("dsl loaded", "dir", cfg.DSLDir, "created", len(created))

			if cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			router := api.NewRouter(api.Deps{
				Entities:       a.entities,
				Records:        a.records,
				Catalog:        a.catalog,
				Metrics:        a.metrics,
				Log:            log,
				RequestTimeout: cfg.RequestTimeout,
				Reload:         a.bootstrap,
				DSLDir:         cfg.DSLDir,
			})
			srv := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				log.Info("hive starting", "addr", srv.Addr, "schema", cfg.Schema)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create metadata tables, seed entity types and apply DSL definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DBURL == "" {
				return errors.New("migrate requires --db or HIVE_DB_URL")
			}
			a, err := newApp(cmd.Context(), cfg, log, true)
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.bootstrap(cmd.Context(), "")
			if err != nil {
				return err
			}
			log.Info("migration complete", "created", created)
			return nil
		},
	}
}
