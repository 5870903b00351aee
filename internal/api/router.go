// api/router.go
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AdrianSkaw/dynamic/internal/entity"
	"github.com/AdrianSkaw/dynamic/internal/fieldtype"
	"github.com/AdrianSkaw/dynamic/internal/metrics"
	"github.com/AdrianSkaw/dynamic/internal/record"
)

// Reloader заново применяет DSL-описания из каталога.
type Reloader func(ctx context.Context, dir string) ([]string, error)

type Deps struct {
	Entities       *entity.Service
	Records        *record.Service
	Catalog        *fieldtype.Catalog
	Metrics        *metrics.Metrics
	Log            *slog.Logger
	RequestTimeout time.Duration
	Reload         Reloader
	DSLDir         string
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(d.Log), ErrorMiddleware(d.Log))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	apiGroup := r.Group("/api", Timeout(d.RequestTimeout))
	{
		apiGroup.GET("/field-types", FieldTypesHandler(d.Catalog))

		apiGroup.GET("/entities", ListEntitiesHandler(d.Entities))
		apiGroup.POST("/entities", CreateEntityHandler(d.Entities))
		apiGroup.GET("/entities/:name", GetEntityHandler(d.Entities))
		apiGroup.PATCH("/entities/:name", AlterEntityHandler(d.Entities))
		apiGroup.DELETE("/entities/:name", DeleteEntityHandler(d.Entities))

		apiGroup.POST("/storage/:entity", UpsertHandler(d.Entities, d.Records))
		apiGroup.GET("/storage/:entity", GetRecordHandler(d.Entities, d.Records))

		if d.Reload != nil {
			apiGroup.POST("/admin/reload", AdminReloadHandler(d.Reload, d.DSLDir))
		}
	}
	return r
}
