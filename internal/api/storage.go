package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/entity"
	"github.com/AdrianSkaw/dynamic/internal/record"
)

// POST /api/storage/:entity
func UpsertHandler(entities *entity.Service, records *record.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var obj map[string]any
		if err := c.ShouldBindJSON(&obj); err != nil {
			_ = c.Error(apperr.New(apperr.InvalidDataType, "Invalid JSON"))
			return
		}
		ctx := c.Request.Context()
		rec, err := records.Upsert(ctx, c.Param("entity"), obj)
		if err != nil {
			_ = c.Error(err)
			return
		}
		ent, err := entities.Get(ctx, c.Param("entity"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, renderRecord(ent, rec))
	}
}

// GET /api/storage/:entity?code=7
func GetRecordHandler(entities *entity.Service, records *record.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		rec, err := records.Get(ctx, c.Param("entity"), lookupKeys(c.Request.URL.Query()))
		if err != nil {
			_ = c.Error(err)
			return
		}
		ent, err := entities.Get(ctx, c.Param("entity"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, renderRecord(ent, rec))
	}
}
