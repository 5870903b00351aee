package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/entity"
	"github.com/AdrianSkaw/dynamic/internal/fieldtype"
	"github.com/AdrianSkaw/dynamic/internal/meta"
)

// ===== ENTITY HANDLERS =====

type entityListItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// GET /api/entities
func ListEntitiesHandler(svc *entity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.List(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		out := make([]entityListItem, 0, len(list))
		for _, e := range list {
			out = append(out, entityListItem{Name: e.Name, Type: e.Type.Name})
		}
		c.JSON(http.StatusOK, out)
	}
}

// POST /api/entities
func CreateEntityHandler(svc *entity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(apperr.New(apperr.InvalidDataType, "Invalid JSON"))
			return
		}
		req, err := entity.ParseCreateRequest(body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		ent, err := svc.Create(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, entityView(ent))
	}
}

// GET /api/entities/:name
func GetEntityHandler(svc *entity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ent, err := svc.Get(c.Request.Context(), c.Param("name"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, entityView(ent))
	}
}

type alterReq struct {
	Add    []map[string]any `json:"add"`
	Remove []string         `json:"remove"`
}

// PATCH /api/entities/:name {add: [...], remove: [...]}
func AlterEntityHandler(svc *entity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req alterReq
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperr.New(apperr.InvalidDataType, "Invalid JSON"))
			return
		}
		ent, err := svc.AlterFields(c.Request.Context(), c.Param("name"), entity.FieldsToAny(req.Add), req.Remove)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, entityView(ent))
	}
}

// DELETE /api/entities/:name
func DeleteEntityHandler(svc *entity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ent, err := svc.Delete(c.Request.Context(), c.Param("name"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":       ent.ID,
			"name":     ent.Name,
			"fields":   ent.Fields,
			"identity": ent.Identity,
		})
	}
}

type fieldTypeView struct {
	Name    string             `json:"name"`
	Options []fieldtype.Option `json:"options,omitempty"`
}

// GET /api/field-types
func FieldTypesHandler(cat *fieldtype.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := cat.Names()
		out := make([]fieldTypeView, 0, len(names))
		for _, n := range names {
			t, err := cat.Lookup(n)
			if err != nil {
				continue
			}
			out = append(out, fieldTypeView{Name: n, Options: t.Options()})
		}
		c.JSON(http.StatusOK, out)
	}
}

func entityView(e *meta.Entity) gin.H {
	return gin.H{
		"id":           e.ID,
		"name":         e.Name,
		"fields":       e.Fields,
		"identity":     e.Identity,
		"primary_keys": e.PrimaryKeys,
		"type":         strings.ToLower(e.Type.Name),
		"created_at":   e.CreatedAt,
	}
}
