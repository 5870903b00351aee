package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
)

type reloadReq struct {
	DSLRoot string `json:"dsl_root"` // поддиректория base с *.dsl
}

// dslRoot: запрошенный каталог берётся относительно base и не выходит за него.
func dslRoot(base, requested string) (string, error) {
	if base == "" {
		base = "dsl"
	}
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return base, nil
	}
	if filepath.IsAbs(requested) {
		return "", apperr.New(apperr.InvalidDataType, "dsl_root must be relative to %s", base)
	}
	root := filepath.Join(base, requested)
	rel, err := filepath.Rel(base, root)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperr.New(apperr.InvalidDataType, "dsl_root must be inside %s", base)
	}
	return root, nil
}

// POST /api/admin/reload — создаёт сущности из DSL, которых ещё нет.
func AdminReloadHandler(reload Reloader, defaultRoot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reloadReq
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				_ = c.Error(apperr.New(apperr.InvalidDataType, "Invalid JSON"))
				return
			}
		}
		root, err := dslRoot(defaultRoot, req.DSLRoot)
		if err != nil {
			_ = c.Error(err)
			return
		}

		created, err := reload(c.Request.Context(), root)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if created == nil {
			created = []string{}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "reloaded",
			"root":    root,
			"created": created,
		})
	}
}
