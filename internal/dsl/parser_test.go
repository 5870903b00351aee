package dsl

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianSkaw/dynamic/internal/entity"
	"github.com/AdrianSkaw/dynamic/internal/fieldtype"
	"github.com/AdrianSkaw/dynamic/internal/meta"
	"github.com/AdrianSkaw/dynamic/internal/storage/memory"
)

const catalogDSL = `
# каталог
entity product type=update:
  sku: string length=32
  brand: ref[brand.brand_id]
  identity: sku
  primary_keys: sku

entity brand type=update:
  brand_id: int
  name: string length=10 default='test co' nullable
  price: money min=0   # в центах
  identity: name
  primary_keys: brand_id
`

func TestParse(t *testing.T) {
	ents, err := Parse(strings.NewReader(catalogDSL), "catalog.dsl")
	require.NoError(t, err)
	require.Len(t, ents, 2)

	brand := ents[1]
	assert.Equal(t, "brand", brand.Name)
	assert.Equal(t, "update", brand.Type)
	assert.Equal(t, []string{"name"}, brand.Identity)
	assert.Equal(t, []string{"brand_id"}, brand.PrimaryKeys)
	require.Len(t, brand.Fields, 3)
	assert.Equal(t, map[string]string{"length": "10", "default": "test co", "nullable": "true"}, brand.Fields[1].Options)
	assert.Equal(t, map[string]string{"min": "0"}, brand.Fields[2].Options)

	ref := ents[0].Fields[1]
	assert.Equal(t, "reference", ref.Type)
	assert.Equal(t, "brand.brand_id", ref.RefTarget)
	assert.Equal(t, "brand", ref.RefEntity())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("sku: string\n"), "x.dsl")
	assert.ErrorContains(t, err, "x.dsl:1")

	_, err = Parse(strings.NewReader("entity a type=update:\n  ???\n"), "y.dsl")
	assert.ErrorContains(t, err, "y.dsl:2")
}

func TestRequest(t *testing.T) {
	ents, err := Parse(strings.NewReader(catalogDSL), "catalog.dsl")
	require.NoError(t, err)

	req := ents[1].Request()
	assert.Equal(t, "brand", req.Name)
	require.Len(t, req.Fields, 3)
	name := req.Fields[1].(map[string]any)
	assert.Equal(t, true, name["nullable"])
	assert.Equal(t, "test co", name["default"])
	assert.Equal(t, map[string]any{"length": int64(10)}, name["config"])

	ref := ents[0].Request().Fields[1].(map[string]any)
	assert.Equal(t, map[string]any{"storage": "brand", "field": "brand_id"}, ref["config"])
}

func TestLint(t *testing.T) {
	src := `
entity broken:
  a: int
  a: string
  owner: reference
  identity: b
`
	ents, err := Parse(strings.NewReader(src), "broken.dsl")
	require.NoError(t, err)

	codes := map[string]bool{}
	for _, is := range Lint(ents) {
		codes[is.Code] = true
	}
	assert.Equal(t, map[string]bool{
		"duplicate_field":      true,
		"ref_target_empty":     true,
		"type_missing":         true,
		"primary_keys_missing": true,
		"identity_unknown":     true,
	}, codes)
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "core"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core", "catalog.dsl"), []byte(catalogDSL), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	ents, err := LoadAll(dir)
	require.NoError(t, err)
	assert.Len(t, ents, 2)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.dsl"), []byte("entity brand type=update:\n  x: int\n"), 0o644))
	_, err = LoadAll(dir)
	assert.ErrorContains(t, err, "duplicate entity")

	ents, err = LoadAll(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, ents)
}

func TestBootstrap(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.dsl"), []byte(catalogDSL), 0o644))

	store := meta.NewMemoryStore([]meta.EntityType{{Name: "update", ClassName: "UpdateStorage"}})
	repo := memory.New()
	svc := entity.NewService(store, repo, fieldtype.NewCatalog("hive", store, repo), "hive")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	created, err := Bootstrap(context.Background(), dir, svc, log)
	require.NoError(t, err)
	// brand раньше product: на него ссылаются
	assert.Equal(t, []string{"brand", "product"}, created)

	created, err = Bootstrap(context.Background(), dir, svc, log)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestBootstrapLintFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.dsl"), []byte("entity bad:\n  a: int\n"), 0o644))

	store := meta.NewMemoryStore(nil)
	repo := memory.New()
	svc := entity.NewService(store, repo, fieldtype.NewCatalog("hive", store, repo), "hive")

	_, err := Bootstrap(context.Background(), dir, svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "DSL lint failed")
	assert.ErrorContains(t, err, "identity line is required")
}
