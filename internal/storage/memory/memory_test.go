package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/ddl"
)

func createBrand(t *testing.T, r *Repository) {
	t.Helper()
	st, err := ddl.Build(ddl.Request{
		Schema:      "hive",
		Name:        "brand",
		PrimaryKeys: []string{"brand_id"},
		Identity:    []string{"name"},
		Add: []ddl.Column{
			{Name: "brand_id", Type: "bigint"},
			{Name: "name", Type: "varchar(10)", Nullable: true, Default: "test"},
		},
	}, ddl.TableState{})
	require.NoError(t, err)
	require.NoError(t, r.Apply(context.Background(), st))
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	r := New()
	createBrand(t, r)

	ok, err := r.TableExists(ctx, "hive", "brand")
	require.NoError(t, err)
	assert.True(t, ok)
	cols, _ := r.ExistingColumns(ctx, "hive", "brand")
	assert.Equal(t, []string{"brand_id", "name"}, cols)

	columns := []string{"brand_id", "name"}
	row, err := r.FindByKeys(ctx, "hive", "brand", columns, map[string]any{"brand_id": int64(1)})
	require.NoError(t, err)
	assert.Nil(t, row)

	row, err = r.Create(ctx, "hive", "brand", []string{"brand_id"}, map[string]any{"brand_id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"brand_id": int64(1)}, row)

	// default применяется к пропущенной колонке; числа сравниваются по значению
	row, err = r.FindByKeys(ctx, "hive", "brand", columns, map[string]any{"brand_id": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"brand_id": int64(1), "name": "test"}, row)

	row, err = r.Update(ctx, "hive", "brand", columns,
		map[string]any{"brand_id": int64(1), "name": "acme"}, map[string]any{"brand_id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "acme", row["name"])

	_, err = r.Create(ctx, "hive", "brand", columns, map[string]any{"brand_id": int64(1), "name": "other"})
	assert.True(t, apperr.Is(err, apperr.StoreIOError), "primary key")

	_, err = r.Create(ctx, "hive", "brand", columns, map[string]any{"brand_id": int64(2), "name": "acme"})
	assert.True(t, apperr.Is(err, apperr.StoreIOError), "identity")

	_, err = r.Create(ctx, "hive", "brand", columns, map[string]any{"name": "nulls"})
	assert.True(t, apperr.Is(err, apperr.StoreIOError), "not null")

	_, err = r.FindByKeys(ctx, "hive", "brand", []string{"nope"}, nil)
	assert.True(t, apperr.Is(err, apperr.StoreIOError))
}

func TestRepositoryAlterAndDrop(t *testing.T) {
	ctx := context.Background()
	r := New()
	createBrand(t, r)
	_, err := r.Create(ctx, "hive", "brand", []string{"brand_id"}, map[string]any{"brand_id": int64(1)})
	require.NoError(t, err)

	cols, _ := r.ExistingColumns(ctx, "hive", "brand")
	st, err := ddl.Build(ddl.Request{
		Schema: "hive",
		Name:   "brand",
		Add:    []ddl.Column{{Name: "price", Type: "bigint", Nullable: true}},
		Remove: []string{"name"},
	}, ddl.TableState{Exists: true, Columns: cols})
	require.NoError(t, err)
	require.NoError(t, r.Apply(ctx, st))

	cols, _ = r.ExistingColumns(ctx, "hive", "brand")
	assert.Equal(t, []string{"brand_id", "price"}, cols)

	st, err = ddl.Build(ddl.Request{
		Schema: "hive",
		Name:   "brand",
		Add:    []ddl.Column{{Name: "code", Type: "bigint"}},
	}, ddl.TableState{Exists: true, Columns: cols})
	require.NoError(t, err)
	assert.True(t, apperr.Is(r.Apply(ctx, st), apperr.StoreIOError))

	drop, err := ddl.Build(ddl.Request{Schema: "hive", Name: "brand", Drop: true}, ddl.TableState{})
	require.NoError(t, err)
	require.NoError(t, r.Apply(ctx, drop))
	ok, _ := r.TableExists(ctx, "hive", "brand")
	assert.False(t, ok)
	// DROP TABLE IF EXISTS
	require.NoError(t, r.Apply(ctx, drop))
}

func TestRepositoryForeignKeyTarget(t *testing.T) {
	st, err := ddl.Build(ddl.Request{
		Schema: "hive",
		Name:   "item",
		Add:    []ddl.Column{{Name: "brand", Type: "bigint", References: &ddl.ForeignKey{Table: "brand", Column: "brand_id"}}},
	}, ddl.TableState{})
	require.NoError(t, err)

	r := New()
	assert.True(t, apperr.Is(r.Apply(context.Background(), st), apperr.StoreIOError))
	createBrand(t, r)
	assert.NoError(t, r.Apply(context.Background(), st))
}
