package fieldtype

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/meta"
)

type fakeRows struct {
	rows  []map[string]any
	calls []map[string]any
}

func (f *fakeRows) FindByKeys(_ context.Context, _, _ string, columns []string, keys map[string]any) (map[string]any, error) {
	f.calls = append(f.calls, keys)
	for _, r := range f.rows {
		match := true
		for k, v := range keys {
			if r[k] != v {
				match = false
				break
			}
		}
		if match {
			out := make(map[string]any, len(columns))
			for _, c := range columns {
				out[c] = r[c]
			}
			return out, nil
		}
	}
	return nil, nil
}

func newTestCatalog(t *testing.T) (*Catalog, *meta.MemoryStore, *fakeRows) {
	t.Helper()
	store := meta.NewMemoryStore([]meta.EntityType{{Name: "update", ClassName: "UpdateStorage"}})
	require.NoError(t, store.Create(context.Background(), &meta.Entity{
		Name: "owner",
		Fields: []meta.FieldDef{
			{Name: "owner_id", Type: Int, Config: map[string]any{}},
			{Name: "title", Type: String, Config: map[string]any{"length": int64(20)}},
		},
		PrimaryKeys: []string{"owner_id"},
	}))
	rows := &fakeRows{rows: []map[string]any{{"owner_id": int64(7), "title": "seven"}}}
	return NewCatalog("hive", store, rows), store, rows
}

func TestCatalogLookup(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	for _, name := range []string{"int", "STRING", "str", "date", "float", "money", "ref", "reference"} {
		typ, err := c.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, Canonical(name), typ.Name())
	}

	_, err := c.Lookup("blob")
	assert.True(t, apperr.Is(err, apperr.UnknownFieldType))
	assert.Equal(t, []string{"date", "float", "int", "money", "reference", "string"}, c.Names())
}

func TestResolve(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	t.Run("defaults", func(t *testing.T) {
		str, _ := c.Lookup(String)
		cfg, err := Resolve(str, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(255), cfg["length"])

		m, _ := c.Lookup(Money)
		cfg, err = Resolve(m, map[string]any{"MAX": float64(100)})
		require.NoError(t, err)
		assert.Equal(t, int64(-2147483648), cfg["min"])
		assert.Equal(t, int64(100), cfg["max"])
	})

	t.Run("missing required", func(t *testing.T) {
		ref, _ := c.Lookup(Reference)
		_, err := Resolve(ref, map[string]any{"storage": "owner"})
		assert.True(t, apperr.Is(err, apperr.MissingRequiredConfig))
	})

	t.Run("lower-cases keys and values", func(t *testing.T) {
		ref, _ := c.Lookup(Reference)
		cfg, err := Resolve(ref, map[string]any{" Storage ": "OWNER", "Field": "Owner_ID"})
		require.NoError(t, err)
		assert.Equal(t, "owner", cfg["storage"])
		assert.Equal(t, "owner_id", cfg["field"])
	})

	t.Run("invalid option", func(t *testing.T) {
		str, _ := c.Lookup(String)
		_, err := Resolve(str, map[string]any{"length": "wide"})
		assert.True(t, apperr.Is(err, apperr.InvalidDataType))

		_, err = Resolve(str, map[string]any{"length": 0})
		assert.True(t, apperr.Is(err, apperr.InvalidDataType))

		m, _ := c.Lookup(Money)
		_, err = Resolve(m, map[string]any{"min": 10, "max": 1})
		assert.True(t, apperr.Is(err, apperr.InvalidDataType))
	})
}

func TestScalarTypes(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCatalog(t)

	t.Run("int", func(t *testing.T) {
		typ, _ := c.Lookup(Int)
		v, err := typ.Encode(ctx, float64(42), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)
		assert.NoError(t, typ.ValidateValue(ctx, v, nil))

		v, _ = typ.Encode(ctx, 4.5, nil)
		assert.True(t, apperr.Is(typ.ValidateValue(ctx, v, nil), apperr.InvalidDataType))

		col, _ := typ.Column(ctx, nil)
		assert.Equal(t, "bigint", col.SQLType)
	})

	t.Run("string", func(t *testing.T) {
		typ, _ := c.Lookup(String)
		cfg := Config{"length": int64(3)}
		assert.NoError(t, typ.ValidateValue(ctx, "abc", cfg))
		assert.Error(t, typ.ValidateValue(ctx, "abcd", cfg))
		assert.Error(t, typ.ValidateValue(ctx, 5, cfg))

		col, _ := typ.Column(ctx, Config{"length": int64(255)})
		assert.Equal(t, "varchar(255)", col.SQLType)
		col, _ = typ.Column(ctx, Config{"length": int64(4096)})
		assert.Equal(t, "text", col.SQLType)
	})

	t.Run("date", func(t *testing.T) {
		fixed := time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)
		typ := dateType{now: func() time.Time { return fixed }}

		v, err := typ.Encode(ctx, "now", nil)
		require.NoError(t, err)
		assert.Equal(t, "2024-03-01 10:20:30", v)

		v, _ = typ.Encode(ctx, "CURRENT_TIMESTAMP", nil)
		assert.Equal(t, "2024-03-01 10:20:30", v)

		v, _ = typ.Encode(ctx, "2023-12-31 23:59:59", nil)
		assert.NoError(t, typ.ValidateValue(ctx, v, nil))

		assert.Error(t, typ.ValidateValue(ctx, "2023-12-31", nil))
		assert.Error(t, typ.ValidateValue(ctx, 5, nil))

		d, _ := typ.Decode(ctx, fixed, nil)
		assert.Equal(t, "2024-03-01 10:20:30", d)
	})

	t.Run("float", func(t *testing.T) {
		typ, _ := c.Lookup(Float)
		v, _ := typ.Encode(ctx, 3, nil)
		assert.Equal(t, float64(3), v)
		v, _ = typ.Encode(ctx, "2.5", nil)
		assert.Equal(t, 2.5, v)
		assert.NoError(t, typ.ValidateValue(ctx, v, nil))
		assert.Error(t, typ.ValidateValue(ctx, "x", nil))
	})

	t.Run("money", func(t *testing.T) {
		typ, _ := c.Lookup(Money)
		cfg, err := Resolve(typ, map[string]any{"min": 0, "max": 100000})
		require.NoError(t, err)

		v, err := typ.Encode(ctx, "39,99", cfg)
		require.NoError(t, err)
		assert.Equal(t, int64(3999), v)
		assert.NoError(t, typ.ValidateValue(ctx, v, cfg))

		v, _ = typ.Encode(ctx, "2000", cfg)
		assert.True(t, apperr.Is(typ.ValidateValue(ctx, v, cfg), apperr.InvalidDataType))

		_, err = typ.Encode(ctx, "abc", cfg)
		assert.True(t, apperr.Is(err, apperr.FormatNotSupported))
	})
}

func TestReferenceType(t *testing.T) {
	ctx := context.Background()
	c, _, rows := newTestCatalog(t)
	typ, _ := c.Lookup(Reference)
	cfg, err := Resolve(typ, map[string]any{"storage": "owner", "field": "owner_id"})
	require.NoError(t, err)

	t.Run("target", func(t *testing.T) {
		checker, ok := typ.(TargetChecker)
		require.True(t, ok)
		assert.NoError(t, checker.CheckTarget(ctx, cfg))

		err := checker.CheckTarget(ctx, Config{"storage": "nope", "field": "owner_id"})
		assert.True(t, apperr.Is(err, apperr.ReferenceTargetNotFound))

		err = checker.CheckTarget(ctx, Config{"storage": "owner", "field": "nope"})
		assert.True(t, apperr.Is(err, apperr.ReferenceTargetNotFound))
		assert.Contains(t, err.Error(), "owner")
	})

	t.Run("encode", func(t *testing.T) {
		v, err := typ.Encode(ctx, int64(7), cfg)
		require.NoError(t, err)
		assert.Equal(t, int64(7), v)
		assert.Equal(t, map[string]any{"owner_id": int64(7)}, rows.calls[len(rows.calls)-1])

		v, err = typ.Encode(ctx, map[string]any{"title": "seven"}, cfg)
		require.NoError(t, err)
		assert.Equal(t, int64(7), v)

		_, err = typ.Encode(ctx, int64(8), cfg)
		assert.True(t, apperr.Is(err, apperr.ReferenceTargetNotFound))
	})

	t.Run("decode", func(t *testing.T) {
		v, err := typ.Decode(ctx, int64(7), cfg)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"owner_id": int64(7), "title": "seven"}, v)
	})

	t.Run("validate", func(t *testing.T) {
		assert.NoError(t, typ.ValidateValue(ctx, int64(7), cfg))
		err := typ.ValidateValue(ctx, int64(7), Config{"storage": "gone", "field": "x"})
		assert.True(t, apperr.Is(err, apperr.ReferenceTargetNotFound))
	})

	t.Run("column", func(t *testing.T) {
		col, err := typ.Column(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, "bigint", col.SQLType)
		assert.Equal(t, &ForeignKey{Table: "owner", Column: "owner_id"}, col.References)
	})
}
