package record

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/entity"
	"github.com/AdrianSkaw/dynamic/internal/fieldtype"
	"github.com/AdrianSkaw/dynamic/internal/locks"
	"github.com/AdrianSkaw/dynamic/internal/meta"
	"github.com/AdrianSkaw/dynamic/internal/storage"
	"github.com/AdrianSkaw/dynamic/internal/storage/memory"
)

const schema = "hive"

type fixture struct {
	store    *meta.MemoryStore
	entities *entity.Service
	records  *Service
	locks    *locks.Registry
}

func newFixture(t *testing.T, repo storage.Repository) fixture {
	t.Helper()
	store := meta.NewMemoryStore([]meta.EntityType{
		{Name: "update", ClassName: "UpdateStorage"},
		{Name: "archive", ClassName: "AppendOnly"},
	})
	if repo == nil {
		repo = memory.New()
	}
	cat := fieldtype.NewCatalog(schema, store, repo)
	reg := locks.NewRegistry()
	return fixture{
		store:    store,
		entities: entity.NewService(store, repo, cat, schema),
		records:  NewService(store, repo, cat, reg, schema),
		locks:    reg,
	}
}

func field(name, typ string, nullable bool, cfg map[string]any) map[string]any {
	return map[string]any{"name": name, "type": typ, "config": cfg, "nullable": nullable}
}

func (f fixture) createBrand(t *testing.T) {
	t.Helper()
	_, err := f.entities.Create(context.Background(), entity.CreateRequest{
		Name: "brand",
		Type: "update",
		Fields: []any{
			field("code", "int", false, nil),
			field("name", "string", false, map[string]any{"length": 10}),
			field("price", "money", true, nil),
			field("launched", "date", true, nil),
		},
		Identity:    []string{"name"},
		PrimaryKeys: []string{"code"},
	})
	require.NoError(t, err)
}

func TestUpsertInsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.createBrand(t)

	in := map[string]any{"code": float64(7), "name": "Acme", "price": "23,345.57", "launched": nil}
	rec, err := f.records.Upsert(ctx, "brand", in)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec["code"])
	assert.Equal(t, int64(2334557), rec["price"])

	in["name"] = "Acme Co"
	in["price"] = "12"
	rec, err = f.records.Upsert(ctx, "Brand", in)
	require.NoError(t, err)
	assert.Equal(t, "Acme Co", rec["name"])
	assert.Equal(t, int64(1200), rec["price"])

	got, err := f.records.Get(ctx, "brand", map[string]string{"code": "7"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Co", got["name"])
	assert.Equal(t, int64(1200), got["price"])
	assert.Nil(t, got["launched"])
	assert.Zero(t, f.locks.Len())
}

func TestUpsertGatesBeforeLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.createBrand(t)

	_, err := f.records.Upsert(ctx, "brand", map[string]any{"code": 1})
	require.Error(t, err)
	assert.Equal(t, apperr.MissingRequestFields, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "name, price, launched")

	_, err = f.records.Upsert(ctx, "brand", map[string]any{
		"code": 1, "name": "x", "price": nil, "launched": nil, "color": "red",
	})
	assert.Equal(t, apperr.InvalidDataType, apperr.KindOf(err))

	_, err = f.records.Upsert(ctx, "ghost", map[string]any{})
	assert.Equal(t, apperr.EntityNotFound, apperr.KindOf(err))
}

func TestUpsertWrapsFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.createBrand(t)

	tests := []struct {
		name  string
		data  map[string]any
		cause apperr.Kind
	}{
		{"not an int", map[string]any{"code": "abc", "name": "x", "price": nil, "launched": nil}, apperr.InvalidDataType},
		{"too long", map[string]any{"code": 1, "name": strings.Repeat("x", 11), "price": nil, "launched": nil}, apperr.InvalidDataType},
		{"null in not-null field", map[string]any{"code": 1, "name": nil, "price": nil, "launched": nil}, apperr.InvalidDataType},
		{"bad money", map[string]any{"code": 1, "name": "x", "price": "abc", "launched": nil}, apperr.FormatNotSupported},
		{"bad date", map[string]any{"code": 1, "name": "x", "price": nil, "launched": "yesterday"}, apperr.InvalidDataType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.records.Upsert(ctx, "brand", tt.data)
			require.Error(t, err)
			assert.Equal(t, apperr.ValidationError, apperr.KindOf(err))
			assert.True(t, apperr.Is(err, tt.cause), err.Error())
			assert.True(t, strings.HasPrefix(err.Error(), "Error while creating record: "))
		})
	}
	assert.Zero(t, f.locks.Len())
}

func TestUpsertIdentityConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.createBrand(t)

	_, err := f.records.Upsert(ctx, "brand", map[string]any{"code": 1, "name": "Acme", "price": nil, "launched": nil})
	require.NoError(t, err)
	_, err = f.records.Upsert(ctx, "brand", map[string]any{"code": 2, "name": "Acme", "price": nil, "launched": nil})
	require.Error(t, err)
	assert.Equal(t, apperr.ValidationError, apperr.KindOf(err))
	assert.True(t, apperr.Is(err, apperr.StoreIOError))
}

func TestUpsertReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.createBrand(t)
	_, err := f.entities.Create(ctx, entity.CreateRequest{
		Name: "product",
		Type: "update",
		Fields: []any{
			field("sku", "string", false, nil),
			field("brand", "reference", false, map[string]any{"storage": "brand", "field": "code"}),
		},
		Identity:    []string{"sku"},
		PrimaryKeys: []string{"sku"},
	})
	require.NoError(t, err)

	_, err = f.records.Upsert(ctx, "brand", map[string]any{"code": 7, "name": "Acme", "price": nil, "launched": nil})
	require.NoError(t, err)

	rec, err := f.records.Upsert(ctx, "product", map[string]any{"sku": "A-1", "brand": 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec["brand"])

	rec, err = f.records.Upsert(ctx, "product", map[string]any{"sku": "A-2", "brand": map[string]any{"name": "Acme"}})
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec["brand"])

	_, err = f.records.Upsert(ctx, "product", map[string]any{"sku": "A-3", "brand": 99})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReferenceTargetNotFound))

	got, err := f.records.Get(ctx, "product", map[string]string{"sku": "A-1"})
	require.NoError(t, err)
	brand, ok := got["brand"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Acme", brand["name"])
}

// staleRepo находит строку, которой в таблице уже нет.
type staleRepo struct{ storage.Repository }

func (staleRepo) FindByKeys(_ context.Context, _, _ string, _ []string, keys map[string]any) (map[string]any, error) {
	return map[string]any{"code": keys["code"]}, nil
}

func TestUpsertRecreatesVanishedRow(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	f := newFixture(t, staleRepo{mem})
	f.createBrand(t)

	rec, err := f.records.Upsert(ctx, "brand", map[string]any{"code": float64(3), "name": "Acme", "price": nil, "launched": nil})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec["code"])

	row, err := mem.FindByKeys(ctx, schema, "brand", []string{"code", "name"}, map[string]any{"code": int64(3)})
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Acme", row["name"])
}

func TestUpsertUnknownBehavior(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.entities.Create(ctx, entity.CreateRequest{
		Name:        "log",
		Type:        "archive",
		Fields:      []any{field("line", "int", false, nil)},
		Identity:    []string{"line"},
		PrimaryKeys: []string{"line"},
	})
	require.NoError(t, err)

	_, err = f.records.Upsert(ctx, "log", map[string]any{"line": 1})
	assert.Equal(t, apperr.EntityTypeNotFound, apperr.KindOf(err))
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.createBrand(t)

	_, err := f.records.Get(ctx, "brand", map[string]string{"code": "1"})
	assert.Equal(t, apperr.RecordNotFound, apperr.KindOf(err))

	_, err = f.records.Get(ctx, "brand", nil)
	assert.Equal(t, apperr.InvalidDataType, apperr.KindOf(err))

	_, err = f.records.Get(ctx, "brand", map[string]string{"color": "red"})
	assert.Equal(t, apperr.InvalidDataType, apperr.KindOf(err))
}

func TestBehaviorFor(t *testing.T) {
	for _, name := range []string{"UpdateStorage", "updatestorage", "upsert"} {
		_, err := BehaviorFor(name)
		assert.NoError(t, err, name)
	}
	_, err := BehaviorFor("Archive")
	assert.Equal(t, apperr.EntityTypeNotFound, apperr.KindOf(err))
}

// recordingRepo пишет порядок обращений к хранилищу.
type recordingRepo struct {
	storage.Repository
	mu     sync.Mutex
	events []string
}

func (r *recordingRepo) note(op string, keys map[string]any) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf("%s:%v", op, keys["code"]))
	r.mu.Unlock()
}

func (r *recordingRepo) FindByKeys(ctx context.Context, schema, table string, columns []string, keys map[string]any) (map[string]any, error) {
	r.note("find", keys)
	time.Sleep(5 * time.Millisecond)
	return r.Repository.FindByKeys(ctx, schema, table, columns, keys)
}

func (r *recordingRepo) Create(ctx context.Context, schema, table string, columns []string, data map[string]any) (map[string]any, error) {
	r.note("write", data)
	return r.Repository.Create(ctx, schema, table, columns, data)
}

func (r *recordingRepo) Update(ctx context.Context, schema, table string, columns []string, data, keys map[string]any) (map[string]any, error) {
	r.note("write", keys)
	return r.Repository.Update(ctx, schema, table, columns, data, keys)
}

func TestUpsertSerializesPerEntity(t *testing.T) {
	ctx := context.Background()
	repo := &recordingRepo{Repository: memory.New()}
	f := newFixture(t, repo)
	f.createBrand(t)

	const n = 8
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(code int) {
			defer wg.Done()
			_, err := f.records.Upsert(ctx, "brand", map[string]any{
				"code": code, "name": fmt.Sprintf("b%d", code), "price": nil, "launched": nil,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Len(t, repo.events, 2*n)
	for i := 0; i < len(repo.events); i += 2 {
		find, write := repo.events[i], repo.events[i+1]
		require.True(t, strings.HasPrefix(find, "find:"), find)
		assert.Equal(t, strings.TrimPrefix(find, "find:"), strings.TrimPrefix(write, "write:"))
	}
	assert.Zero(t, f.locks.Len())
}
