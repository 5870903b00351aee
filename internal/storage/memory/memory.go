// Package memory — хранилище записей в памяти (режим без БД и тесты).
package memory

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/ddl"
	"github.com/AdrianSkaw/dynamic/internal/storage"
)

type table struct {
	columns  []ddl.Column
	pk       []string
	identity []string
	rows     []map[string]any
}

func (t *table) column(name string) (ddl.Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return ddl.Column{}, false
}

type Repository struct {
	mu     sync.RWMutex
	tables map[string]*table
	now    func() time.Time
}

func New() *Repository {
	return &Repository{tables: make(map[string]*table), now: time.Now}
}

var _ storage.Repository = (*Repository)(nil)

func key(schema, name string) string { return schema + "." + name }

func ioErr(format string, args ...any) error {
	return apperr.New(apperr.StoreIOError, format, args...)
}

func (r *Repository) TableExists(_ context.Context, schema, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tables[key(schema, name)]
	return ok, nil
}

func (r *Repository) ExistingColumns(_ context.Context, schema, name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[key(schema, name)]
	if !ok {
		return nil, nil
	}
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out, nil
}

func (r *Repository) Apply(_ context.Context, st ddl.Statement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(st.Schema, st.Table)

	switch st.Kind {
	case ddl.KindCreate:
		if _, ok := r.tables[k]; ok {
			return ioErr("relation %s already exists", k)
		}
		for _, c := range st.Columns {
			if c.References == nil {
				continue
			}
			ref, ok := r.tables[key(st.Schema, c.References.Table)]
			if !ok {
				return ioErr("relation %s does not exist", key(st.Schema, c.References.Table))
			}
			if _, ok := ref.column(c.References.Column); !ok {
				return ioErr("column %s does not exist in %s", c.References.Column, c.References.Table)
			}
		}
		r.tables[k] = &table{
			columns:  append([]ddl.Column(nil), st.Columns...),
			pk:       st.PrimaryKeys,
			identity: st.Identity,
		}
	case ddl.KindAlter:
		t, ok := r.tables[k]
		if !ok {
			return ioErr("relation %s does not exist", k)
		}
		for _, c := range st.Columns {
			if !c.Nullable && len(t.rows) > 0 && r.defaultFor(c) == nil {
				return ioErr("column %q of relation %s contains null values", c.Name, k)
			}
		}
		for _, c := range st.Columns {
			t.columns = append(t.columns, c)
			for _, row := range t.rows {
				row[c.Name] = r.defaultFor(c)
			}
		}
		for _, name := range st.Dropped {
			kept := t.columns[:0]
			for _, c := range t.columns {
				if c.Name != name {
					kept = append(kept, c)
				}
			}
			t.columns = kept
			for _, row := range t.rows {
				delete(row, name)
			}
		}
	case ddl.KindDrop:
		delete(r.tables, k)
	default:
		return ioErr("unsupported statement %q", st.Kind)
	}
	return nil
}

func (r *Repository) defaultFor(c ddl.Column) any {
	if c.DefaultNow {
		return r.now().Format("2006-01-02 15:04:05")
	}
	return c.Default
}

func (r *Repository) lookup(schema, name string, columns []string) (*table, error) {
	t, ok := r.tables[key(schema, name)]
	if !ok {
		return nil, ioErr("relation %s does not exist", key(schema, name))
	}
	for _, c := range columns {
		if _, ok := t.column(c); !ok {
			return nil, ioErr("column %q does not exist", c)
		}
	}
	return t, nil
}

func (r *Repository) FindByKeys(_ context.Context, schema, name string, columns []string, keys map[string]any) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, err := r.lookup(schema, name, append(append([]string(nil), columns...), keyNames(keys)...))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, apperr.New(apperr.InvalidDataType, "Lookup keys are required")
	}
	for _, row := range t.rows {
		if matches(row, keys) {
			return project(row, columns), nil
		}
	}
	return nil, nil
}

func (r *Repository) Create(_ context.Context, schema, name string, columns []string, data map[string]any) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.lookup(schema, name, columns)
	if err != nil {
		return nil, err
	}

	row := make(map[string]any, len(t.columns))
	for _, c := range t.columns {
		row[c.Name] = r.defaultFor(c)
	}
	for _, c := range columns {
		row[c] = data[c]
	}
	if err := r.check(t, row, nil); err != nil {
		return nil, err
	}
	t.rows = append(t.rows, row)
	return project(row, columns), nil
}

func (r *Repository) Update(_ context.Context, schema, name string, columns []string, data, keys map[string]any) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.lookup(schema, name, append(append([]string(nil), columns...), keyNames(keys)...))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, apperr.New(apperr.InvalidDataType, "Lookup keys are required")
	}
	for i, row := range t.rows {
		if !matches(row, keys) {
			continue
		}
		next := make(map[string]any, len(row))
		for k, v := range row {
			next[k] = v
		}
		for _, c := range columns {
			next[c] = data[c]
		}
		if err := r.check(t, next, row); err != nil {
			return nil, err
		}
		t.rows[i] = next
		return project(next, columns), nil
	}
	return nil, nil
}

// check повторяет ограничения БД: NOT NULL, PRIMARY KEY, UNIQUE.
func (r *Repository) check(t *table, row, self map[string]any) error {
	for _, c := range t.columns {
		if !c.Nullable && row[c.Name] == nil {
			return ioErr("null value in column %q violates not-null constraint", c.Name)
		}
	}
	for _, set := range [][]string{t.pk, t.identity} {
		if len(set) == 0 {
			continue
		}
		keys := make(map[string]any, len(set))
		hasNull := false
		for _, c := range set {
			keys[c] = row[c]
			hasNull = hasNull || row[c] == nil
		}
		// NULL не участвует в UNIQUE
		if hasNull {
			continue
		}
		for _, other := range t.rows {
			if sameRow(other, self) {
				continue
			}
			if matches(other, keys) {
				return ioErr("duplicate key value violates unique constraint (%s)", strings.Join(set, ", "))
			}
		}
	}
	return nil
}

// sameRow сравнивает карты по идентичности, а не по содержимому.
func sameRow(a, b map[string]any) bool {
	if a == nil || b == nil {
		return false
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func keyNames(keys map[string]any) []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	return out
}

func matches(row, keys map[string]any) bool {
	for k, want := range keys {
		if !equal(row[k], want) {
			return false
		}
	}
	return true
}

func project(row map[string]any, columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		out[c] = row[c]
	}
	return out
}

func equal(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
