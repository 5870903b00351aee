package record

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/fieldtype"
	"github.com/AdrianSkaw/dynamic/internal/locks"
	"github.com/AdrianSkaw/dynamic/internal/meta"
	"github.com/AdrianSkaw/dynamic/internal/metrics"
	"github.com/AdrianSkaw/dynamic/internal/storage"
)

// Entities — источник метаданных для записи.
type Entities interface {
	GetByName(ctx context.Context, name string) (*meta.Entity, error)
}

type Service struct {
	entities Entities
	repo     storage.Repository
	catalog  *fieldtype.Catalog
	locks    *locks.Registry
	schema   string
	log      *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(entities Entities, repo storage.Repository, catalog *fieldtype.Catalog, reg *locks.Registry, schema string, opts ...Option) *Service {
	s := &Service{
		entities: entities,
		repo:     repo,
		catalog:  catalog,
		locks:    reg,
		schema:   schema,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Upsert кодирует и проверяет значения, затем вставляет или обновляет строку
// по первичному ключу. Запись в одну сущность идёт под её блокировкой.
func (s *Service) Upsert(ctx context.Context, name string, data map[string]any) (rec map[string]any, err error) {
	defer func(start time.Time) { s.metrics.Observe("upsert", start, err) }(time.Now())

	ent, err := s.entities.GetByName(ctx, meta.NormalizeName(name))
	if err != nil {
		return nil, err
	}
	behavior, err := BehaviorFor(ent.Type.ClassName)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, f := range ent.Fields {
		if _, ok := data[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.New(apperr.MissingRequestFields, "Missing required fields: %s", strings.Join(missing, ", "))
	}
	for _, k := range sortedKeys(data) {
		if _, ok := ent.Field(k); !ok {
			return nil, apperr.New(apperr.InvalidDataType, "Field %s is not defined in %s", k, ent.Name)
		}
	}
	types := make(map[string]fieldtype.Type, len(ent.Fields))
	for _, f := range ent.Fields {
		t, err := s.catalog.Lookup(f.Type)
		if err != nil {
			return nil, err
		}
		types[f.Name] = t
	}

	release, err := s.locks.Acquire(ctx, ent.Name)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err = s.save(ctx, ent, behavior, types, data)
	if err != nil {
		s.log.Warn("upsert failed", "entity", ent.Name, "error", err)
		return nil, apperr.Wrap(apperr.ValidationError, err, "Error while creating record")
	}
	return rec, nil
}

func (s *Service) save(ctx context.Context, ent *meta.Entity, b Behavior, types map[string]fieldtype.Type, data map[string]any) (map[string]any, error) {
	encoded := make(map[string]any, len(ent.Fields))
	for _, f := range ent.Fields {
		v := data[f.Name]
		if v == nil {
			if !f.Nullable {
				return nil, apperr.New(apperr.InvalidDataType, "Field %s cannot be null", f.Name)
			}
			encoded[f.Name] = nil
			continue
		}
		t, cfg := types[f.Name], fieldtype.Config(f.Config)
		ev, err := t.Encode(ctx, v, cfg)
		if err != nil {
			return nil, err
		}
		if err := t.ValidateValue(ctx, ev, cfg); err != nil {
			return nil, err
		}
		encoded[f.Name] = ev
	}

	keys := make(map[string]any, len(ent.PrimaryKeys))
	for _, pk := range ent.PrimaryKeys {
		v, ok := encoded[pk]
		if !ok || v == nil {
			return nil, apperr.New(apperr.MissingPrimaryKey, "Missing primary keys field: %s", pk)
		}
		keys[pk] = v
	}

	t := Table{repo: s.repo, Schema: s.schema, Name: ent.Name, Columns: ent.FieldNames()}
	return b.Save(ctx, t, encoded, keys)
}

// Get находит строку по значениям полей из запроса и декодирует её.
func (s *Service) Get(ctx context.Context, name string, query map[string]string) (rec map[string]any, err error) {
	defer func(start time.Time) { s.metrics.Observe("get_record", start, err) }(time.Now())

	ent, err := s.entities.GetByName(ctx, meta.NormalizeName(name))
	if err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return nil, apperr.New(apperr.InvalidDataType, "Lookup keys are required")
	}

	keys := make(map[string]any, len(query))
	for k, raw := range query {
		f, ok := ent.Field(meta.NormalizeName(k))
		if !ok {
			return nil, apperr.New(apperr.InvalidDataType, "Field %s is not defined in %s", k, ent.Name)
		}
		t, err := s.catalog.Lookup(f.Type)
		if err != nil {
			return nil, err
		}
		v, err := t.Encode(ctx, raw, fieldtype.Config(f.Config))
		if err != nil {
			return nil, err
		}
		keys[f.Name] = v
	}

	row, err := s.repo.FindByKeys(ctx, s.schema, ent.Name, ent.FieldNames(), keys)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperr.New(apperr.RecordNotFound, "Record not found in %s", ent.Name)
	}
	return s.decode(ctx, ent, row)
}

func (s *Service) decode(ctx context.Context, ent *meta.Entity, row map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(row))
	for _, f := range ent.Fields {
		t, err := s.catalog.Lookup(f.Type)
		if err != nil {
			return nil, err
		}
		v, err := t.Decode(ctx, row[f.Name], fieldtype.Config(f.Config))
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
