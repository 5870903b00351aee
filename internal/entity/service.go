package entity

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/ddl"
	"github.com/AdrianSkaw/dynamic/internal/fieldtype"
	"github.com/AdrianSkaw/dynamic/internal/meta"
	"github.com/AdrianSkaw/dynamic/internal/metrics"
	"github.com/AdrianSkaw/dynamic/internal/storage"
)

// Service — конвейеры создания, изменения и удаления сущностей.
// Все три сериализуются одной блокировкой схемы.
type Service struct {
	mu      sync.Mutex
	meta    meta.Store
	repo    storage.Repository
	catalog *fieldtype.Catalog
	planner *ddl.Planner
	schema  string
	log     *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(store meta.Store, repo storage.Repository, catalog *fieldtype.Catalog, schema string, opts ...Option) *Service {
	s := &Service{
		meta:    store,
		repo:    repo,
		catalog: catalog,
		planner: ddl.NewPlanner(repo),
		schema:  schema,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, name string) (*meta.Entity, error) {
	return s.meta.GetByName(ctx, meta.NormalizeName(name))
}

func (s *Service) List(ctx context.Context) ([]*meta.Entity, error) {
	return s.meta.List(ctx)
}

// Create: обязательные ключи → нормализация → опции полей → блокировка → проверки →
// метаданные → DDL. Если DDL не применился, метаданные удаляются.
func (s *Service) Create(ctx context.Context, req CreateRequest) (ent *meta.Entity, err error) {
	defer func(start time.Time) { s.metrics.Observe("create_entity", start, err) }(time.Now())

	if err := req.checkRequired(); err != nil {
		return nil, err
	}
	name := meta.NormalizeName(req.Name)
	identity := meta.NormalizeNames(req.Identity)
	pks := meta.NormalizeNames(req.PrimaryKeys)
	typeName := strings.ToLower(strings.TrimSpace(req.Type))

	fields, err := s.prepareFields(req.Fields)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, cols, err := s.validateCreate(ctx, name, typeName, fields, identity, pks)
	if err != nil {
		return nil, err
	}
	if err := s.meta.Create(ctx, ent); err != nil {
		return nil, err
	}

	req2 := ddl.Request{Schema: s.schema, Name: ent.Name, Identity: identity, PrimaryKeys: pks, Add: cols}
	st, err := s.planner.Plan(ctx, req2)
	switch {
	case apperr.Is(err, apperr.NoChanges):
		s.log.Info("entity table already up to date", "entity", ent.Name)
		return ent, nil
	case err == nil:
		err = s.apply(ctx, st)
	}
	if err != nil {
		if rerr := s.meta.Delete(context.WithoutCancel(ctx), ent); rerr != nil {
			s.log.Error("metadata rollback failed", "entity", ent.Name, "error", rerr)
		}
		return nil, err
	}

	s.log.Info("entity created", "entity", ent.Name, "fields", len(ent.Fields), "type", ent.Type.Name)
	return ent, nil
}

// Delete удаляет метаданные, затем таблицу. Если DROP не прошёл, метаданные возвращаются.
func (s *Service) Delete(ctx context.Context, name string) (ent *meta.Entity, err error) {
	defer func(start time.Time) { s.metrics.Observe("delete_entity", start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, err = s.meta.GetByName(ctx, meta.NormalizeName(name))
	if err != nil {
		return nil, err
	}
	st, err := ddl.Build(ddl.Request{Schema: s.schema, Name: ent.Name, Drop: true}, ddl.TableState{})
	if err != nil {
		return nil, err
	}
	if err := s.meta.Delete(ctx, ent); err != nil {
		return nil, err
	}
	if err := s.apply(ctx, st); err != nil {
		if rerr := s.meta.Create(context.WithoutCancel(ctx), ent); rerr != nil {
			s.log.Error("metadata restore failed", "entity", ent.Name, "error", rerr)
		}
		return nil, err
	}

	s.log.Info("entity deleted", "entity", ent.Name)
	return ent, nil
}

// AlterFields добавляет и удаляет поля. Ключевые поля удалять нельзя,
// отсутствующие в метаданных поля в remove пропускаются.
func (s *Service) AlterFields(ctx context.Context, name string, add []any, remove []string) (ent *meta.Entity, err error) {
	defer func(start time.Time) { s.metrics.Observe("alter_entity", start, err) }(time.Now())

	fields, err := s.prepareFields(add)
	if err != nil {
		return nil, err
	}
	remove = meta.NormalizeNames(remove)

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, err = s.meta.GetByName(ctx, meta.NormalizeName(name))
	if err != nil {
		return nil, err
	}
	// уже удалённые или несуществующие поля пропускаем
	var drop []string
	removed := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		if _, ok := ent.Field(r); !ok {
			s.log.Debug("field to remove does not exist", "entity", ent.Name, "field", r)
			continue
		}
		if contains(ent.PrimaryKeys, r) {
			return nil, apperr.New(apperr.InvalidPrimaryKey, "Primary key field %s cannot be removed", r)
		}
		if contains(ent.Identity, r) {
			return nil, apperr.New(apperr.InvalidIdentity, "Identity field %s cannot be removed", r)
		}
		if _, dup := removed[r]; !dup {
			drop = append(drop, r)
		}
		removed[r] = struct{}{}
	}
	if len(fields) == 0 && len(drop) == 0 {
		return nil, apperr.New(apperr.NoChanges, "No changes to apply.")
	}
	var kept []meta.FieldDef
	for _, f := range ent.Fields {
		if _, ok := removed[f.Name]; !ok {
			kept = append(kept, f)
		}
	}

	defs, err := s.checkFields(fields, kept)
	if err != nil {
		return nil, err
	}
	if err := s.checkTargets(ctx, fields); err != nil {
		return nil, err
	}
	cols, err := ddl.Columns(ctx, s.catalog, defs)
	if err != nil {
		return nil, err
	}
	st, err := s.planner.Plan(ctx, ddl.Request{Schema: s.schema, Name: ent.Name, Add: cols, Remove: drop})
	if err != nil {
		return nil, err
	}

	prev := ent.Fields
	ent.Fields = append(kept, defs...)
	if err := s.meta.Update(ctx, ent); err != nil {
		return nil, err
	}
	if err := s.apply(ctx, st); err != nil {
		ent.Fields = prev
		if rerr := s.meta.Update(context.WithoutCancel(ctx), ent); rerr != nil {
			s.log.Error("metadata restore failed", "entity", ent.Name, "error", rerr)
		}
		return nil, err
	}

	s.log.Info("entity altered", "entity", ent.Name, "added", len(defs), "removed", len(drop))
	return ent, nil
}

func (s *Service) apply(ctx context.Context, st ddl.Statement) error {
	if err := s.repo.Apply(ctx, st); err != nil {
		s.log.Error("DDL failed", "kind", st.Kind, "table", st.Table, "error", err)
		return err
	}
	s.metrics.DDL(string(st.Kind))
	s.log.Debug("DDL applied", "kind", st.Kind, "table", st.Table, "sql", st.SQL)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
