package fieldtype

import (
	"context"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
)

// referenceType хранит значение ключевого поля другой сущности.
type referenceType struct {
	schema   string
	entities Entities
	rows     Rows
	catalog  *Catalog
}

func (*referenceType) sealed()      {}
func (*referenceType) Name() string { return Reference }

func (*referenceType) Options() []Option {
	return []Option{
		{Name: "storage", Kind: OptionString, Required: true},
		{Name: "field", Kind: OptionString, Required: true},
	}
}

func (*referenceType) ValidateConfig(cfg Config) error {
	if cfg.String("storage") == "" || cfg.String("field") == "" {
		return invalid("Reference config requires non-empty storage and field")
	}
	return nil
}

// CheckTarget проверяет, что целевая сущность и её поле существуют.
func (r *referenceType) CheckTarget(ctx context.Context, cfg Config) error {
	storage, field := cfg.String("storage"), cfg.String("field")
	ok, err := r.entities.Exists(ctx, storage)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ReferenceTargetNotFound, `Invalid value - the "storage" table not exist`)
	}
	target, err := r.entities.GetByName(ctx, storage)
	if err != nil {
		return err
	}
	if _, ok := target.Field(field); !ok {
		return apperr.New(apperr.ReferenceTargetNotFound,
			`Invalid value - the "field" field is not exist in %s table`, storage)
	}
	return nil
}

// Encode находит строку по ключу (скаляр или карта ключей) и возвращает значение поля.
func (r *referenceType) Encode(ctx context.Context, v any, cfg Config) (any, error) {
	storage, field := cfg.String("storage"), cfg.String("field")
	keys, ok := v.(map[string]any)
	if !ok {
		keys = map[string]any{field: v}
	}
	row, err := r.rows.FindByKeys(ctx, r.schema, storage, []string{field}, keys)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperr.New(apperr.ReferenceTargetNotFound, "Referenced %s record not found", storage)
	}
	return row[field], nil
}

// Decode возвращает связанную строку целиком.
func (r *referenceType) Decode(ctx context.Context, v any, cfg Config) (any, error) {
	if v == nil {
		return nil, nil
	}
	storage, field := cfg.String("storage"), cfg.String("field")
	target, err := r.entities.GetByName(ctx, storage)
	if err != nil {
		return nil, err
	}
	row, err := r.rows.FindByKeys(ctx, r.schema, storage, target.FieldNames(), map[string]any{field: v})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return v, nil
	}
	return row, nil
}

func (r *referenceType) ValidateValue(ctx context.Context, _ any, cfg Config) error {
	ok, err := r.entities.Exists(ctx, cfg.String("storage"))
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ReferenceTargetNotFound, `Invalid value - the "storage" table not exist`)
	}
	return nil
}

// Column наследует тип целевой колонки и добавляет внешний ключ.
func (r *referenceType) Column(ctx context.Context, cfg Config) (Column, error) {
	storage, field := cfg.String("storage"), cfg.String("field")
	target, err := r.entities.GetByName(ctx, storage)
	if err != nil {
		if apperr.Is(err, apperr.EntityNotFound) {
			return Column{}, apperr.New(apperr.ReferenceTargetNotFound, `Invalid value - the "storage" table not exist`)
		}
		return Column{}, err
	}
	def, ok := target.Field(field)
	if !ok {
		return Column{}, apperr.New(apperr.ReferenceTargetNotFound,
			`Invalid value - the "field" field is not exist in %s table`, storage)
	}
	t, err := r.catalog.Lookup(def.Type)
	if err != nil {
		return Column{}, err
	}
	col, err := t.Column(ctx, Config(def.Config))
	if err != nil {
		return Column{}, err
	}
	col.References = &ForeignKey{Table: storage, Column: field}
	return col, nil
}
