package entity

import (
	"context"
	"fmt"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/ddl"
	"github.com/AdrianSkaw/dynamic/internal/fieldtype"
	"github.com/AdrianSkaw/dynamic/internal/meta"
)

var fieldKeys = []string{"name", "type", "config", "nullable"}

// pendingField — поле после нормализации и резолвера опций.
// Ошибки формы и неизвестный тип откладываются до проверок под блокировкой.
type pendingField struct {
	def       meta.FieldDef
	typ       fieldtype.Type
	malformed error
	unknown   error
}

func (s *Service) prepareFields(raw []any) ([]pendingField, error) {
	out := make([]pendingField, 0, len(raw))
	for _, r := range raw {
		p, err := s.prepareField(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) prepareField(raw any) (pendingField, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return pendingField{malformed: apperr.New(apperr.InvalidDataType, "Field definition must be a dictionary")}, nil
	}
	for _, k := range fieldKeys {
		if _, ok := m[k]; !ok {
			return pendingField{malformed: apperr.New(apperr.InvalidDataType, "Missing field key in fields: %s", k)}, nil
		}
	}
	name, okName := m["name"].(string)
	typ, okType := m["type"].(string)
	nullable, okNull := m["nullable"].(bool)
	cfg, okCfg := m["config"].(map[string]any)
	if m["config"] == nil {
		cfg, okCfg = map[string]any{}, true
	}
	if !okName || !okType || !okNull || !okCfg {
		return pendingField{malformed: apperr.New(apperr.InvalidDataType, "Invalid field definition: %s", describe(m))}, nil
	}

	p := pendingField{def: meta.FieldDef{
		Name:     meta.NormalizeName(name),
		Type:     fieldtype.Canonical(typ),
		Nullable: nullable,
		Default:  m["default"],
	}}
	t, err := s.catalog.Lookup(p.def.Type)
	if err != nil {
		p.unknown = err
		p.def.Config = cfg
		return p, nil
	}
	resolved, err := fieldtype.Resolve(t, cfg)
	if err != nil {
		return pendingField{}, err
	}
	p.typ = t
	p.def.Config = resolved
	return p, nil
}

func describe(m map[string]any) string {
	return fmt.Sprintf("name=%v type=%v", m["name"], m["type"])
}

// checkFields проверяет новые поля относительно уже существующих:
// форма, уникальность имён, запрет "id" и известный тип.
func (s *Service) checkFields(fields []pendingField, existing []meta.FieldDef) ([]meta.FieldDef, error) {
	for _, f := range fields {
		if f.malformed != nil {
			return nil, f.malformed
		}
	}

	seen := make(map[string]struct{}, len(existing)+len(fields))
	for _, f := range existing {
		seen[f.Name] = struct{}{}
	}
	for _, f := range fields {
		if _, dup := seen[f.def.Name]; dup {
			return nil, apperr.New(apperr.DuplicateFieldName, `Column names in the "fields" field are not unique`)
		}
		seen[f.def.Name] = struct{}{}
	}

	for _, f := range fields {
		if f.def.Name == "id" {
			return nil, apperr.New(apperr.ReservedFieldName, "Field cannot be named 'id'")
		}
		if f.def.Name == "" {
			return nil, apperr.New(apperr.InvalidDataType, "Field name is empty after normalization")
		}
	}
	for _, f := range fields {
		if f.unknown != nil {
			return nil, f.unknown
		}
	}

	defs := make([]meta.FieldDef, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, f.def)
	}
	return defs, nil
}

// checkTargets: для ссылочных полей целевая сущность и поле должны существовать.
func (s *Service) checkTargets(ctx context.Context, fields []pendingField) error {
	for _, f := range fields {
		if tc, ok := f.typ.(fieldtype.TargetChecker); ok {
			if err := tc.CheckTarget(ctx, fieldtype.Config(f.def.Config)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) validateCreate(ctx context.Context, name, typeName string, fields []pendingField, identity, pks []string) (*meta.Entity, []ddl.Column, error) {
	if name == "" {
		return nil, nil, apperr.New(apperr.NameRequired, "Name is required.")
	}
	exists, err := s.meta.Exists(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, apperr.New(apperr.EntityAlreadyExists, "Entity already exists")
	}

	defs, err := s.checkFields(fields, nil)
	if err != nil {
		return nil, nil, err
	}
	ent := &meta.Entity{Name: name, Fields: defs, Identity: identity, PrimaryKeys: pks}

	for _, id := range identity {
		if _, ok := ent.Field(id); !ok {
			return nil, nil, apperr.New(apperr.InvalidIdentity, "Identity field %s is not defined in fields", id)
		}
	}

	if typeName == "" {
		return nil, nil, apperr.New(apperr.EntityTypeNotFound, "Entity type does not exist")
	}
	et, err := s.meta.EntityType(ctx, typeName)
	if err != nil {
		return nil, nil, err
	}
	ent.Type = *et

	if len(pks) == 0 {
		return nil, nil, apperr.New(apperr.InvalidPrimaryKey, "Primary keys are required")
	}
	for _, pk := range pks {
		if _, ok := ent.Field(pk); !ok {
			return nil, nil, apperr.New(apperr.InvalidPrimaryKey, "Primary key %s is not defined in fields", pk)
		}
	}

	if err := s.checkTargets(ctx, fields); err != nil {
		return nil, nil, err
	}

	cols, err := ddl.Columns(ctx, s.catalog, defs)
	if err != nil {
		return nil, nil, err
	}
	return ent, cols, nil
}
