package ddl

import (
	"context"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/fieldtype"
	"github.com/AdrianSkaw/dynamic/internal/meta"
)

// Inspector отдаёт текущее состояние таблиц.
type Inspector interface {
	TableExists(ctx context.Context, schema, table string) (bool, error)
	ExistingColumns(ctx context.Context, schema, table string) ([]string, error)
}

type Planner struct {
	inspector Inspector
}

func NewPlanner(inspector Inspector) *Planner {
	return &Planner{inspector: inspector}
}

// Plan снимает состояние таблицы и вызывает Build.
func (p *Planner) Plan(ctx context.Context, req Request) (Statement, error) {
	if req.Drop || req.Name == "" {
		return Build(req, TableState{})
	}
	exists, err := p.inspector.TableExists(ctx, req.Schema, req.Name)
	if err != nil {
		return Statement{}, err
	}
	state := TableState{Exists: exists}
	if exists {
		if state.Columns, err = p.inspector.ExistingColumns(ctx, req.Schema, req.Name); err != nil {
			return Statement{}, err
		}
	}
	return Build(req, state)
}

// Columns переводит описания полей в колонки через каталог типов.
// Значения по умолчанию кодируются и проверяются типом поля.
func Columns(ctx context.Context, catalog *fieldtype.Catalog, fields []meta.FieldDef) ([]Column, error) {
	out := make([]Column, 0, len(fields))
	for _, f := range fields {
		t, err := catalog.Lookup(f.Type)
		if err != nil {
			return nil, err
		}
		cfg := fieldtype.Config(f.Config)
		pc, err := t.Column(ctx, cfg)
		if err != nil {
			return nil, err
		}
		col := Column{Name: f.Name, Type: pc.SQLType, Nullable: f.Nullable}
		if pc.References != nil {
			col.References = &ForeignKey{Table: pc.References.Table, Column: pc.References.Column}
		}

		switch {
		case f.Default == nil:
		case t.Name() == fieldtype.Date && fieldtype.IsNowSentinel(f.Default):
			col.DefaultNow = true
		case t.Name() == fieldtype.Reference:
			col.Default = f.Default
		default:
			v, err := t.Encode(ctx, f.Default, cfg)
			if err == nil {
				err = t.ValidateValue(ctx, v, cfg)
			}
			if err != nil {
				return nil, apperr.Wrap(apperr.InvalidDataType, err, "Invalid default for field %s", f.Name)
			}
			col.Default = v
		}
		out = append(out, col)
	}
	return out, nil
}
