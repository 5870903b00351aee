// Package storage описывает контракт хранилища записей физических таблиц.
package storage

import (
	"context"

	"github.com/AdrianSkaw/dynamic/internal/ddl"
)

// Repository — параметризованный CRUD над таблицами сущностей плюс применение DDL.
// FindByKeys и Update возвращают nil без ошибки, если строки нет. Строки — карты
// имя колонки → значение только по запрошенным columns.
type Repository interface {
	ddl.Inspector

	Apply(ctx context.Context, st ddl.Statement) error
	FindByKeys(ctx context.Context, schema, table string, columns []string, keys map[string]any) (map[string]any, error)
	Create(ctx context.Context, schema, table string, columns []string, data map[string]any) (map[string]any, error)
	Update(ctx context.Context, schema, table string, columns []string, data, keys map[string]any) (map[string]any, error)
}
