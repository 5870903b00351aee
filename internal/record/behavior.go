// Package record — запись и чтение строк динамических сущностей.
package record

import (
	"context"
	"strings"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/storage"
)

// Table — физическая таблица сущности с явным списком колонок.
type Table struct {
	repo    storage.Repository
	Schema  string
	Name    string
	Columns []string
}

func (t Table) Find(ctx context.Context, keys map[string]any) (map[string]any, error) {
	return t.repo.FindByKeys(ctx, t.Schema, t.Name, t.Columns, keys)
}

func (t Table) Create(ctx context.Context, data map[string]any) (map[string]any, error) {
	return t.repo.Create(ctx, t.Schema, t.Name, t.Columns, data)
}

func (t Table) Update(ctx context.Context, data, keys map[string]any) (map[string]any, error) {
	return t.repo.Update(ctx, t.Schema, t.Name, t.Columns, data, keys)
}

// Behavior сохраняет уже закодированную запись. keys — значения первичного ключа.
type Behavior interface {
	Save(ctx context.Context, t Table, data, keys map[string]any) (map[string]any, error)
}

// updateStorage: вставка, если строки с таким ключом нет, иначе обновление.
type updateStorage struct{}

func (updateStorage) Save(ctx context.Context, t Table, data, keys map[string]any) (map[string]any, error) {
	row, err := t.Find(ctx, keys)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return t.Create(ctx, data)
	}
	updated, err := t.Update(ctx, data, keys)
	if err != nil || updated != nil {
		return updated, err
	}
	// строку удалили мимо блокировки между поиском и UPDATE
	return t.Create(ctx, data)
}

var behaviors = map[string]Behavior{
	"updatestorage": updateStorage{},
	"upsert":        updateStorage{},
}

// BehaviorFor ищет поведение по class_name без учёта регистра.
func BehaviorFor(className string) (Behavior, error) {
	b, ok := behaviors[strings.ToLower(strings.TrimSpace(className))]
	if !ok {
		return nil, apperr.New(apperr.EntityTypeNotFound, "Storage class %s is not supported", className)
	}
	return b, nil
}
