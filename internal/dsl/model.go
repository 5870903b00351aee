package dsl

import (
	"strconv"
	"strings"

	"github.com/AdrianSkaw/dynamic/internal/entity"
)

// Entity описывает структуру сущности из DSL
type Entity struct {
	Name        string
	Type        string // имя типа сущности (entity_types)
	Fields      []Field
	Identity    []string
	PrimaryKeys []string
	Source      string // файл, из которого прочитано
}

// Field описывает поле сущности
type Field struct {
	Name      string
	Type      string            // int, string, date, float, money, reference
	RefTarget string            // "brand.code" для ref[brand.code]
	Options   map[string]string // nullable, default и опции типа (length, min, max)
}

// Request переводит описание в запрос конвейера создания.
func (e *Entity) Request() entity.CreateRequest {
	fields := make([]map[string]any, 0, len(e.Fields))
	for _, f := range e.Fields {
		fields = append(fields, f.raw())
	}
	return entity.CreateRequest{
		Name:        e.Name,
		Type:        e.Type,
		Fields:      entity.FieldsToAny(fields),
		Identity:    append([]string(nil), e.Identity...),
		PrimaryKeys: append([]string(nil), e.PrimaryKeys...),
	}
}

func (f Field) raw() map[string]any {
	cfg := map[string]any{}
	out := map[string]any{
		"name":     f.Name,
		"type":     f.Type,
		"config":   cfg,
		"nullable": false,
	}
	for k, v := range f.Options {
		switch k {
		case "nullable":
			out["nullable"] = v == "" || strings.EqualFold(v, "true")
		case "default":
			out["default"] = v
		default:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				cfg[k] = n
			} else {
				cfg[k] = v
			}
		}
	}
	if f.RefTarget != "" {
		storage, field, _ := strings.Cut(f.RefTarget, ".")
		cfg["storage"], cfg["field"] = storage, field
	}
	return out
}

// RefEntity — имя целевой сущности для ссылочного поля.
func (f Field) RefEntity() string {
	if f.RefTarget == "" {
		return f.Options["storage"]
	}
	storage, _, _ := strings.Cut(f.RefTarget, ".")
	return storage
}
