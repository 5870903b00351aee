// Package fieldtype — каталог типов полей: опции, кодирование значений,
// проверка значений и физический тип колонки.
package fieldtype

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/meta"
)

const (
	Int       = "int"
	String    = "string"
	Date      = "date"
	Float     = "float"
	Money     = "money"
	Reference = "reference"
)

// короткие имена исходной схемы
var aliases = map[string]string{
	"str": String,
	"ref": Reference,
}

type OptionKind string

const (
	OptionInt    OptionKind = "int"
	OptionString OptionKind = "str"
)

// Option — декларация опции типа.
type Option struct {
	Name     string     `json:"name"`
	Kind     OptionKind `json:"kind"`
	Default  any        `json:"default,omitempty"`
	Required bool       `json:"required"`
}

type Config map[string]any

func (c Config) Int(key string) int64 {
	n, _ := toInt(c[key])
	return n
}

func (c Config) String(key string) string {
	s, _ := c[key].(string)
	return s
}

type ForeignKey struct {
	Table  string
	Column string
}

// Column — физическое представление поля.
type Column struct {
	SQLType    string
	References *ForeignKey
}

// Type — закрытый набор вариантов; реализации есть только в этом пакете.
type Type interface {
	Name() string
	Options() []Option
	ValidateConfig(cfg Config) error
	Encode(ctx context.Context, v any, cfg Config) (any, error)
	Decode(ctx context.Context, v any, cfg Config) (any, error)
	ValidateValue(ctx context.Context, v any, cfg Config) error
	Column(ctx context.Context, cfg Config) (Column, error)

	sealed()
}

// TargetChecker реализуют типы, ссылающиеся на другие сущности.
type TargetChecker interface {
	CheckTarget(ctx context.Context, cfg Config) error
}

// Entities — то, что нужно ссылочному типу от хранилища метаданных.
type Entities interface {
	GetByName(ctx context.Context, name string) (*meta.Entity, error)
	Exists(ctx context.Context, name string) (bool, error)
}

// Rows — поиск строки в физической таблице.
type Rows interface {
	FindByKeys(ctx context.Context, schema, table string, columns []string, keys map[string]any) (map[string]any, error)
}

type Catalog struct {
	types map[string]Type
}

// NewCatalog собирает каталог. schema — схема физических таблиц для ссылок.
func NewCatalog(schema string, entities Entities, rows Rows) *Catalog {
	c := &Catalog{types: make(map[string]Type)}
	for _, t := range []Type{
		intType{},
		stringType{},
		newDateType(),
		floatType{},
		moneyType{},
		&referenceType{schema: schema, entities: entities, rows: rows, catalog: c},
	} {
		c.types[t.Name()] = t
	}
	return c
}

// Canonical приводит имя типа к каноническому (нижний регистр, алиасы).
func Canonical(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

func (c *Catalog) Lookup(name string) (Type, error) {
	t, ok := c.types[Canonical(name)]
	if !ok {
		return nil, apperr.New(apperr.UnknownFieldType, "Unknown field type: %s", name)
	}
	return t, nil
}

func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.types))
	for n := range c.types {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func invalid(format string, args ...any) error {
	return apperr.New(apperr.InvalidDataType, format, args...)
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		// JSON числа приходят как float64 — проверяем целостность
		if t != float64(int64(t)) {
			return 0, false
		}
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
