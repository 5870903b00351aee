// Package entity — создание, изменение и удаление сущностей:
// метаданные и физическая таблица меняются вместе.
package entity

import (
	"strings"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
)

// CreateRequest — запрос на создание сущности. Fields — сырые описания
// полей ({name, type, config, nullable[, default]}), форма проверяется позже.
type CreateRequest struct {
	Name        string
	Type        string
	Fields      []any
	Identity    []string
	PrimaryKeys []string
}

var requiredKeys = []string{"name", "fields", "identity", "primary_keys"}

// ParseCreateRequest проверяет наличие обязательных ключей и их типы.
func ParseCreateRequest(raw map[string]any) (CreateRequest, error) {
	var missing []string
	for _, k := range requiredKeys {
		if v, ok := raw[k]; !ok || isBlank(v) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return CreateRequest{}, missingFields(missing)
	}

	var req CreateRequest
	name, ok := raw["name"].(string)
	if !ok {
		return req, apperr.New(apperr.InvalidDataType, `The "name" field must be a string`)
	}
	req.Name = name

	fields, ok := raw["fields"].([]any)
	if !ok {
		return req, apperr.New(apperr.InvalidDataType, `The "fields" field must be a list`)
	}
	req.Fields = fields

	var err error
	if req.Identity, err = stringList(raw["identity"], "identity"); err != nil {
		return req, err
	}
	if req.PrimaryKeys, err = stringList(raw["primary_keys"], "primary_keys"); err != nil {
		return req, err
	}

	if t, ok := raw["type"]; ok {
		s, ok := t.(string)
		if !ok {
			return req, apperr.New(apperr.InvalidDataType, `The "type" field must be a string`)
		}
		req.Type = s
	}
	return req, nil
}

// checkRequired: обязательные ключи не пустые. Пустой identity оставил бы таблицу без UNIQUE.
func (r CreateRequest) checkRequired() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if len(r.Fields) == 0 {
		missing = append(missing, "fields")
	}
	if len(r.Identity) == 0 {
		missing = append(missing, "identity")
	}
	if len(r.PrimaryKeys) == 0 {
		missing = append(missing, "primary_keys")
	}
	if len(missing) > 0 {
		return missingFields(missing)
	}
	return nil
}

func missingFields(keys []string) error {
	return apperr.New(apperr.MissingRequestFields, "Missing required fields: %s", strings.Join(keys, ", "))
}

// isBlank: nil, пустая строка, пустой список или словарь.
func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func stringList(v any, key string) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, nil
		}
		return nil, apperr.New(apperr.InvalidDataType, "The %q field must be a list", key)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, apperr.New(apperr.InvalidDataType, "The %q field must contain strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// FieldsToAny упаковывает типизированные описания полей в сырой вид.
func FieldsToAny(fields []map[string]any) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}
