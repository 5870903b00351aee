// dsl/lint.go
package dsl

import (
	"fmt"
	"strings"
)

type Issue struct {
	Entity  string `json:"entity"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("%s: %s", i.Entity, i.Message)
	}
	return fmt.Sprintf("%s.%s: %s", i.Entity, i.Field, i.Message)
}

// Lint проверяет базовые противоречия в DSL до похода в хранилище.
// Ссылки на сущности вне набора не проверяются: они могут уже существовать.
func Lint(ents []*Entity) []Issue {
	var issues []Issue

	for _, e := range ents {
		fields := map[string]bool{}
		for _, f := range e.Fields {
			key := strings.ToLower(f.Name)
			if fields[key] {
				issues = append(issues, Issue{Entity: e.Name, Field: f.Name, Code: "duplicate_field",
					Message: "field is declared twice"})
			}
			fields[key] = true

			if f.Type == "reference" && f.RefTarget == "" && (f.Options["storage"] == "" || f.Options["field"] == "") {
				issues = append(issues, Issue{Entity: e.Name, Field: f.Name, Code: "ref_target_empty",
					Message: "reference field needs ref[entity.field] or storage=... field=..."})
			}
		}

		if strings.TrimSpace(e.Type) == "" {
			issues = append(issues, Issue{Entity: e.Name, Code: "type_missing",
				Message: "entity has no type=... (add it to the entity line)"})
		}
		if len(e.PrimaryKeys) == 0 {
			issues = append(issues, Issue{Entity: e.Name, Code: "primary_keys_missing",
				Message: "primary_keys line is required"})
		}
		if len(e.Identity) == 0 {
			issues = append(issues, Issue{Entity: e.Name, Code: "identity_missing",
				Message: "identity line is required"})
		}
		for _, pk := range e.PrimaryKeys {
			if !fields[strings.ToLower(pk)] {
				issues = append(issues, Issue{Entity: e.Name, Field: pk, Code: "primary_key_unknown",
					Message: "primary key is not a declared field"})
			}
		}
		for _, id := range e.Identity {
			if !fields[strings.ToLower(id)] {
				issues = append(issues, Issue{Entity: e.Name, Field: id, Code: "identity_unknown",
					Message: "identity field is not a declared field"})
			}
		}
	}
	return issues
}
