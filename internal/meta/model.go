// Package meta хранит метаданные сущностей: описание полей, ключей и тип хранилища.
package meta

import "time"

// FieldDef описывает поле сущности. Config уже прошёл через резолвер опций.
type FieldDef struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Config   map[string]any `json:"config"`
	Nullable bool           `json:"nullable"`
	Default  any            `json:"default,omitempty"`
}

// EntityType выбирает поведение хранилища (ClassName).
type EntityType struct {
	ID        string `json:"id" yaml:"id,omitempty"`
	Name      string `json:"name" yaml:"name"`
	ClassName string `json:"class_name" yaml:"class_name"`
}

type Entity struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Fields      []FieldDef `json:"fields"`
	Identity    []string   `json:"identity"`
	PrimaryKeys []string   `json:"primary_keys"`
	Type        EntityType `json:"type"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (e *Entity) FieldNames() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Name)
	}
	return out
}

// Field ищет поле по имени.
func (e *Entity) Field(name string) (FieldDef, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

func (e *Entity) clone() *Entity {
	c := *e
	c.Fields = make([]FieldDef, len(e.Fields))
	for i, f := range e.Fields {
		cfg := make(map[string]any, len(f.Config))
		for k, v := range f.Config {
			cfg[k] = v
		}
		f.Config = cfg
		c.Fields[i] = f
	}
	c.Identity = append([]string(nil), e.Identity...)
	c.PrimaryKeys = append([]string(nil), e.PrimaryKeys...)
	return &c
}
