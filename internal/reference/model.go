package reference

import "github.com/AdrianSkaw/dynamic/internal/meta"

// EntityTypeCatalog — справочник типов сущностей (reference/entity_types.yaml)
type EntityTypeCatalog struct {
	EntityTypes []meta.EntityType `yaml:"entity_types"`
}
