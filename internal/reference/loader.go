// Package reference загружает справочники из YAML: типы сущностей.
package reference

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AdrianSkaw/dynamic/internal/meta"
)

// DefaultEntityTypes — типы, доступные без файла справочника.
func DefaultEntityTypes() []meta.EntityType {
	return []meta.EntityType{{Name: "update", ClassName: "UpdateStorage"}}
}

// LoadEntityTypes читает типы из файла или из всех *.yaml/*.yml каталога.
// Пустой путь или отсутствующий файл → DefaultEntityTypes.
func LoadEntityTypes(path string) ([]meta.EntityType, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultEntityTypes(), nil
	}
	st, err := os.Stat(path)
	if os.IsNotExist(err) {
		return DefaultEntityTypes(), nil
	}
	if err != nil {
		return nil, err
	}

	files := []string{path}
	if st.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		files = files[:0]
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
	}

	var out []meta.EntityType
	seen := map[string]string{}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		var cat EntityTypeCatalog
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		for _, t := range cat.EntityTypes {
			t.Name = strings.ToLower(strings.TrimSpace(t.Name))
			t.ClassName = strings.TrimSpace(t.ClassName)
			if t.Name == "" || t.ClassName == "" {
				return nil, fmt.Errorf("%s: entity type needs name and class_name", f)
			}
			if prev, ok := seen[t.Name]; ok {
				return nil, fmt.Errorf("%s: duplicate entity type %q (first defined in %s)", f, t.Name, prev)
			}
			seen[t.Name] = f
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return DefaultEntityTypes(), nil
	}
	return out, nil
}
