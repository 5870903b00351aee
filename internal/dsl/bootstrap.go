package dsl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/entity"
	"github.com/AdrianSkaw/dynamic/internal/meta"
)

// Creator — часть entity.Service, нужная для загрузки DSL.
type Creator interface {
	Get(ctx context.Context, name string) (*meta.Entity, error)
	Create(ctx context.Context, req entity.CreateRequest) (*meta.Entity, error)
}

// Bootstrap читает root и создаёт сущности, которых ещё нет.
// Возвращает имена созданных сущностей.
func Bootstrap(ctx context.Context, root string, svc Creator, log *slog.Logger) ([]string, error) {
	ents, err := LoadAll(root)
	if err != nil {
		return nil, err
	}
	if issues := Lint(ents); len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i, is := range issues {
			msgs[i] = is.String()
		}
		return nil, apperr.New(apperr.InvalidDataType, "DSL lint failed: %s", strings.Join(msgs, "; "))
	}

	var created []string
	for _, e := range order(ents) {
		_, err := svc.Get(ctx, e.Name)
		if err == nil {
			log.Debug("dsl entity already exists", "entity", e.Name, "source", e.Source)
			continue
		}
		if !apperr.Is(err, apperr.EntityNotFound) {
			return created, err
		}
		ent, err := svc.Create(ctx, e.Request())
		if err != nil {
			return created, fmt.Errorf("dsl %s (%s): %w", e.Name, e.Source, err)
		}
		log.Info("dsl entity created", "entity", ent.Name, "source", e.Source)
		created = append(created, ent.Name)
	}
	return created, nil
}

// order ставит цели ссылок раньше ссылающихся сущностей; циклы оставляют исходный порядок.
func order(ents []*Entity) []*Entity {
	byName := make(map[string]*Entity, len(ents))
	for _, e := range ents {
		byName[strings.ToLower(e.Name)] = e
	}
	var out []*Entity
	state := map[*Entity]int{} // 1 — в обходе, 2 — готово
	var visit func(e *Entity)
	visit = func(e *Entity) {
		if state[e] != 0 {
			return
		}
		state[e] = 1
		for _, f := range e.Fields {
			if dep, ok := byName[strings.ToLower(f.RefEntity())]; ok && dep != e {
				visit(dep)
			}
		}
		state[e] = 2
		out = append(out, e)
	}
	for _, e := range ents {
		visit(e)
	}
	return out
}
