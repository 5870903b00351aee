package api

import (
	"net/url"
	"strings"

	"github.com/AdrianSkaw/dynamic/internal/fieldtype"
	"github.com/AdrianSkaw/dynamic/internal/meta"
	"github.com/AdrianSkaw/dynamic/internal/money"
)

// renderRecord отдаёт запись как есть, денежные поля — строкой "$1,234.56".
func renderRecord(ent *meta.Entity, rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	for _, f := range ent.Fields {
		if f.Type != fieldtype.Money {
			continue
		}
		if n, ok := out[f.Name].(int64); ok {
			out[f.Name] = money.Format(n)
		}
	}
	return out
}

// lookupKeys: первое значение каждого параметра; служебные "_x" пропускаем.
func lookupKeys(q url.Values) map[string]string {
	out := make(map[string]string, len(q))
	for k, vs := range q {
		if strings.HasPrefix(k, "_") || len(vs) == 0 {
			continue
		}
		out[k] = vs[0]
	}
	return out
}
