// Package ddl строит DDL для физических таблиц сущностей.
// Build — чистая функция от запроса и текущего состояния таблицы.
package ddl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
)

type Kind string

const (
	KindCreate Kind = "create"
	KindAlter  Kind = "alter"
	KindDrop   Kind = "drop"
)

type ForeignKey struct {
	Table  string
	Column string
}

// Column — физическая колонка. Default — уже закодированное значение;
// DefaultNow означает CURRENT_TIMESTAMP.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	Default    any
	DefaultNow bool
	References *ForeignKey
}

// Request — неизменяемое описание желаемого состояния таблицы.
type Request struct {
	Schema      string
	Name        string
	Identity    []string
	PrimaryKeys []string
	Add         []Column
	Remove      []string
	Drop        bool
}

// TableState — что есть в БД сейчас.
type TableState struct {
	Exists  bool
	Columns []string
}

// Statement — результат сборки: текст SQL и его структурный вид.
type Statement struct {
	Kind        Kind
	Schema      string
	Table       string
	SQL         string
	Columns     []Column
	Dropped     []string
	PrimaryKeys []string
	Identity    []string
}

func Build(req Request, state TableState) (Statement, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Statement{}, apperr.New(apperr.NameRequired, "Name is required.")
	}
	st := Statement{Schema: req.Schema, Table: req.Name}
	table := tableIdent(req.Schema, req.Name)

	switch {
	case req.Drop:
		st.Kind = KindDrop
		st.SQL = "DROP TABLE IF EXISTS " + table
		return st, nil

	case !state.Exists:
		parts := make([]string, 0, len(req.Add)+2)
		for _, c := range req.Add {
			def, err := columnDef(req.Schema, c)
			if err != nil {
				return Statement{}, err
			}
			parts = append(parts, def)
		}
		if len(req.PrimaryKeys) > 0 {
			parts = append(parts, "PRIMARY KEY ("+identList(req.PrimaryKeys)+")")
		}
		if len(req.Identity) > 0 {
			parts = append(parts, "UNIQUE ("+identList(req.Identity)+")")
		}
		st.Kind = KindCreate
		st.SQL = fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(parts, ", "))
		st.Columns = append([]Column(nil), req.Add...)
		st.PrimaryKeys = append([]string(nil), req.PrimaryKeys...)
		st.Identity = append([]string(nil), req.Identity...)
		return st, nil
	}

	existing := make(map[string]struct{}, len(state.Columns))
	for _, c := range state.Columns {
		existing[c] = struct{}{}
	}

	var clauses []string
	for _, c := range req.Add {
		if _, ok := existing[c.Name]; ok {
			continue
		}
		def, err := columnDef(req.Schema, c)
		if err != nil {
			return Statement{}, err
		}
		clauses = append(clauses, "ADD COLUMN "+def)
		st.Columns = append(st.Columns, c)
	}
	// DROP идут после ADD
	for _, name := range req.Remove {
		if _, ok := existing[name]; !ok {
			continue
		}
		clauses = append(clauses, "DROP COLUMN "+ident(name))
		st.Dropped = append(st.Dropped, name)
	}
	if len(clauses) == 0 {
		return Statement{}, apperr.New(apperr.NoChanges, "No changes to apply.")
	}
	st.Kind = KindAlter
	st.SQL = fmt.Sprintf("ALTER TABLE %s %s", table, strings.Join(clauses, ", "))
	return st, nil
}

func ident(s string) string { return pgx.Identifier{s}.Sanitize() }

func tableIdent(schema, name string) string {
	if schema == "" {
		return pgx.Identifier{name}.Sanitize()
	}
	return pgx.Identifier{schema, name}.Sanitize()
}

func identList(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ident(n)
	}
	return strings.Join(out, ", ")
}

func columnDef(schema string, c Column) (string, error) {
	var b strings.Builder
	b.WriteString(ident(c.Name))
	b.WriteByte(' ')
	b.WriteString(c.Type)
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	switch {
	case c.DefaultNow:
		b.WriteString(" DEFAULT CURRENT_TIMESTAMP")
	case c.Default != nil:
		lit, err := Literal(c.Default)
		if err != nil {
			return "", apperr.Wrap(apperr.InvalidDataType, err, "default of %s", c.Name)
		}
		b.WriteString(" DEFAULT " + lit)
	}
	if c.References != nil {
		fmt.Fprintf(&b, " REFERENCES %s (%s)", tableIdent(schema, c.References.Table), ident(c.References.Column))
	}
	return b.String(), nil
}

// Literal печатает значение как SQL-литерал; строки экранируются.
func Literal(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'", nil
	case bool:
		if t {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(t), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case time.Time:
		return "'" + t.Format("2006-01-02 15:04:05") + "'", nil
	default:
		return "", fmt.Errorf("unsupported default value %v (%T)", v, v)
	}
}
