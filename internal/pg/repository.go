package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
	"github.com/AdrianSkaw/dynamic/internal/ddl"
	"github.com/AdrianSkaw/dynamic/internal/storage"
)

const (
	codeDuplicateObject = "42710"

	tableExistsSQL = `SELECT EXISTS (SELECT 1 FROM information_schema.tables ` +
		`WHERE table_schema = coalesce(nullif($1, ''), current_schema()) AND table_name = $2)`
	columnsSQL = `SELECT column_name FROM information_schema.columns ` +
		`WHERE table_schema = coalesce(nullif($1, ''), current_schema()) AND table_name = $2 ORDER BY ordinal_position`
)

type Repository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewRepository(db *sql.DB, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.Default()
	}
	return &Repository{db: db, log: log}
}

var _ storage.Repository = (*Repository)(nil)

func ioErr(err error, format string, args ...any) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return apperr.Wrap(apperr.StoreIOError, err, format+" (%s)", append(args, pgErr.Code)...)
	}
	return apperr.Wrap(apperr.StoreIOError, err, format, args...)
}

func quote(s string) string { return pgx.Identifier{s}.Sanitize() }

func table(schema, name string) string {
	if schema == "" {
		return quote(name)
	}
	return pgx.Identifier{schema, name}.Sanitize()
}

func quoteAll(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quote(n)
	}
	return strings.Join(out, ", ")
}

// EnsureSchema создаёт схему физических таблиц, если её нет.
func (r *Repository) EnsureSchema(ctx context.Context, schema string) error {
	if schema == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quote(schema)); err != nil {
		return ioErr(err, "create schema %s", schema)
	}
	return nil
}

func (r *Repository) TableExists(ctx context.Context, schema, name string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, tableExistsSQL, schema, name).Scan(&ok); err != nil {
		return false, ioErr(err, "inspect table %s", name)
	}
	return ok, nil
}

func (r *Repository) ExistingColumns(ctx context.Context, schema, name string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, columnsSQL, schema, name)
	if err != nil {
		return nil, ioErr(err, "inspect columns of %s", name)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, ioErr(err, "inspect columns of %s", name)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr(err, "inspect columns of %s", name)
	}
	return out, nil
}

// Apply выполняет собранный DDL. duplicate_object (42710) пропускается.
func (r *Repository) Apply(ctx context.Context, st ddl.Statement) error {
	if _, err := r.db.ExecContext(ctx, st.SQL); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeDuplicateObject {
			r.log.Warn("DDL skipped (already exists)",
				"table", st.Table, "constraint", pgErr.ConstraintName, "message", strings.TrimSpace(pgErr.Message))
			return nil
		}
		return ioErr(err, "DDL apply failed")
	}
	r.log.Debug("DDL applied", "kind", st.Kind, "table", st.Table, "sql", st.SQL)
	return nil
}

// where собирает условие по ключам в стабильном порядке; плейсхолдеры с $start.
func where(keys map[string]any, start int) (string, []any, error) {
	if len(keys) == 0 {
		return "", nil, apperr.New(apperr.InvalidDataType, "Lookup keys are required")
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	conds := make([]string, len(names))
	args := make([]any, len(names))
	for i, n := range names {
		conds[i] = fmt.Sprintf("%s = $%d", quote(n), start+i)
		args[i] = keys[n]
	}
	return strings.Join(conds, " AND "), args, nil
}

func (r *Repository) scanOne(ctx context.Context, columns []string, query string, args ...any) (map[string]any, error) {
	vals := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(ptrs...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(columns))
	for i, c := range columns {
		if b, ok := vals[i].([]byte); ok {
			out[c] = string(b)
			continue
		}
		out[c] = vals[i]
	}
	return out, nil
}

func (r *Repository) FindByKeys(ctx context.Context, schema, name string, columns []string, keys map[string]any) (map[string]any, error) {
	cond, args, err := where(keys, 1)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", quoteAll(columns), table(schema, name), cond)
	row, err := r.scanOne(ctx, columns, q, args...)
	if err != nil {
		return nil, ioErr(err, "select from %s", name)
	}
	return row, nil
}

func (r *Repository) Create(ctx context.Context, schema, name string, columns []string, data map[string]any) (map[string]any, error) {
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = data[c]
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table(schema, name), quoteAll(columns), strings.Join(placeholders, ", "), quoteAll(columns))
	row, err := r.scanOne(ctx, columns, q, args...)
	if err != nil {
		return nil, ioErr(err, "insert into %s", name)
	}
	return row, nil
}

func (r *Repository) Update(ctx context.Context, schema, name string, columns []string, data, keys map[string]any) (map[string]any, error) {
	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+len(keys))
	for i, c := range columns {
		sets[i] = fmt.Sprintf("%s = $%d", quote(c), i+1)
		args = append(args, data[c])
	}
	cond, keyArgs, err := where(keys, len(columns)+1)
	if err != nil {
		return nil, err
	}
	args = append(args, keyArgs...)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING %s",
		table(schema, name), strings.Join(sets, ", "), cond, quoteAll(columns))
	row, err := r.scanOne(ctx, columns, q, args...)
	if err != nil {
		return nil, ioErr(err, "update %s", name)
	}
	return row, nil
}
