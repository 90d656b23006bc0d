// Package postgres provides a Postgres-backed row store over real tables created
// from the embedded DDL bundle.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"portflow/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const defaultDSN = "postgres://localhost/portflow?sslmode=disable"

// textIDTables carry externally assigned string ids instead of a serial column.
var textIDTables = map[domain.Table]bool{
	domain.TableUsers:           true,
	domain.TableAuthCredentials: true,
}

// Store reads rows through row_to_json and writes them through
// json_populate_record so Postgres coerces JSON values into column types.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn (falls back to defaultDSN), pings and applies the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded DDL bundle.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range SplitStatements(Schema()) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func specFor(table domain.Table) (domain.TableSpec, error) {
	spec, ok := domain.Tables[table]
	if !ok {
		return domain.TableSpec{}, fmt.Errorf("unknown table %q", table)
	}
	return spec, nil
}

// whereClause renders equality filters comparing the text form of each column,
// numbering placeholders from start.
func whereClause(spec domain.TableSpec, filters []domain.Filter, start int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for i, f := range filters {
		if !spec.HasColumn(f.Column) {
			return "", nil, domain.Invalid("unknown column %s for %s", f.Column, spec.Name)
		}
		parts = append(parts, fmt.Sprintf("t.%s::text = $%d", ident(f.Column), start+i))
		args = append(args, domain.KeyOf(f.Value))
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func buildSelect(table domain.Table, q domain.Query) (string, []any, error) {
	spec, err := specFor(table)
	if err != nil {
		return "", nil, err
	}
	where, args, err := whereClause(spec, q.Filters, 1)
	if err != nil {
		return "", nil, err
	}
	orderBy := domain.ColumnID
	if q.OrderBy != "" {
		if !spec.HasColumn(q.OrderBy) {
			return "", nil, domain.Invalid("unknown column %s for %s", q.OrderBy, spec.Name)
		}
		orderBy = q.OrderBy
	}
	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	sql := fmt.Sprintf("SELECT row_to_json(t)::text FROM %s AS t%s ORDER BY t.%s %s", ident(string(table)), where, ident(orderBy), dir)
	if q.Limit > 0 {
		sql += " LIMIT " + strconv.Itoa(q.Limit)
	}
	return sql, args, nil
}

// payloadColumns returns the catalog columns present in row, sorted.
func payloadColumns(spec domain.TableSpec, row domain.Row, includeID bool) ([]string, error) {
	if err := spec.CheckColumns(row); err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(row))
	for col := range row {
		if col == domain.ColumnID && !includeID {
			continue
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

func buildInsert(table domain.Table, cols []string) string {
	tbl := ident(string(table))
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s AS t DEFAULT VALUES RETURNING row_to_json(t)::text", tbl)
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
	}
	list := strings.Join(quoted, ", ")
	return fmt.Sprintf("INSERT INTO %s AS t (%s) SELECT %s FROM json_populate_record(NULL::%s, $1::json) RETURNING row_to_json(t)::text",
		tbl, list, list, tbl)
}

func buildUpdate(table domain.Table, cols []string, spec domain.TableSpec, filters []domain.Filter, returning bool) (string, []any, error) {
	tbl := ident(string(table))
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = p.%s", ident(c), ident(c))
	}
	where, args, err := whereClause(spec, filters, 2)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("UPDATE %s AS t SET %s FROM json_populate_record(NULL::%s, $1::json) AS p%s",
		tbl, strings.Join(sets, ", "), tbl, where)
	if returning {
		sql += " RETURNING row_to_json(t)::text"
	}
	return sql, args, nil
}

func buildDelete(table domain.Table, spec domain.TableSpec, filters []domain.Filter, returning bool) (string, []any, error) {
	where, args, err := whereClause(spec, filters, 1)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("DELETE FROM %s AS t%s", ident(string(table)), where)
	if returning {
		sql += " RETURNING row_to_json(t)::text"
	}
	return sql, args, nil
}

func decode(payload string) (domain.Row, error) {
	var row domain.Row
	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}

func (s *Store) queryOne(ctx context.Context, table domain.Table, id, sql string, args ...any) (domain.Row, error) {
	var payload string
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound{Table: table, ID: id}
		}
		return nil, fmt.Errorf("%s: %w", table, err)
	}
	return decode(payload)
}

// List selects matching rows, ordered by id unless q orders them.
func (s *Store) List(ctx context.Context, table domain.Table, q domain.Query) ([]domain.Row, error) {
	sql, args, err := buildSelect(table, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()
	out := []domain.Row{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// Get returns the row with id or ErrNotFound.
func (s *Store) Get(ctx context.Context, table domain.Table, id string) (domain.Row, error) {
	sql, args, err := buildSelect(table, domain.Query{Filters: []domain.Filter{domain.Eq(domain.ColumnID, id)}, Limit: 1})
	if err != nil {
		return nil, err
	}
	return s.queryOne(ctx, table, id, sql, args...)
}

// Insert writes row and returns it as stored, defaults included.
func (s *Store) Insert(ctx context.Context, table domain.Table, row domain.Row) (domain.Row, error) {
	spec, err := specFor(table)
	if err != nil {
		return nil, err
	}
	cols, err := payloadColumns(spec, row, true)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", table, err)
	}
	args := []any{}
	if len(cols) > 0 {
		args = append(args, string(payload))
	}
	stored, err := s.queryOne(ctx, table, row.ID(), buildInsert(table, cols), args...)
	if err != nil {
		return nil, err
	}
	if _, explicit := row[domain.ColumnID]; explicit && !textIDTables[table] {
		if err := s.syncSequence(ctx, table); err != nil {
			return nil, err
		}
	}
	return stored, nil
}

// syncSequence moves a serial id sequence past explicitly inserted ids.
func (s *Store) syncSequence(ctx context.Context, table domain.Table) error {
	tbl := ident(string(table))
	sql := fmt.Sprintf("SELECT setval(pg_get_serial_sequence($1, 'id'), GREATEST((SELECT MAX(id) FROM %s), 1))", tbl)
	if _, err := s.pool.Exec(ctx, sql, tbl); err != nil {
		return fmt.Errorf("sync %s sequence: %w", table, err)
	}
	return nil
}

// Update merges patch into the row with id. The id column is ignored.
func (s *Store) Update(ctx context.Context, table domain.Table, id string, patch domain.Row) (domain.Row, error) {
	spec, err := specFor(table)
	if err != nil {
		return nil, err
	}
	cols, err := payloadColumns(spec, patch, false)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return s.Get(ctx, table, id)
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", table, err)
	}
	sql, args, err := buildUpdate(table, cols, spec, []domain.Filter{domain.Eq(domain.ColumnID, id)}, true)
	if err != nil {
		return nil, err
	}
	return s.queryOne(ctx, table, id, sql, append([]any{string(payload)}, args...)...)
}

// Delete removes the row with id and returns it.
func (s *Store) Delete(ctx context.Context, table domain.Table, id string) (domain.Row, error) {
	spec, err := specFor(table)
	if err != nil {
		return nil, err
	}
	sql, args, err := buildDelete(table, spec, []domain.Filter{domain.Eq(domain.ColumnID, id)}, true)
	if err != nil {
		return nil, err
	}
	return s.queryOne(ctx, table, id, sql, args...)
}

// UpdateWhere merges patch into every matching row.
func (s *Store) UpdateWhere(ctx context.Context, table domain.Table, filters []domain.Filter, patch domain.Row) (int64, error) {
	spec, err := specFor(table)
	if err != nil {
		return 0, err
	}
	cols, err := payloadColumns(spec, patch, false)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, nil
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", table, err)
	}
	sql, args, err := buildUpdate(table, cols, spec, filters, false)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, sql, append([]any{string(payload)}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteWhere removes every matching row.
func (s *Store) DeleteWhere(ctx context.Context, table domain.Table, filters []domain.Filter) (int64, error) {
	spec, err := specFor(table)
	if err != nil {
		return 0, err
	}
	sql, args, err := buildDelete(table, spec, filters, false)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
