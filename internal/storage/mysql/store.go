package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"social_dining/internal/domain"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var knownTables = map[string]struct{}{
	domain.TableSessions:        {},
	domain.TableParticipants:    {},
	domain.TableRecommendations: {},
	domain.TableVotes:           {},
}

// Store is a domain.RecordStore over MySQL tables.
type Store struct{ db *sql.DB }

func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Insert(ctx context.Context, table string, rec domain.Record) error {
	if err := checkTable(table); err != nil {
		return err
	}
	cols, args, err := columnsAndArgs(rec)
	if err != nil {
		return err
	}
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = "`" + c + "`"
		marks[i] = "?"
	}
	q := fmt.Sprintf(insertSQL, table, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	_, err = s.db.ExecContext(ctx, q, args...)
	return classify(err)
}

func (s *Store) Select(ctx context.Context, table string, where domain.Record) ([]domain.Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	q := fmt.Sprintf(selectSQL, table)
	clause, args, err := whereClause(where)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q+clause, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []domain.Record{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(domain.Record, len(cols))
		for i, c := range cols {
			rec[c] = normalize(vals[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, table string, set, where domain.Record) error {
	if err := checkTable(table); err != nil {
		return err
	}
	cols, args, err := columnsAndArgs(set)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}
	assigns := make([]string, len(cols))
	for i, c := range cols {
		assigns[i] = "`" + c + "` = ?"
	}
	clause, wargs, err := whereClause(where)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(updateSQL, table, strings.Join(assigns, ", ")) + clause
	_, err = s.db.ExecContext(ctx, q, append(args, wargs...)...)
	return classify(err)
}

func checkTable(table string) error {
	if _, ok := knownTables[table]; !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	return nil
}

// columnsAndArgs returns sorted column names and their SQL-ready values.
func columnsAndArgs(rec domain.Record) ([]string, []any, error) {
	cols := make([]string, 0, len(rec))
	for k := range rec {
		if !identRe.MatchString(k) {
			return nil, nil, fmt.Errorf("invalid column name %q", k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, c := range cols {
		v, err := value(rec[c])
		if err != nil {
			return nil, nil, fmt.Errorf("column %s: %w", c, err)
		}
		args[i] = v
	}
	return cols, args, nil
}

func whereClause(where domain.Record) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	cols, args, err := columnsAndArgs(where)
	if err != nil {
		return "", nil, err
	}
	preds := make([]string, len(cols))
	for i, c := range cols {
		preds[i] = "`" + c + "` = ?"
	}
	return fmt.Sprintf(whereSQL, strings.Join(preds, " AND ")), args, nil
}

// value stores scalars as-is and everything structured as JSON text.
func value(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, int, int64, float64, time.Time, []byte:
		return t, nil
	case *string:
		if t == nil {
			return nil, nil
		}
		return *t, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	}
	return v
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) && me.Number == errBadFieldError {
		return fmt.Errorf("%w: %s", domain.ErrSchemaMismatch, me.Message)
	}
	return err
}
