// Package memstore is the in-process RecordStore used when no database is
// configured. It keeps rows in insertion order and can be given a column set
// per table to reproduce schema drift.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"social_dining/internal/domain"
	"social_dining/internal/shared"
)

type Store struct {
	mu     sync.RWMutex
	tables map[string][]domain.Record
	schema map[string]map[string]struct{}
}

func New() *Store {
	return &Store{
		tables: map[string][]domain.Record{},
		schema: map[string]map[string]struct{}{},
	}
}

// WithColumns restricts table to cols; writes naming other columns fail with
// domain.ErrSchemaMismatch.
func (s *Store) WithColumns(table string, cols ...string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	s.schema[table] = set
	return s
}

func (s *Store) Insert(ctx context.Context, table string, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkColumns(table, rec); err != nil {
		return err
	}
	row := copyRecord(rec)
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.NewString()
	}
	s.tables[table] = append(s.tables[table], row)
	return nil
}

func (s *Store) Select(ctx context.Context, table string, where domain.Record) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Record{}
	for _, row := range s.tables[table] {
		if matches(row, where) {
			out = append(out, copyRecord(row))
		}
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, table string, set, where domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkColumns(table, set); err != nil {
		return err
	}
	for _, row := range s.tables[table] {
		if matches(row, where) {
			for k, v := range set {
				row[k] = v
			}
		}
	}
	return nil
}

func (s *Store) checkColumns(table string, rec domain.Record) error {
	cols, ok := s.schema[table]
	if !ok {
		return nil
	}
	for k := range rec {
		if _, ok := cols[k]; !ok {
			return fmt.Errorf("%w: unknown column %q in %s", domain.ErrSchemaMismatch, k, table)
		}
	}
	return nil
}

// matches compares rendered values so "1" finds 1, as a SQL store would.
func matches(row, where domain.Record) bool {
	for k, want := range where {
		got, ok := row[k]
		if !ok || shared.ToString(got) != shared.ToString(want) {
			return false
		}
	}
	return true
}

func copyRecord(r domain.Record) domain.Record {
	out := make(domain.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
