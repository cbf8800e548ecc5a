//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"social_dining/internal/domain"
	mysqlstore "social_dining/internal/storage/mysql"
)

// ---------- small helpers ----------
func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- the test ----------
func TestStore_MySQL_RecordRoundTrip(t *testing.T) {
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=dining",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "dining")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	store := mysqlstore.New(db)
	ctx := context.Background()

	sess := domain.Record{
		"id":          "00000000-0000-0000-0000-000000000001",
		"host_name":   "Ana",
		"location":    "Lisbon",
		"status":      "created",
		"created_at":  "2026-01-01T19:00:00Z",
		"expires_at":  "2026-01-02T19:00:00Z",
		"invite_link": "http://localhost:3000/session/00000000-0000-0000-0000-000000000001",
	}
	if err := store.Insert(ctx, domain.TableSessions, sess); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	analysis := domain.ConflictAnalysis{HasConflicts: true, Conflicts: []string{"vegan vs steakhouse"}, Resolution: "split"}
	if err := store.Update(ctx, domain.TableSessions, domain.Record{"conflict_analysis": analysis}, domain.Record{"id": sess["id"]}); err != nil {
		t.Fatalf("update session: %v", err)
	}

	rec := domain.Record{
		"session_id":   sess["id"],
		"business_id":  "biz-1",
		"name":         "Green Table",
		"rating":       4.5,
		"price":        "$$",
		"categories":   []string{"Vegan"},
		"ai_reasoning": "Why Picked: calm",
		"why_picked":   "calm",
		"trade_offs":   []string{},
	}
	if err := store.Insert(ctx, domain.TableRecommendations, rec); err != nil {
		t.Fatalf("insert recommendation: %v", err)
	}
	rec["not_a_column"] = "x"
	if err := store.Insert(ctx, domain.TableRecommendations, rec); !errors.Is(err, domain.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}

	rows, err := store.Select(ctx, domain.TableRecommendations, domain.Record{"session_id": sess["id"]})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 || rows[0]["business_id"] != "biz-1" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if id, _ := rows[0]["id"].(string); id == "" {
		t.Fatalf("expected generated id, got %+v", rows[0])
	}

	got, err := store.Select(ctx, domain.TableSessions, domain.Record{"id": sess["id"]})
	if err != nil || len(got) != 1 {
		t.Fatalf("select session: %v %+v", err, got)
	}
	if ca, _ := got[0]["conflict_analysis"].(string); ca == "" {
		t.Fatalf("conflict_analysis not stored: %+v", got[0])
	}
}
