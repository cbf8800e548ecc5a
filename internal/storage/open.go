package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"social_dining/internal/domain"
	"social_dining/internal/storage/memstore"
	mysqlstore "social_dining/internal/storage/mysql"
)

// Open returns the MySQL store when dsn is set and the in-memory store
// otherwise. The returned close func is always safe to call.
func Open(ctx context.Context, dsn string) (domain.RecordStore, func() error, error) {
	if dsn == "" {
		log.Warn().Msg("MYSQL_DSN not set; using in-memory record store (data is lost on restart)")
		return memstore.New(), func() error { return nil }, nil
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	log.Info().Msg("database connection ok")
	return mysqlstore.New(db), db.Close, nil
}
