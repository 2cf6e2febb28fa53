// Package db wraps the postgres connection used by the repositories and times every query.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib" //nolint:revive
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" //nolint:revive

	"github.com/bridgekit/gravity-orchestrator/config"
)

const (
	maxIdleConns    = 3
	maxOpenConns    = 10
	connMaxIdleTime = 5 * time.Minute
)

type DB struct {
	cfg *config.DBConfig
	db  *sqlx.DB
}

func (db *DB) dbURL(scheme string) string {
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(db.cfg.User, db.cfg.Password),
		Host:   fmt.Sprintf("%s:%d", db.cfg.Host, db.cfg.Port),
		Path:   db.cfg.DB,
	}
	return u.String()
}

func NewDB(ctx context.Context, cfg *config.DBConfig) (*DB, error) {
	db := &DB{
		cfg: cfg,
	}
	conn, err := sqlx.ConnectContext(ctx, "pgx", db.dbURL("postgres"))
	if err != nil {
		return nil, fmt.Errorf("can't connect to postgres database %s: %w", cfg.DB, err)
	}
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetConnMaxIdleTime(connMaxIdleTime)
	db.db = conn
	return db, nil
}

func ConnectToDBAndMigrate(ctx context.Context, cfg *config.DBConfig) (*DB, error) {
	db, err := NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err = db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer ObserveDuration(callerName())()
	return db.db.ExecContext(ctx, query, args...)
}

// GetContext scans a single row into dest, translating a missing row into ErrNotFound.
func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(callerName())()
	err := db.db.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(callerName())()
	return db.db.SelectContext(ctx, dest, query, args...)
}

// callerName returns the repository method that issued the query, e.g. "logsCursorsRepo.Ensure".
func callerName() string {
	pc, _, _, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.NewReplacer("(*", "", ")", "").Replace(name)
}
