package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

// PgSession runs engine statements against PostgreSQL. Each statement is sent
// with the simple query protocol, since it is complete SQL text with inline
// literals, and its rows are buffered before Execute returns.
//
// Bool columns render as the integer literals 1 and 0, which PostgreSQL
// rejects for a boolean column. Target tables must declare those columns as
// smallint (creature_template's RegenerateStats and RacialLeader, for example).
type PgSession struct {
	db  DBTX
	err error
	resultSet
}

// NewPgSession wraps a pool, connection or transaction.
func NewPgSession(db DBTX) *PgSession {
	s := &PgSession{db: db}
	s.reset(nil)
	return s
}

// Execute runs stmt and buffers its result rows.
func (s *PgSession) Execute(ctx context.Context, stmt string) {
	s.err = nil
	s.reset(nil)

	rows, err := s.db.Query(ctx, stmt, pgx.QueryExecModeSimpleProtocol)
	if err != nil {
		s.err = err
		return
	}
	defer rows.Close()

	var buf [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			s.err = err
			return
		}
		buf = append(buf, vals)
	}
	if err := rows.Err(); err != nil {
		s.err = err
		return
	}
	s.reset(buf)
}

// Succeeded reports whether the last Execute completed without error.
func (s *PgSession) Succeeded() bool { return s.err == nil }

// Err returns the error of the last Execute.
func (s *PgSession) Err() error { return s.err }

// PoolConfig holds pgxpool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
