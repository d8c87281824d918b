package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/timoknapp/sports-meet/pkg/logger"
)

const kvSchema = `
	CREATE TABLE IF NOT EXISTS meet_kv (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresBackend keeps each collection as one row of meet_kv, so a meet can
// live on a shared database instead of a local BoltDB file.
type PostgresBackend struct {
	db *sqlx.DB
}

func NewPostgresBackend(dsn string) (*PostgresBackend, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return NewPostgresBackendFromDB(db)
}

// NewPostgresBackendFromDB wraps an already connected handle and ensures the schema.
func NewPostgresBackendFromDB(db *sqlx.DB) (*PostgresBackend, error) {
	if _, err := db.Exec(kvSchema); err != nil {
		return nil, fmt.Errorf("failed to create meet_kv table: %w", err)
	}
	logger.Named("store").Info("PostgreSQL store initialized")
	return &PostgresBackend{db: db}, nil
}

func (p *PostgresBackend) Load(key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.Get(&value, `SELECT value FROM meet_kv WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, true, nil
}

func (p *PostgresBackend) Save(key string, value []byte) error {
	query := `
		INSERT INTO meet_kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
	_, err := p.db.Exec(query, key, value)
	return err
}

func (p *PostgresBackend) Remove(key string) error {
	_, err := p.db.Exec(`DELETE FROM meet_kv WHERE key = $1`, key)
	return err
}

func (p *PostgresBackend) Close() error {
	return p.db.Close()
}
