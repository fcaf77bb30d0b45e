package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Transactor runs fn inside a single database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type TxManager struct {
	db   *sqlx.DB
	opts *sql.TxOptions
}

type TxOption func(*TxManager)

// WithIsolation runs every transaction at level instead of the server default.
func WithIsolation(level sql.IsolationLevel) TxOption {
	return func(m *TxManager) {
		m.opts = &sql.TxOptions{Isolation: level}
	}
}

func NewTxManager(db *sqlx.DB, opts ...TxOption) *TxManager {
	m := &TxManager{db: db}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ParseIsolation maps a config value such as "read committed" or
// "serializable" to its level. An empty value is the server default.
func ParseIsolation(name string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(name))) {
	case "", "default":
		return sql.LevelDefault, nil
	case "read committed":
		return sql.LevelReadCommitted, nil
	case "repeatable read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, fmt.Errorf("unknown transaction isolation %q", name)
	}
}

// WithinTx commits when fn returns nil and rolls back otherwise, so no partial
// effect of fn is ever visible to other transactions. Driver errors are
// translated with TranslateError.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := m.db.BeginTxx(ctx, m.opts)
	if err != nil {
		return TranslateError(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return TranslateError(err)
	}
	return TranslateError(tx.Commit())
}
