package database

import (
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManagerOptions(t *testing.T) {
	db := sqlx.NewDb(nil, DriverPostgres)

	assert.Nil(t, NewTxManager(db).opts)

	m := NewTxManager(db, WithIsolation(sql.LevelSerializable))
	require.NotNil(t, m.opts)
	assert.Equal(t, sql.LevelSerializable, m.opts.Isolation)
}

func TestParseIsolation(t *testing.T) {
	tests := []struct {
		in   string
		want sql.IsolationLevel
	}{
		{"", sql.LevelDefault},
		{"read committed", sql.LevelReadCommitted},
		{"READ_COMMITTED", sql.LevelReadCommitted},
		{"repeatable-read", sql.LevelRepeatableRead},
		{" serializable ", sql.LevelSerializable},
	}
	for _, tt := range tests {
		got, err := ParseIsolation(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseIsolation("snapshot")
	assert.Error(t, err)
}
