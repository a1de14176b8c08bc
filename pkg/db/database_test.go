package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dsn  string
	}{
		{name: "memory", dsn: "sqlite://:memory:"},
		{name: "empty path is memory", dsn: "sqlite://"},
		{name: "file", dsn: "sqlite://" + filepath.Join(t.TempDir(), "test.db")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			db, err := Open(ctx, tt.dsn)
			require.NoError(t, err)
			require.NoError(t, Ping(ctx, db))

			var one int
			require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
			assert.Equal(t, 1, one)

			sqlDB, err := db.DB()
			require.NoError(t, err)
			assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

			require.NoError(t, Close(db))
		})
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "")
	require.Error(t, err)
}
