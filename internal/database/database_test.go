package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/orderproxy/internal/config"
)

func TestOpen_SQLiteMemory(t *testing.T) {
	conns, err := Open(config.Database{
		Driver:       "sqlite",
		WriterDSN:    "file::memory:",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)

	assert.Same(t, conns.Writer, conns.Reader)
	require.NoError(t, conns.Ping(context.Background()))

	var one int
	require.NoError(t, conns.Reader.NewSelect().ColumnExpr("1").Scan(context.Background(), &one))
	assert.Equal(t, 1, one)

	assert.NoError(t, conns.Close())
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Database
		want string
	}{
		{name: "unknown driver", cfg: config.Database{Driver: "oracle", WriterDSN: "x"}, want: "unsupported database driver"},
		{name: "empty dsn", cfg: config.Database{Driver: "sqlite"}, want: "empty DSN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
