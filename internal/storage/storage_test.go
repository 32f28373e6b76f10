package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitylog/internal/platform/config"
	audit "activitylog/pkg/platform/audit"
)

func TestOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		h, err := Open(ctx, &config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}, logger)
		require.NoError(t, err)
		assert.Nil(t, h.Ping)
		assert.NoError(t, h.Close())
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "activity.db")
		h, err := Open(ctx, &config.Config{Store: config.StoreConfig{Driver: config.DriverSQLite, DSN: path}}, logger)
		require.NoError(t, err)
		defer h.Close()

		require.NoError(t, h.Ping(ctx))
		_, err = h.Store.Append(ctx, audit.Event{
			ActorEmail: "a@example.com",
			ActorName:  "A",
			ActorRole:  "Admin",
			Action:     audit.ActionUserLogin,
			Status:     audit.StatusSuccess,
		})
		require.NoError(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(ctx, &config.Config{Store: config.StoreConfig{Driver: "mongo"}}, logger)
		assert.Error(t, err)
	})
}
