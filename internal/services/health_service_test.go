package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealpulse/pkg/contracts"
	"dealpulse/pkg/contracts/domain"
)

type stubQueue struct {
	stats domain.QueueStats
}

func (s *stubQueue) Stats() domain.QueueStats { return s.stats }

type stubHub struct {
	stats map[string]int64
}

func (s *stubHub) Stats() map[string]int64 { return s.stats }

func TestHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy without store", func(t *testing.T) {
		svc := NewHealthService(nil, &stubQueue{}, &stubHub{}, nil, slog.Default())

		status := svc.Health(ctx, false)
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "disabled", status.Checks["store"])
		assert.Equal(t, "ok", status.Checks["engine"])
		assert.Equal(t, contracts.Version, status.Version.Version)
		assert.Nil(t, status.Queue)
	})

	t.Run("verbose includes queue and websocket detail", func(t *testing.T) {
		queue := &stubQueue{stats: domain.QueueStats{Workers: 2, QueueCapacity: 8}}
		hub := &stubHub{stats: map[string]int64{"active_clients": 3}}
		svc := NewHealthService(nil, queue, hub, nil, slog.Default())

		status := svc.Health(ctx, true)
		require.NotNil(t, status.Queue)
		assert.Equal(t, 2, status.Queue.Workers)
		assert.Equal(t, int64(3), status.WebSocket["active_clients"])
	})
}

func TestReadiness(t *testing.T) {
	svc := NewHealthService(nil, nil, nil, nil, slog.Default())
	assert.NoError(t, svc.Readiness(context.Background()))
}

func TestVersion(t *testing.T) {
	svc := NewHealthService(nil, nil, nil, nil, slog.Default())

	info := svc.Version()
	assert.Equal(t, contracts.Version, info.Version)
	assert.Equal(t, contracts.APIVersion, info.APIVersion)
}
