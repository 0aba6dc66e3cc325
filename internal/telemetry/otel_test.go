package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Run("Empty endpoint is a no-op", func(t *testing.T) {
		// When: setting up without an endpoint
		shutdown, err := Setup(context.Background(), "", "triki")

		// Then: a harmless shutdown is returned
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("Endpoint installs a provider", func(t *testing.T) {
		// When: setting up with a collector URL, nothing is dialed before the first export
		shutdown, err := Setup(context.Background(), "http://127.0.0.1:4318", "triki")
		require.NoError(t, err)

		// Then: shutdown returns with a canceled context
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = shutdown(ctx)
	})
}
