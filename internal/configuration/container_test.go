package configuration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContainerWithMemoryStore(t *testing.T) {
	t.Setenv("AURA_AUTH_JWT_SECRET", "container-secret")
	t.Setenv("AURA_STORE_DRIVER", StoreMemory)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	c, err := BuildContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Hub)
	assert.NotNil(t, c.Store.Conversations)
	assert.NotNil(t, c.UserHandler)
	assert.NotNil(t, c.ConversationHandler)

	families, err := c.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "aura_gateway_connections")
}
