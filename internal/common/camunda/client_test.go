package camunda

import (
	"context"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_HealthCheck_UnreachableGateway(t *testing.T) {
	zc, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         "127.0.0.1:1",
		UsePlaintextConnection: true,
	})
	require.NoError(t, err)

	c := &Client{client: zc, config: &ClientConfig{ConnectionTimeout: 300 * time.Millisecond}}
	defer c.Close()

	err = c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zeebe health check failed")
}
