package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/classplan/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checker(status observability.HealthStatus, message string) observability.HealthChecker {
	return func(ctx context.Context) observability.HealthCheckResult {
		return observability.HealthCheckResult{Status: status, Message: message}
	}
}

func runHealth(t *testing.T, registry *observability.HealthRegistry) (string, error) {
	t.Helper()
	a := NewApp(nil, nil, nil)
	a.SetHealth(registry)
	SetApp(a)
	t.Cleanup(func() { SetApp(nil) })

	var buf bytes.Buffer
	healthCmd.SetOut(&buf)
	healthCmd.SetContext(context.Background())
	err := healthCmd.RunE(healthCmd, nil)
	return buf.String(), err
}

func TestHealthCmd_Healthy(t *testing.T) {
	registry := observability.NewHealthRegistry(time.Second)
	registry.Register("database", checker(observability.HealthStatusHealthy, ""))
	registry.Register("redis", checker(observability.HealthStatusHealthy, ""))

	out, err := runHealth(t, registry)
	require.NoError(t, err)
	assert.Contains(t, out, "status: healthy")
	assert.Contains(t, out, "database")
	assert.Contains(t, out, "redis")
}

func TestHealthCmd_Unhealthy(t *testing.T) {
	registry := observability.NewHealthRegistry(time.Second)
	registry.Register("database", checker(observability.HealthStatusUnhealthy, "connection refused"))

	out, err := runHealth(t, registry)
	assert.ErrorIs(t, err, ErrUnhealthy)
	assert.Contains(t, out, "status: unhealthy")
	assert.Contains(t, out, "(connection refused)")
}

func TestHealthCmd_RequiresApp(t *testing.T) {
	SetApp(nil)
	healthCmd.SetContext(context.Background())
	assert.Error(t, healthCmd.RunE(healthCmd, nil))
}

func TestNewApp_DefaultsToUTC(t *testing.T) {
	a := NewApp(nil, nil, nil)
	assert.Equal(t, time.UTC, a.Location)

	a.SetLocation(nil)
	assert.Equal(t, time.UTC, a.Location)

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	a.SetLocation(berlin)
	assert.Equal(t, berlin, a.Location)
}
