package secrets_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/secrets"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a throwaway Redis server and returns its URL.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, mappedPort.Port())
}

func TestRedisContainerRoundTrip(t *testing.T) {
	url := setupRedisContainer(t)
	ctx := context.Background()

	s, err := secrets.NewRedisFromURL(url, secrets.DefaultPrefix)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))

	ok, err := s.SetNX(ctx, "token:blacklist:abc", []byte("rotated"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SetNX(ctx, "token:blacklist:abc", []byte("rotated"), time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	require.Eventually(t, func() bool {
		_, err := s.Get(ctx, "token:blacklist:abc")
		return err == secrets.ErrNotFound
	}, 5*time.Second, 100*time.Millisecond, "entry expires with its TTL")

	n, err := s.Incr(ctx, "mfa:attempts:u1", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := s.Take(ctx, "mfa:attempts:u1")
	require.NoError(t, err)
	require.Equal(t, "1", string(got))
}
