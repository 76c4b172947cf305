// Package testkit starts throwaway containers for integration tests.
package testkit

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// IntegrationEnv gates tests that need docker.
const IntegrationEnv = "ASSETBRIDGE_INTEGRATION"

const (
	defaultRedisImage   = "redis:7-alpine"
	defaultRedisPort    = "6379/tcp"
	defaultStartTimeout = 90 * time.Second
)

// RequireIntegration skips the test unless ASSETBRIDGE_INTEGRATION is truthy.
func RequireIntegration(t testing.TB) {
	t.Helper()
	switch strings.TrimSpace(strings.ToLower(os.Getenv(IntegrationEnv))) {
	case "1", "true", "yes", "on":
		return
	}
	t.Skipf("skipping integration test; set %s=1 to run", IntegrationEnv)
}

func requireDocker(t testing.TB) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("docker is not available: %v", r)
		}
	}()
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		t.Skipf("docker is not available: %v", err)
		return
	}
	_ = provider.Close()
}

// Suite owns the containers started by one test.
type Suite struct {
	t   testing.TB
	ctx context.Context
}

func NewSuite(t testing.TB) *Suite {
	t.Helper()
	RequireIntegration(t)
	requireDocker(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &Suite{t: t, ctx: ctx}
}

func (s *Suite) start(req testcontainers.ContainerRequest) testcontainers.Container {
	s.t.Helper()
	c, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		s.t.Fatalf("start container %q: %v", req.Image, err)
	}
	s.t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = c.Terminate(ctx)
	})
	return c
}

func (s *Suite) endpoint(c testcontainers.Container, port string) string {
	s.t.Helper()
	host, err := c.Host(s.ctx)
	if err != nil {
		s.t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(s.ctx, nat.Port(port))
	if err != nil {
		s.t.Fatalf("mapped port for %s: %v", port, err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

// StartRedis starts a redis server and returns its host:port.
func (s *Suite) StartRedis() string {
	s.t.Helper()
	c := s.start(testcontainers.ContainerRequest{
		Image:        defaultRedisImage,
		ExposedPorts: []string{defaultRedisPort},
		WaitingFor:   wait.ForListeningPort(defaultRedisPort).WithStartupTimeout(defaultStartTimeout),
	})
	return s.endpoint(c, defaultRedisPort)
}
