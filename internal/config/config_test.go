package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	yaml := `
listen: ":8080"
keepalive_max: 100
routes:
  - pattern: /static/*
    handler: "file:/var/www"
  - pattern: /health
    methods: [GET]
    handler: "status:200:ok"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadServer(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, 100, cfg.KeepAliveMax)
	require.Len(t, cfg.Routes, 2)
	assert.Equal(t, "/health", cfg.Routes[1].Pattern)
	assert.Equal(t, []string{"GET"}, cfg.Routes[1].Methods)
}

func TestLoadBalancerDefaultsPicker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lb.yaml")
	yaml := `
listen: ":9090"
backends:
  - addr: "10.0.0.1:80"
    weight: 3
  - addr: "10.0.0.2:80"
    weight: 1
header_rewrites:
  Host: backend.internal
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadBalancer(path)
	require.NoError(t, err)
	assert.Equal(t, PickerRoundRobin, cfg.Picker)
	require.Len(t, cfg.Backends, 2)
	assert.Equal(t, 3, cfg.Backends[0].Weight)
	assert.Equal(t, "backend.internal", cfg.Rewrites["Host"])
}
