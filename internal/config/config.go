// Package config loads the YAML configuration for both a plain server
// binary and a load-balancer binary. Configuration loading is explicitly
// out of the core's scope (spec §1); it is the external collaborator that
// instantiates router/server/lb.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Route is one YAML-declared route: a pattern, optional method
// restriction, and a handler description resolved by the host binary
// (e.g. "file:/var/www" or "status:200:ok").
type Route struct {
	Pattern string   `yaml:"pattern"`
	Methods []string `yaml:"methods,omitempty"`
	Handler string   `yaml:"handler"`
}

// Server is the top-level config for the plain (non-load-balancing)
// example binary.
type Server struct {
	Listen         string        `yaml:"listen"`
	KeepAliveMax   int           `yaml:"keepalive_max,omitempty"`
	KeepAliveSecs  int           `yaml:"keepalive_timeout_secs,omitempty"`
	Routes         []Route       `yaml:"routes"`
}

// LoadServer reads and parses a Server config from path.
func LoadServer(path string) (*Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var s Server
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &s, nil
}

// BackendConfig is one backend entry in a load-balancer config.
type BackendConfig struct {
	Addr          string `yaml:"addr"`
	Weight        int    `yaml:"weight,omitempty"`
	TLSServerName string `yaml:"tls_server_name,omitempty"`
}

// PickerKind selects which Picker implementation a Load config instantiates.
type PickerKind string

const (
	PickerRoundRobin PickerKind = "round_robin"
	PickerRandom     PickerKind = "random"
	PickerWeighted   PickerKind = "weighted_round_robin"
)

// Load is the top-level config for the load-balancer example binary.
type Load struct {
	Listen   string            `yaml:"listen"`
	Picker   PickerKind        `yaml:"picker"`
	Backends []BackendConfig   `yaml:"backends"`
	Rewrites map[string]string `yaml:"header_rewrites,omitempty"`
}

// LoadBalancer reads and parses a Load config from path.
func LoadBalancer(path string) (*Load, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var l Load
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if l.Picker == "" {
		l.Picker = PickerRoundRobin
	}
	return &l, nil
}
