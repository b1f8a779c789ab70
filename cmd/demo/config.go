package main

import (
	"fmt"
	"os"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

type demoConfig struct {
	Addr       string `yaml:"addr"`
	Backend    string `yaml:"backend"` // memory | redis | sqlite
	RedisURL   string `yaml:"redis_url"`
	SQLitePath string `yaml:"sqlite_path"`
	Prefix     string `yaml:"prefix"`
	TTL        string `yaml:"ttl"` // default TTL, e.g. "30s", "5m", "1d"

	ttl time.Duration
}

func loadConfig(path string) (*demoConfig, error) {
	cfg := &demoConfig{
		Addr:     ":8080",
		Backend:  "memory",
		RedisURL: "redis://localhost:6379",
		Prefix:   "demo",
		TTL:      "5m",
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	ttl, err := str2duration.ParseDuration(cfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid ttl %q: %w", cfg.TTL, err)
	}
	cfg.ttl = ttl
	return cfg, nil
}
