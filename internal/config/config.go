// Package config holds the process-level settings this gateway reads at
// startup: log level, the local HTTP binding, and the catalogue document's
// path. This is deliberately distinct from internal/catalog.Store, which
// owns the provider catalogue itself (spec §9 open question: the two must
// not be conflated, since one is a deploy-time settings load and the other
// is an interactively-mutated document with unknown-key round-trip).
//
// Grounded on the teacher's internal/config/config.go chu.Load wiring,
// trimmed to the fields this gateway's core actually needs: no postgres/
// sqlite store config, no gateway auth tokens, no cluster (alan), no
// forward-auth, no telemetry exporter — none of those concerns exist for a
// desktop-app-local core.
package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rakunlabs/chu"
	"github.com/rakunlabs/chu/loader/loaderenv"
	"github.com/rakunlabs/logi"
)

// envPrefix namespaces environment-variable overrides, mirroring the
// teacher's "AT_" convention for its own process.
const envPrefix = "GATEWAY_"

// Config is the top-level process settings document.
type Config struct {
	LogLevel string `cfg:"log_level,no_prefix" default:"info"`

	Server Server `cfg:"server"`
	Store  Store  `cfg:"store"`
}

// Server configures the local HTTP+SSE binding (internal/httpapi).
type Server struct {
	Host string `cfg:"host"`
	Port string `cfg:"port" default:"8765"`
}

// Store configures where the provider catalogue document lives on disk.
type Store struct {
	Path string `cfg:"path" default:"catalogue.toml"`
}

// Load reads process settings from path (plus GATEWAY_-prefixed environment
// overrides per chu's layered-loader convention) and applies the resulting
// log level immediately.
func Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config
	if err := chu.Load(ctx, path, &cfg, chu.WithLoaderOption(loaderenv.New(loaderenv.WithPrefix(envPrefix)))); err != nil {
		return nil, err
	}

	if err := logi.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("set log level %s: %w", cfg.LogLevel, err)
	}

	slog.Info("loaded configuration", "config", chu.MarshalMap(cfg))

	return &cfg, nil
}
