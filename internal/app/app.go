// Package app assembles providers, stores and the dashboard service from configuration.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"tradeboard/internal/config"
	"tradeboard/internal/dashboard"
	"tradeboard/internal/providers"
	"tradeboard/internal/providers/file"
	"tradeboard/internal/providers/remote"
	"tradeboard/internal/store/sqlite"
)

func BuildProvider(cfg config.SourceConfig) (providers.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "file":
		return file.New(file.Config{
			Path:     cfg.Path,
			JSONPath: cfg.JSONPath,
		})
	case "remote":
		return remote.New(remote.Config{
			URL:             cfg.URL,
			JSONPath:        cfg.JSONPath,
			APIKey:          cfg.APIKey,
			APIKeyHeader:    cfg.APIKeyHeader,
			UserAgent:       cfg.UserAgent,
			Timeout:         cfg.Timeout,
			RateLimitPerSec: cfg.RateLimitPerSec,
		})
	default:
		return nil, fmt.Errorf("unknown source kind: %s", cfg.Kind)
	}
}

func OpenStore(ctx context.Context, cfg config.StoreConfig) (*sqlite.Store, error) {
	return sqlite.New(ctx, cfg.Path)
}

// NewService wires a dashboard service over an opened store.
func NewService(cfg *config.Config, st *sqlite.Store, logger *logrus.Logger, observer dashboard.LoadObserver) (*dashboard.Service, error) {
	provider, err := BuildProvider(cfg.Source)
	if err != nil {
		return nil, err
	}
	return dashboard.New(st, provider, dashboard.Options{
		ReloadOnStart:   cfg.Dataset.ReloadOnStart,
		DetailCacheSize: cfg.Cache.CompanyDetails,
		TopCommodities:  cfg.Dashboard.TopCommodities,
		Logger:          logger,
		Metrics:         observer,
	})
}
