package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"tradeboard/internal/model"
	"tradeboard/internal/providers"
)

const defaultPath = "data/shipments.json"

type Config struct {
	Path     string
	JSONPath string
}

type Provider struct {
	config Config
}

func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = defaultPath
	}
	return &Provider{config: cfg}, nil
}

func (p *Provider) Name() string {
	return "file:" + p.config.Path
}

func (p *Provider) FetchShipments(ctx context.Context) ([]model.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(p.config.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file: dataset %s does not exist: %w", p.config.Path, err)
		}
		return nil, fmt.Errorf("file: reading dataset: %w", err)
	}
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil, providers.ErrNoRecords
	}

	shipments, err := providers.DecodeShipments(payload, p.config.JSONPath)
	if err != nil {
		return nil, fmt.Errorf("file: %s: %w", p.config.Path, err)
	}
	return shipments, nil
}

var _ providers.Provider = (*Provider)(nil)
