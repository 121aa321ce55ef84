package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"tradeboard/internal/config"
	"tradeboard/internal/dashboard"
	"tradeboard/internal/logging"
	"tradeboard/internal/model"
	"tradeboard/internal/store"
	"tradeboard/internal/store/sqlite"
)

type metaFile struct {
	GeneratedAt string             `json:"generated_at"`
	Shipments   int                `json:"shipments"`
	Companies   int                `json:"companies"`
	LastLoad    *model.DatasetLoad `json:"last_load,omitempty"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "build":
		build(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func build(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	outDir := fs.String("out", "site/data", "output directory")
	dbPath := fs.String("db", "tradeboard.db", "sqlite database path")
	top := fs.Int("top", 0, "number of top commodities (0 = dashboard.top_commodities)")
	pageSize := fs.Int("page-size", 0, "shipments written to shipments.json (0 = api.default_page_size)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "publisher config failed:", err)
		os.Exit(1)
	}
	if *top > 0 {
		cfg.Dashboard.TopCommodities = *top
	}
	if *pageSize > 0 {
		cfg.API.DefaultPageSize = *pageSize
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "failed to create output dir:", err)
		os.Exit(1)
	}

	if err := publish(cfg, *dbPath, *outDir); err != nil {
		fmt.Fprintln(os.Stderr, "publisher build failed:", err)
		os.Exit(1)
	}
	fmt.Printf("publisher build complete (out=%s)\n", *outDir)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: publisher build [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -config     config file path (default: $TRADEBOARD_CONFIG)")
	fmt.Fprintln(os.Stderr, "  -out        output directory (default: site/data)")
	fmt.Fprintln(os.Stderr, "  -db         sqlite database path (default: tradeboard.db)")
	fmt.Fprintln(os.Stderr, "  -top        number of top commodities (default: 5)")
	fmt.Fprintln(os.Stderr, "  -page-size  shipments written to shipments.json (default: 100)")
}

func publish(cfg *config.Config, dbPath, outDir string) error {
	if strings.TrimSpace(dbPath) == "" {
		return errors.New("db path is required")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	// No provider: publish exactly what the collector stored.
	service, err := dashboard.New(st, nil, dashboard.Options{
		TopCommodities: cfg.Dashboard.TopCommodities,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	stats, err := service.DashboardStats(ctx)
	if err != nil {
		return err
	}
	companies, err := service.Companies(ctx)
	if err != nil {
		return err
	}
	page, err := service.Shipments(ctx, cfg.API.DefaultPageSize, 0)
	if err != nil {
		return err
	}

	meta := metaFile{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Shipments:   page.Total,
		Companies:   len(companies),
	}
	load, err := service.LastLoad(ctx)
	switch {
	case err == nil:
		meta.LastLoad = &load
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	outputs := []struct {
		name  string
		value any
	}{
		{"meta.json", meta},
		{"dashboard.json", stats},
		{"companies.json", companies},
		{"shipments.json", page},
	}
	for _, output := range outputs {
		if err := writeJSON(filepath.Join(outDir, output.name), output.value); err != nil {
			return fmt.Errorf("failed to write %s: %w", output.name, err)
		}
	}

	fmt.Printf("publisher wrote shipments=%s companies=%s months=%d\n",
		humanize.Comma(int64(page.Total)),
		humanize.Comma(int64(len(companies))),
		len(stats.MonthlyVolume),
	)
	return nil
}

func writeJSON(path string, value any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
