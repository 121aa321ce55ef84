package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"tradeboard/internal/app"
	"tradeboard/internal/config"
	"tradeboard/internal/logging"
	"tradeboard/internal/model"
	"tradeboard/internal/providers"
)

const defaultDBPath = "tradeboard.db"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		run(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func run(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	source := fs.String("source", "", "dataset source: file or remote (default from config)")
	input := fs.String("input", "", "dataset file path or url (default from config)")
	jsonPath := fs.String("json-path", "", "gjson path of the shipment array inside the payload")
	dbPath := fs.String("db", "", "sqlite database path (default: store.path or tradeboard.db)")
	verbose := fs.Bool("verbose", false, "print each shipment")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "collector config failed:", err)
		os.Exit(1)
	}
	applyFlags(cfg, *source, *input, *jsonPath, *dbPath)

	if err := runCollector(cfg, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "collector run failed:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: collector run [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -config     config file path (default: $TRADEBOARD_CONFIG)")
	fmt.Fprintln(os.Stderr, "  -source     dataset source: file or remote (default: file)")
	fmt.Fprintln(os.Stderr, "  -input      dataset file path or url (default: data/shipments.json)")
	fmt.Fprintln(os.Stderr, "  -json-path  path of the shipment array inside the payload (default: top level)")
	fmt.Fprintln(os.Stderr, "  -db         sqlite database path (default: tradeboard.db)")
	fmt.Fprintln(os.Stderr, "  -verbose    print each shipment")
}

func applyFlags(cfg *config.Config, source, input, jsonPath, dbPath string) {
	if strings.TrimSpace(source) != "" {
		cfg.Source.Kind = strings.ToLower(strings.TrimSpace(source))
	}
	if strings.TrimSpace(input) != "" {
		if cfg.Source.Kind == "remote" {
			cfg.Source.URL = input
		} else {
			cfg.Source.Path = input
		}
	}
	if strings.TrimSpace(jsonPath) != "" {
		cfg.Source.JSONPath = jsonPath
	}
	if strings.TrimSpace(dbPath) != "" {
		cfg.Store.Path = dbPath
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = defaultDBPath
	}
}

func runCollector(cfg *config.Config, verbose bool) error {
	if cfg.Store.Path == ":memory:" {
		return errors.New("collector needs a persistent db path")
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	provider, err := app.BuildProvider(cfg.Source)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := app.OpenStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	logger.WithField("source", provider.Name()).Info("fetching shipments")
	shipments, err := provider.FetchShipments(ctx)
	if err != nil {
		if errors.Is(err, providers.ErrNoRecords) {
			return fmt.Errorf("%s returned no shipments", provider.Name())
		}
		return err
	}

	if verbose {
		for _, shipment := range shipments {
			printShipment(shipment)
		}
	}

	if err := st.ReplaceShipments(ctx, provider.Name(), shipments); err != nil {
		return err
	}

	undated := 0
	totalTonnes := 0.0
	for _, shipment := range shipments {
		if !isISODate(shipment.ShipmentDate) {
			undated++
		}
		totalTonnes += shipment.WeightMetricTonnes
	}

	fmt.Printf("collector stored shipments=%s weight_kg=%s\n",
		humanize.Comma(int64(len(shipments))),
		humanize.CommafWithDigits(model.TonnesToKG(totalTonnes), 0),
	)
	fmt.Printf("collector run complete (source=%s db=%s)\n", provider.Name(), cfg.Store.Path)
	if undated > 0 {
		fmt.Printf("collector run undated=%d (excluded from monthly volume)\n", undated)
	}
	return nil
}

func printShipment(shipment model.Shipment) {
	fmt.Printf("%s %s %s (%s) -> %s (%s) %s %.3ft\n",
		shipment.ID,
		shipment.ShipmentDate,
		shipment.ExporterName,
		shipment.ExporterCountry,
		shipment.ImporterName,
		shipment.ImporterCountry,
		shipment.CommodityName,
		shipment.WeightMetricTonnes,
	)
}

func isISODate(value string) bool {
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}
