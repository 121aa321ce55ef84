package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"tradeboard/internal/api"
	"tradeboard/internal/app"
	"tradeboard/internal/config"
	"tradeboard/internal/dashboard"
	"tradeboard/internal/logging"
	"tradeboard/internal/metrics"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		serve(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func serve(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	addr := fs.String("addr", "", "listen address (default from config)")
	dbPath := fs.String("db", "", "sqlite database path (default: in-memory)")
	preload := fs.Bool("preload", false, "load the dataset before accepting requests")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "server config failed:", err)
		os.Exit(1)
	}
	if strings.TrimSpace(*addr) != "" {
		cfg.Server.Addr = *addr
	}
	if strings.TrimSpace(*dbPath) != "" {
		cfg.Store.Path = *dbPath
	}

	if err := runServer(cfg, *preload); err != nil {
		fmt.Fprintln(os.Stderr, "server failed:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: server serve [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -config   config file path (default: $TRADEBOARD_CONFIG)")
	fmt.Fprintln(os.Stderr, "  -addr     listen address (default: :8080)")
	fmt.Fprintln(os.Stderr, "  -db       sqlite database path (default: in-memory)")
	fmt.Fprintln(os.Stderr, "  -preload  load the dataset before accepting requests")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "send SIGHUP to reload the dataset from the configured source")
}

func runServer(cfg *config.Config, preload bool) error {
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := app.OpenStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()
	service, err := app.NewService(cfg, st, logger, m)
	if err != nil {
		return err
	}
	if preload {
		if err := service.EnsureLoaded(ctx); err != nil {
			return err
		}
	}

	go reloadOnHangup(ctx, service, logger)

	server := api.NewServer(service, api.Options{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		DefaultPageSize: cfg.API.DefaultPageSize,
		MaxPageSize:     cfg.API.MaxPageSize,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		Logger:          logger,
		Metrics:         m,
	})
	return server.Run(ctx)
}

func reloadOnHangup(ctx context.Context, service *dashboard.Service, logger *logrus.Logger) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			logger.Info("reloading dataset")
			if err := service.Reload(ctx); err != nil {
				logger.WithError(err).Error("dataset reload failed")
			}
		}
	}
}
