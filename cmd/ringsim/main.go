package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/ringsim/internal/config"
	"github.com/ryandielhenn/ringsim/internal/logging"
	"github.com/ryandielhenn/ringsim/internal/report"
	"github.com/ryandielhenn/ringsim/internal/telemetry"
	"github.com/ryandielhenn/ringsim/pkg/registry"
	"github.com/ryandielhenn/ringsim/pkg/runs"
	"github.com/ryandielhenn/ringsim/pkg/service"
	"github.com/ryandielhenn/ringsim/pkg/sim"
)

var (
	version = "dev"
	gitSHA  = "unknown"
)

func main() {
	configFile := flag.String("config", "", "YAML config file")
	nodes := flag.Int("nodes", 0, "ring size")
	algorithm := flag.String("algorithm", "", "naive | collector | ring | routing")
	role := flag.Int("role", -1, "master/initiator node")
	mode := flag.String("mode", "", "free-running | lock-step")
	payloads := flag.String("payloads", "", "routing payloads as src:dst:content,...")
	timeout := flag.Duration("timeout", 0, "abort the run after this long")
	serve := flag.String("serve", "", "serve the HTTP API on this address instead of running once")
	metricsAddr := flag.String("metrics-addr", "", "expose /metrics on this address")
	etcd := flag.String("etcd", "", "comma separated etcd endpoints to publish results to")
	logLevel := flag.String("log-level", "", "debug | info | warn | error")
	flag.Parse()

	// 1. Configuration: defaults or file, then env, then explicit flags
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(*configFile); err != nil {
			fatal(err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		fatal(err)
	}
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "nodes":
			cfg.Scenario.Nodes = *nodes
		case "algorithm":
			cfg.Scenario.Algorithm = *algorithm
		case "role":
			cfg.Scenario.Role = role
		case "mode":
			cfg.Scenario.Mode = *mode
		case "payloads":
			cfg.Scenario.Payloads, flagErr = config.ParsePayloads(*payloads)
		case "timeout":
			cfg.Scenario.Timeout = *timeout
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "etcd":
			cfg.Etcd.Endpoints = config.ParseEndpoints(*etcd)
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if flagErr != nil {
		fatal(flagErr)
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		fatal(err)
	}
	defer log.Sync()
	telemetry.SetBuildInfo(version, gitSHA)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Optional metrics listener
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", telemetry.MetricsHandler())
			log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	// 3. Optional etcd publisher
	var pub *registry.Publisher
	if len(cfg.Etcd.Endpoints) > 0 {
		log.Info("creating etcd client", zap.Strings("endpoints", cfg.Etcd.Endpoints))
		cli, err := registry.NewClient(cfg.Etcd.Endpoints)
		if err != nil {
			log.Fatal("etcd client", zap.Error(err))
		}
		defer cli.Close()
		pub = registry.NewPublisher(cli,
			registry.WithPrefix(cfg.Etcd.Prefix),
			registry.WithLease(cli, cfg.Etcd.TTL),
			registry.WithLogger(log),
		)
	}

	if *serve != "" {
		if err := serveHTTP(ctx, *serve, cfg, pub, log); err != nil {
			log.Fatal("server", zap.Error(err))
		}
		return
	}

	// 4. One-shot run
	res, err := sim.Run(ctx, cfg.Scenario, log)
	if res != nil {
		report.Render(os.Stdout, res)
		if pub != nil {
			if perr := pub.Publish(ctx, res); perr != nil {
				log.Warn("publish failed", zap.Error(perr))
			}
		}
	}
	if err != nil {
		log.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func serveHTTP(ctx context.Context, addr string, cfg config.Config, pub *registry.Publisher, log *zap.Logger) error {
	opts := []service.Option{service.WithLogger(log), service.WithDefaults(cfg.Scenario)}
	if pub != nil {
		opts = append(opts, service.WithPublisher(pub))
	}
	svc := service.New(runs.NewStore(cfg.Runs.Capacity, cfg.Runs.TTL), opts...)

	srv := &http.Server{Addr: addr, Handler: svc.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("ringsim listening", zap.String("addr", addr), zap.String("version", version))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "ringsim:", strings.TrimSpace(err.Error()))
	os.Exit(1)
}
