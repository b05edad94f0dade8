package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaspardpetit/dispatchd/internal/api"
	"github.com/gaspardpetit/dispatchd/internal/config"
	"github.com/gaspardpetit/dispatchd/internal/directory"
	"github.com/gaspardpetit/dispatchd/internal/dispatch"
	"github.com/gaspardpetit/dispatchd/internal/logx"
	"github.com/gaspardpetit/dispatchd/internal/metrics"
	"github.com/gaspardpetit/dispatchd/internal/server"
	"github.com/gaspardpetit/dispatchd/internal/store"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	var cfg config.ServerConfig
	// Resolve config with precedence: defaults < file < env < args
	cfg.SetDefaults()
	cfg.ApplyEnv()
	// Allow --config to override file path before loading it
	for i := 1; i < len(os.Args); i++ {
		a := os.Args[i]
		if a == "--config" && i+1 < len(os.Args) {
			cfg.ConfigFile = os.Args[i+1]
			break
		}
		if strings.HasPrefix(a, "--config=") {
			cfg.ConfigFile = strings.TrimPrefix(a, "--config=")
			break
		}
	}
	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logx.Log.Fatal().Err(err).Str("path", cfg.ConfigFile).Msg("load config")
		}
	}
	cfg.ApplyEnv()
	cfg.BindFlagsFromCurrent()
	flag.Parse()
	if *showVersion {
		fmt.Printf("dispatchd version=%s sha=%s date=%s\n", version, buildSHA, buildDate)
		return
	}

	logx.Configure(cfg.LogLevel)
	metrics.SetBuildInfo(version, buildSHA, buildDate)

	operators := directory.NewOperators()
	sources := directory.NewSources(operators)
	records := store.New()

	var loads dispatch.LoadAccessor = operators
	if cfg.RedisAddr != "" {
		rl, err := directory.NewRedisLoads(cfg.RedisAddr, operators)
		if err != nil {
			logx.Log.Fatal().Err(err).Msg("connect redis")
		}
		loads = rl
		logx.Log.Info().Str("addr", cfg.RedisAddr).Msg("using redis load counters")
	}

	selector := dispatch.NewSelector(rand.New(rand.NewSource(time.Now().UnixNano())))
	coord := dispatch.NewCoordinator(sources, operators, loads, selector)
	coord.MaxRetries = cfg.MaxRetries

	impl := &api.API{
		Operators: operators,
		Sources:   sources,
		Store:     records,
		Coord:     coord,
		Loads:     loads,
	}
	handler := server.New(cfg, impl)
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: handler}
	var metricsSrv *http.Server
	if cfg.MetricsAddr != fmt.Sprintf(":%d", cfg.Port) {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logx.Log.Warn().Msg("termination requested")
		cancel()
	}()
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			logx.Log.Error().Err(err).Msg("server shutdown")
		}
	}()
	if metricsSrv != nil {
		go func() {
			<-ctx.Done()
			if err := metricsSrv.Shutdown(context.Background()); err != nil {
				logx.Log.Error().Err(err).Msg("metrics server shutdown")
			}
		}()
		go func() {
			logx.Log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server starting")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logx.Log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	if cfg.APIKey != "" {
		logx.Log.Info().Msg("API key auth enabled")
	}
	logx.Log.Info().Int("port", cfg.Port).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logx.Log.Fatal().Err(err).Msg("server error")
	}
}
