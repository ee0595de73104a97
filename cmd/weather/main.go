package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/duluk/clima/pkg/config"
	"github.com/duluk/clima/pkg/server"
	"github.com/duluk/clima/pkg/telemetry"
	"github.com/duluk/clima/pkg/weather"
	"github.com/duluk/clima/pkg/weather/openmeteo"
	"github.com/duluk/clima/pkg/weather/openweather"
)

func usage() {
	fmt.Println("Usage: weather <ciudad> [-test] [-debug] [-provider=<name>]")
	fmt.Println("       weather -serve[=<addr>] [-debug] [-provider=<name>]")
	fmt.Println("Examples: weather Madrid")
	fmt.Println("          weather \"Buenos Aires\" -provider=openmeteo")
	fmt.Println("          weather -serve=:8080")
}

type options struct {
	location    string
	useTestData bool
	debugMode   bool
	provider    string
	serve       bool
	addr        string
}

func parseArgs(args []string) options {
	var opts options
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "-provider="):
			opts.provider = strings.TrimPrefix(arg, "-provider=")
		case strings.HasPrefix(arg, "-serve="):
			opts.serve = true
			opts.addr = strings.TrimPrefix(arg, "-serve=")
		case arg == "-serve":
			opts.serve = true
		case arg == "-test":
			opts.useTestData = true
		case arg == "-debug":
			opts.debugMode = true
		case opts.location == "":
			opts.location = arg
		}
	}
	return opts
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newProvider(cfg *config.Config, useTestData bool, logger *slog.Logger) weather.Provider {
	if cfg.Provider == config.ProviderOpenMeteo {
		return openmeteo.New(openmeteo.WithLogger(logger))
	}
	return openweather.New(cfg.APIKey,
		openweather.WithBaseURL(cfg.BaseURL),
		openweather.WithTestData(useTestData),
		openweather.WithLogger(logger))
}

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	os.Exit(run(parseArgs(os.Args[1:])))
}

func run(opts options) int {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if opts.provider != "" {
		cfg.Provider = opts.provider
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	cfg.Debug = cfg.Debug || opts.debugMode

	// test data needs no key
	if opts.useTestData && cfg.Provider == config.ProviderOpenWeather && cfg.APIKey == "" {
		cfg.APIKey = "test"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		if errors.Is(err, config.ErrMissingAPIKey) {
			fmt.Println("Please set the Open Weather API key, either via the environment variable, OPENWEATHER_API_KEY, or a file in ~/.config/weather/openweather_api_key")
		}
		return 1
	}

	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	shutdown, err := telemetry.Setup("weather", cfg.ZipkinURL)
	if err != nil {
		logger.Error("tracing disabled", "error", err)
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(ctx)
		}()
	}

	provider := newProvider(cfg, opts.useTestData, logger)
	logger.Debug("using provider", "provider", cfg.Provider)

	if opts.serve {
		return serve(cfg.Addr, server.New(provider, logger), logger)
	}

	res, err := weather.Lookup(context.Background(), provider, opts.location)
	if err != nil {
		displayFailure(os.Stdout, err)
		return 1
	}
	displayCurrentWeather(os.Stdout, res)
	return 0
}

func serve(addr string, srv *server.Server, logger *slog.Logger) int {
	s := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		logger.Info("weather server listening", "addr", addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		logger.Error("listen failed", "error", err)
		return 1
	case <-stop:
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return 1
	}
	return 0
}
