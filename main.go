package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/dnldd/pullback/indicator"
	"github.com/dnldd/pullback/service"
	"github.com/dnldd/pullback/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// serviceConfig creates the pullback service configuration from the provided config.
func serviceConfig(cfg *Config, cancel context.CancelFunc) (*service.PullbackConfig, error) {
	primary, err := shared.ParseTimeframe(cfg.Primary)
	if err != nil {
		return nil, err
	}

	higher, err := shared.ParseTimeframe(cfg.Higher)
	if err != nil {
		return nil, err
	}

	pipeline, err := cfg.pipelineConfig()
	if err != nil {
		return nil, err
	}

	return &service.PullbackConfig{
		Markets:              cfg.Markets,
		Source:               cfg.Source,
		FMPAPIKey:            cfg.FMPAPIKey,
		BinanceAPIKey:        cfg.BinanceAPIKey,
		BinanceSecretKey:     cfg.BinanceSecretKey,
		Primary:              primary,
		Higher:               higher,
		PollInterval:         cfg.PollInterval,
		Periods:              indicator.DefaultPeriods(),
		Pipeline:             pipeline,
		Backtest:             cfg.Backtest,
		BacktestDataFilepath: cfg.BacktestDataFilepath,
		Cancel:               cancel,
	}, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := defaultConfig()
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Error().Err(err).Msg("loading config")
		return
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Error().Err(err).Msg("parsing log level")
		return
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pullbackCfg, err := serviceConfig(&cfg, cancel)
	if err != nil {
		log.Error().Err(err).Msg("creating service config")
		return
	}

	svc, err := service.NewPullback(pullbackCfg)
	if err != nil {
		log.Error().Err(err).Msg("creating pullback service")
		return
	}

	go handleTermination(ctx, cancel)
	svc.Run(ctx)
}
