package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/pullback/engine"
	"github.com/dnldd/pullback/service"
	"github.com/dnldd/pullback/shared"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is the configuration struct for the service.
type Config struct {
	// Markets represents the tracked markets.
	Markets []string
	// Source is the market data source, either fmp or binance.
	Source string
	// FMPAPIkey is the FMP service API Key.
	FMPAPIKey string
	// BinanceAPIKey is the binance api key.
	BinanceAPIKey string
	// BinanceSecretKey is the binance secret key.
	BinanceSecretKey string
	// Primary is the timeframe evaluated for signals.
	Primary string
	// Higher is the timeframe used for confirmation.
	Higher string
	// PollInterval is the interval between market data fetches.
	PollInterval time.Duration
	// Backtest is the backtesting flag.
	Backtest bool
	// BacktestDataFilepath is the filepath to the backtest data.
	BacktestDataFilepath string
	// LogLevel is the application log level.
	LogLevel string

	// SwingLookback is the number of candles on each side of a swing extremum.
	SwingLookback int
	// MaxPullbackLength is the maximum number of candles between a swing and its breakout.
	MaxPullbackLength int
	// MinADX is the minimum trend strength required for breakouts.
	MinADX float64
	// WickATRMultiplier is the wick veto threshold as a multiple of the atr.
	WickATRMultiplier float64
	// DivergenceLookback is the number of candles scanned for rsi divergence.
	DivergenceLookback int
	// Confirmations is the number of consecutive qualifying evaluations required per signal.
	Confirmations int

	registeredFlags map[string]bool
}

// defaultConfig returns the config populated with default values.
func defaultConfig() Config {
	pipeline := engine.DefaultConfig()

	return Config{
		Source:             service.SourceFMP,
		Primary:            shared.FiveMinute.String(),
		Higher:             shared.OneHour.String(),
		PollInterval:       time.Minute,
		LogLevel:           zerolog.InfoLevel.String(),
		SwingLookback:      pipeline.SwingLookback,
		MaxPullbackLength:  pipeline.Pullback.MaxPullbackLength,
		MinADX:             pipeline.Breakout.MinADX,
		WickATRMultiplier:  pipeline.Pullback.WickATRMultiplier,
		DivergenceLookback: pipeline.Divergence.Lookback,
		Confirmations:      pipeline.Confirmations,
	}
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	switch cfg.Backtest {
	case true:
		if cfg.BacktestDataFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest data filepath cannot be an empty string"))
		}
	case false:
		if len(cfg.Markets) == 0 {
			errs = errors.Join(errs, fmt.Errorf("no markets provided for pullback service"))
		}
		switch cfg.Source {
		case service.SourceFMP:
			if cfg.FMPAPIKey == "" {
				errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
			}
		case service.SourceBinance:
		default:
			errs = errors.Join(errs, fmt.Errorf("unknown market data source: %q", cfg.Source))
		}
		if cfg.PollInterval <= 0 {
			errs = errors.Join(errs, fmt.Errorf("poll interval must be positive"))
		}
	}

	_, err := shared.ParseTimeframe(cfg.Primary)
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("primary timeframe: %w", err))
	}
	_, err = shared.ParseTimeframe(cfg.Higher)
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("higher timeframe: %w", err))
	}
	_, err = zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("log level: %w", err))
	}

	_, err = cfg.pipelineConfig()
	if err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}

// pipelineConfig returns the signal pipeline configuration with the configured tunables.
func (cfg *Config) pipelineConfig() (engine.Config, error) {
	pipeline := engine.DefaultConfig()
	pipeline.SwingLookback = cfg.SwingLookback
	pipeline.Pullback.MaxPullbackLength = cfg.MaxPullbackLength
	pipeline.Pullback.WickATRMultiplier = cfg.WickATRMultiplier
	pipeline.Breakout.MinADX = cfg.MinADX
	pipeline.Divergence.Lookback = cfg.DivergenceLookback
	pipeline.Confirmations = cfg.Confirmations

	err := pipeline.Validate()
	if err != nil {
		return engine.Config{}, fmt.Errorf("pipeline: %w", err)
	}

	return pipeline, nil
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
// Environment variables override the current value as the flag default.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	envValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch v := value.(type) {
	case *string:
		def := *v
		if envValue != "" {
			def = envValue
		}
		flag.StringVar(v, name, def, usage)
	case *bool:
		def := *v
		if envValue != "" {
			parsed, err := strconv.ParseBool(envValue)
			if err != nil {
				return fmt.Errorf("%s: parsing bool: %w", name, err)
			}
			def = parsed
		}
		flag.BoolVar(v, name, def, usage)
	case *int:
		def := *v
		if envValue != "" {
			parsed, err := strconv.Atoi(envValue)
			if err != nil {
				return fmt.Errorf("%s: parsing int: %w", name, err)
			}
			def = parsed
		}
		flag.IntVar(v, name, def, usage)
	case *float64:
		def := *v
		if envValue != "" {
			parsed, err := strconv.ParseFloat(envValue, 64)
			if err != nil {
				return fmt.Errorf("%s: parsing float: %w", name, err)
			}
			def = parsed
		}
		flag.Float64Var(v, name, def, usage)
	case *time.Duration:
		def := *v
		if envValue != "" {
			parsed, err := time.ParseDuration(envValue)
			if err != nil {
				return fmt.Errorf("%s: parsing duration: %w", name, err)
			}
			def = parsed
		}
		flag.DurationVar(v, name, def, usage)
	case *[]string:
		if envValue != "" {
			*v = strings.Split(envValue, ",")
		}
		flag.Func(name, usage, func(s string) error {
			*v = strings.Split(s, ",")
			return nil
		})
	default:
		return fmt.Errorf("%s: unsupported type %s", name, val.Elem().Type())
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"markets", &cfg.Markets, "the tracked markets"},
		{"source", &cfg.Source, "the market data source (fmp|binance)"},
		{"fmpapikey", &cfg.FMPAPIKey, "the FMP api key"},
		{"binanceapikey", &cfg.BinanceAPIKey, "the binance api key"},
		{"binancesecretkey", &cfg.BinanceSecretKey, "the binance secret key"},
		{"primary", &cfg.Primary, "the primary timeframe"},
		{"higher", &cfg.Higher, "the higher confirmation timeframe"},
		{"pollinterval", &cfg.PollInterval, "the market data poll interval"},
		{"backtest", &cfg.Backtest, "the backtest flag"},
		{"backtestdatafilepath", &cfg.BacktestDataFilepath, "the backtest data filepath"},
		{"loglevel", &cfg.LogLevel, "the log level"},
		{"swinglookback", &cfg.SwingLookback, "the swing extremum lookback"},
		{"maxpullbacklength", &cfg.MaxPullbackLength, "the maximum pullback length in candles"},
		{"minadx", &cfg.MinADX, "the minimum breakout adx"},
		{"wickatrmultiplier", &cfg.WickATRMultiplier, "the wick veto atr multiplier"},
		{"divergencelookback", &cfg.DivergenceLookback, "the rsi divergence lookback"},
		{"confirmations", &cfg.Confirmations, "the required signal confirmations"},
	}

	// Register command line arguments using loaded environment variables as defaults.
	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
