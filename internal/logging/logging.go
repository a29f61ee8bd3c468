// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "treasurer", "logs", "treasurer.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	// Console writer
	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	if len(writers) == 0 {
		writer = os.Stdout
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// SetInfoLevel sets the global log level to info.
func SetInfoLevel() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// ContextKey is the type for context keys.
type ContextKey string

const (
	// LoggerKey is the context key for the logger.
	LoggerKey ContextKey = "logger"
	// TickIDKey is the context key for the tick ID.
	TickIDKey ContextKey = "tick_id"
	// BorrowerKey is the context key for the borrower ID.
	BorrowerKey ContextKey = "borrower"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithBorrower adds a borrower ID to the logger context.
func WithBorrower(logger zerolog.Logger, borrowerID string) zerolog.Logger {
	return logger.With().Str("borrower", borrowerID).Logger()
}

// WithTick adds a tick ID to the logger context.
func WithTick(logger zerolog.Logger, tickID string) zerolog.Logger {
	return logger.With().Str("tick_id", tickID).Logger()
}

// WithComponent adds a pipeline component name to the logger context.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// LogTick logs a completed tick.
func LogTick(logger zerolog.Logger, borrowerID string, status string, healthBps int64, actions int, reason string) {
	logger.Info().
		Str("event", "tick").
		Str("borrower", borrowerID).
		Str("status", status).
		Int64("health_bps", healthBps).
		Int("actions", actions).
		Str("reason", reason).
		Msg("Tick completed")
}

// LogAction logs an executed treasury action.
func LogAction(logger zerolog.Logger, kind string, amount float64, railRef, ledgerRef string) {
	logger.Info().
		Str("event", "action").
		Str("kind", kind).
		Float64("amount", amount).
		Str("rail_ref", railRef).
		Str("ledger_ref", ledgerRef).
		Msg("Action executed")
}

// LogTransfer logs a payment-rail transfer.
func LogTransfer(logger zerolog.Logger, from, to string, amount float64, ref string) {
	logger.Info().
		Str("event", "transfer").
		Str("from", from).
		Str("to", to).
		Float64("amount", amount).
		Str("ref", ref).
		Msg("Transfer completed")
}

// LogRiskEvent logs a risk-mode transition.
func LogRiskEvent(logger zerolog.Logger, borrowerID, rule, reason string, healthBps int64) {
	logger.Warn().
		Str("event", "risk").
		Str("borrower", borrowerID).
		Str("rule", rule).
		Int64("health_bps", healthBps).
		Str("reason", reason).
		Msg("Risk event")
}

// LogOracle logs an oracle price observation.
func LogOracle(logger zerolog.Logger, source string, price float64, stale bool, volatility float64) {
	logger.Debug().
		Str("event", "oracle").
		Str("source", source).
		Float64("price", price).
		Bool("stale", stale).
		Float64("volatility_pct", volatility).
		Msg("Oracle price observed")
}
