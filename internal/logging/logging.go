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

	"tradegate/internal/config"
	"tradegate/internal/models"
)

// NewLogger creates a new logger with the specified configuration.
func NewLogger(cfg config.LogConfig) zerolog.Logger {
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
	if cfg.File && cfg.FilePath != "" {
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

// ContextKey is the type for context keys.
type ContextKey string

const (
	// LoggerKey is the context key for the logger.
	LoggerKey ContextKey = "logger"
	// RequestIDKey is the context key for request ID.
	RequestIDKey ContextKey = "request_id"
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

// WithUser adds a user ID to the logger context.
func WithUser(logger zerolog.Logger, userID string) zerolog.Logger {
	return logger.With().Str("user_id", userID).Logger()
}

// WithSession adds a cooldown session ID to the logger context.
func WithSession(logger zerolog.Logger, sessionID string) zerolog.Logger {
	return logger.With().Str("session_id", sessionID).Logger()
}

// WithApproval adds an approval ID to the logger context.
func WithApproval(logger zerolog.Logger, approvalID string) zerolog.Logger {
	return logger.With().Str("approval_id", approvalID).Logger()
}

// LogTrigger logs a fired behavioral trigger.
func LogTrigger(logger zerolog.Logger, userID string, trigger models.Trigger) {
	logger.Warn().
		Str("event", "trigger").
		Str("user_id", userID).
		Str("kind", string(trigger.Kind)).
		Str("severity", string(trigger.Severity)).
		Str("detail", trigger.Detail).
		Msg("Behavioral trigger fired")
}

// LogSessionEvent logs a cooldown session lifecycle event.
func LogSessionEvent(logger zerolog.Logger, session *models.CooldownSession, event string) {
	logger.Info().
		Str("event", "cooldown").
		Str("session_id", session.ID).
		Str("user_id", session.UserID).
		Str("trigger_kind", string(session.TriggerReason.Kind)).
		Str("transition", event).
		Msg("Cooldown session update")
}

// LogApprovalEvent logs a trade approval lifecycle event.
func LogApprovalEvent(logger zerolog.Logger, approval *models.TradeApproval, event string) {
	logger.Info().
		Str("event", "approval").
		Str("approval_id", approval.ID).
		Str("user_id", approval.UserID).
		Str("symbol", approval.Symbol).
		Str("status", string(approval.Status)).
		Str("transition", event).
		Msg("Trade approval update")
}

// LogScoreChange logs a discipline score adjustment.
func LogScoreChange(logger zerolog.Logger, userID string, delta, score float64, reason models.ScoreReason) {
	logger.Info().
		Str("event", "score").
		Str("user_id", userID).
		Float64("delta", delta).
		Float64("score", score).
		Str("reason", string(reason)).
		Msg("Discipline score adjusted")
}
