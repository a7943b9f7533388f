// Package config provides configuration management for the discipline core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"tradegate/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Detector      DetectorConfig     `mapstructure:"detector"`
	Cooldown      CooldownConfig     `mapstructure:"cooldown"`
	Approval      ApprovalConfig     `mapstructure:"approval"`
	Scoring       ScoringConfig      `mapstructure:"scoring"`
	History       HistoryConfig      `mapstructure:"history"`
	Server        ServerConfig       `mapstructure:"server"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Log           LogConfig          `mapstructure:"log"`
}

// DetectorConfig holds the behavioral trigger thresholds. The numbers are
// configuration, not hard law; defaults follow the shipped remediation flow.
type DetectorConfig struct {
	LossStreakMedium     int           `mapstructure:"loss_streak_medium"`
	LossStreakHigh       int           `mapstructure:"loss_streak_high"`
	OvertradingWindow    time.Duration `mapstructure:"overtrading_window"`
	OvertradingMedium    int           `mapstructure:"overtrading_medium"`
	OvertradingHigh      int           `mapstructure:"overtrading_high"`
	RevengeWindow        time.Duration `mapstructure:"revenge_window"`
	PerformanceDipTrades int           `mapstructure:"performance_dip_trades"`
	PerformanceDipLow    float64       `mapstructure:"performance_dip_low"`
}

// CooldownConfig holds cooldown session configuration.
type CooldownConfig struct {
	// Duration is the minimum-wait floor before a session may expire.
	// Expiry never auto-releases a session; exercises or a skip do.
	Duration time.Duration `mapstructure:"duration"`
	// Exercises maps a trigger kind to the required remediation exercises.
	Exercises map[string][]string `mapstructure:"exercises"`
}

// ApprovalConfig holds trade approval configuration.
type ApprovalConfig struct {
	// Window is how long an issued approval stays valid. Kept short so a
	// stale approval cannot be replayed against a different market.
	Window time.Duration `mapstructure:"window"`
}

// ScoringConfig holds the discipline score event deltas.
type ScoringConfig struct {
	CompletedDelta float64 `mapstructure:"completed_delta"`
	SkippedDelta   float64 `mapstructure:"skipped_delta"`
	ExecutedDelta  float64 `mapstructure:"executed_delta"`
	ExpiredDelta   float64 `mapstructure:"expired_delta"`
}

// HistoryConfig holds trade history reader configuration.
type HistoryConfig struct {
	// Window is how far back detection looks for closed trades.
	Window time.Duration `mapstructure:"window"`
	// ReadTimeout bounds journal store I/O; a timeout surfaces as
	// temporarily-unavailable, never as a detection result.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Level   string        `mapstructure:"level"` // all, violations_only, errors_only
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradegate"
	}
	return filepath.Join(home, ".config", "tradegate")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			LossStreakMedium:     2,
			LossStreakHigh:       4,
			OvertradingWindow:    2 * time.Hour,
			OvertradingMedium:    6,
			OvertradingHigh:      10,
			RevengeWindow:        10 * time.Minute,
			PerformanceDipTrades: 3,
			PerformanceDipLow:    -50,
		},
		Cooldown: CooldownConfig{
			Duration:  20 * time.Minute,
			Exercises: DefaultExerciseMapping(),
		},
		Approval: ApprovalConfig{
			Window: 3 * time.Minute,
		},
		Scoring: ScoringConfig{
			CompletedDelta: 2,
			SkippedDelta:   -5,
			ExecutedDelta:  0.5,
			ExpiredDelta:   -1,
		},
		History: HistoryConfig{
			Window:      24 * time.Hour,
			ReadTimeout: 2 * time.Second,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8090,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Notifications: NotificationConfig{
			Enabled: false,
			Level:   "violations_only",
		},
		Log: LogConfig{
			Level:      "info",
			Console:    true,
			File:       true,
			FilePath:   filepath.Join(DefaultConfigDir(), "logs", "tradegate.log"),
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		},
	}
}

// DefaultExerciseMapping returns the fixed trigger-kind to exercise mapping.
func DefaultExerciseMapping() map[string][]string {
	return map[string][]string{
		string(models.TriggerLossStreak):        {string(models.ExerciseBreathing), string(models.ExerciseJournal)},
		string(models.TriggerOvertrading):       {string(models.ExerciseBreathing), string(models.ExerciseRiskVisualization)},
		string(models.TriggerRevengeTrade):      {string(models.ExerciseBreathing), string(models.ExercisePastMistakes), string(models.ExerciseJournal)},
		string(models.TriggerPerformanceDip):    {string(models.ExerciseJournal)},
		string(models.TriggerUnauthorizedTrade): {string(models.ExercisePastMistakes), string(models.ExerciseJournal)},
		string(models.TriggerOutsideHours):      {string(models.ExerciseJournal)},
		string(models.TriggerManual):            {string(models.ExerciseBreathing)},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if terr := createTemplateConfig(configDir); terr != nil {
				return nil, fmt.Errorf("creating config template: %w", terr)
			}
		} else {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("detector.loss_streak_medium", cfg.Detector.LossStreakMedium)
	v.SetDefault("detector.loss_streak_high", cfg.Detector.LossStreakHigh)
	v.SetDefault("detector.overtrading_window", cfg.Detector.OvertradingWindow)
	v.SetDefault("detector.overtrading_medium", cfg.Detector.OvertradingMedium)
	v.SetDefault("detector.overtrading_high", cfg.Detector.OvertradingHigh)
	v.SetDefault("detector.revenge_window", cfg.Detector.RevengeWindow)
	v.SetDefault("detector.performance_dip_trades", cfg.Detector.PerformanceDipTrades)
	v.SetDefault("detector.performance_dip_low", cfg.Detector.PerformanceDipLow)
	v.SetDefault("cooldown.duration", cfg.Cooldown.Duration)
	v.SetDefault("approval.window", cfg.Approval.Window)
	v.SetDefault("scoring.completed_delta", cfg.Scoring.CompletedDelta)
	v.SetDefault("scoring.skipped_delta", cfg.Scoring.SkippedDelta)
	v.SetDefault("scoring.executed_delta", cfg.Scoring.ExecutedDelta)
	v.SetDefault("scoring.expired_delta", cfg.Scoring.ExpiredDelta)
	v.SetDefault("history.window", cfg.History.Window)
	v.SetDefault("history.read_timeout", cfg.History.ReadTimeout)
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", cfg.Server.IdleTimeout)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.console", cfg.Log.Console)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.file_path", cfg.Log.FilePath)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADEGATE_HTTP_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TRADEGATE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TRADEGATE_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Webhook.URL = v
		cfg.Notifications.Webhook.Enabled = true
		cfg.Notifications.Enabled = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Detector.LossStreakMedium < 1 {
		return fmt.Errorf("loss_streak_medium must be at least 1")
	}
	if c.Detector.LossStreakHigh < c.Detector.LossStreakMedium {
		return fmt.Errorf("loss_streak_high must be >= loss_streak_medium")
	}
	if c.Detector.OvertradingHigh < c.Detector.OvertradingMedium {
		return fmt.Errorf("overtrading_high must be >= overtrading_medium")
	}
	if c.Detector.OvertradingWindow <= 0 {
		return fmt.Errorf("overtrading_window must be positive")
	}
	if c.Cooldown.Duration <= 0 {
		return fmt.Errorf("cooldown duration must be positive")
	}
	for kind, exercises := range c.Cooldown.Exercises {
		if len(exercises) == 0 {
			return fmt.Errorf("exercise mapping for %s must not be empty", kind)
		}
	}
	if c.Approval.Window <= 0 {
		return fmt.Errorf("approval window must be positive")
	}
	if c.Scoring.CompletedDelta < 0 {
		return fmt.Errorf("completed_delta must be non-negative")
	}
	if c.Scoring.SkippedDelta > 0 {
		return fmt.Errorf("skipped_delta must be non-positive")
	}
	if c.History.ReadTimeout <= 0 {
		return fmt.Errorf("history read_timeout must be positive")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	return nil
}

// RequiredExercises returns the configured exercises for a trigger kind,
// falling back to the default mapping for unknown kinds. The result is
// never empty.
func (c *CooldownConfig) RequiredExercises(kind models.TriggerKind) []models.ExerciseID {
	names, ok := c.Exercises[string(kind)]
	if !ok || len(names) == 0 {
		names = DefaultExerciseMapping()[string(kind)]
	}
	if len(names) == 0 {
		names = []string{string(models.ExerciseJournal)}
	}
	ids := make([]models.ExerciseID, 0, len(names))
	for _, n := range names {
		ids = append(ids, models.ExerciseID(n))
	}
	return ids
}
