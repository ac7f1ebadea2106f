package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config stores runtime configuration.
type Config struct {
	Gemini  GeminiConfig  `yaml:"gemini"`
	Audio   AudioConfig   `yaml:"audio"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type GeminiConfig struct {
	APIKey      string `yaml:"api_key"`
	LiveModel   string `yaml:"live_model"`
	ReportModel string `yaml:"report_model"`
	Voice       string `yaml:"voice"`
}

type AudioConfig struct {
	FFMPEGCommand string `yaml:"ffmpeg_command"`
	InputFormat   string `yaml:"input_format"`
	InputDevice   string `yaml:"input_device"`
	OutputFormat  string `yaml:"output_format"`
	OutputDevice  string `yaml:"output_device"`
}

type SessionConfig struct {
	BlockSize     int `yaml:"block_size"`
	PendingFrames int `yaml:"pending_frames"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Gemini: GeminiConfig{
			LiveModel:   "gemini-2.5-flash-native-audio-preview-09-2025",
			ReportModel: "gemini-3-flash-preview",
			Voice:       "Zephyr",
		},
		Audio: AudioConfig{
			FFMPEGCommand: "ffmpeg",
			InputFormat:   "pulse",
			InputDevice:   "default",
			OutputFormat:  "pulse",
			OutputDevice:  "default",
		},
		Session: SessionConfig{
			BlockSize:     4096,
			PendingFrames: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load resolves configuration from defaults, an optional YAML file named by
// HOTSEAT_CONFIG, a .env file and the environment, in increasing priority.
func Load() (Config, error) {
	if err := loadDotEnv(firstNonEmpty(os.Getenv("HOTSEAT_ENV_FILE"), ".env")); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("HOTSEAT_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Gemini.APIKey = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), cfg.Gemini.APIKey)
	cfg.Gemini.LiveModel = envOrDefault("HOTSEAT_LIVE_MODEL", cfg.Gemini.LiveModel)
	cfg.Gemini.ReportModel = envOrDefault("HOTSEAT_REPORT_MODEL", cfg.Gemini.ReportModel)
	cfg.Gemini.Voice = envOrDefault("HOTSEAT_VOICE", cfg.Gemini.Voice)

	cfg.Audio.FFMPEGCommand = envOrDefault("HOTSEAT_FFMPEG_COMMAND", cfg.Audio.FFMPEGCommand)
	cfg.Audio.InputFormat = envOrDefault("HOTSEAT_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = envOrDefault("HOTSEAT_AUDIO_INPUT_DEVICE", cfg.Audio.InputDevice)
	cfg.Audio.OutputFormat = envOrDefault("HOTSEAT_AUDIO_OUTPUT_FORMAT", cfg.Audio.OutputFormat)
	cfg.Audio.OutputDevice = envOrDefault("HOTSEAT_AUDIO_OUTPUT_DEVICE", cfg.Audio.OutputDevice)

	cfg.Session.BlockSize = envOrDefaultInt("HOTSEAT_BLOCK_SIZE", cfg.Session.BlockSize)
	cfg.Session.PendingFrames = envOrDefaultInt("HOTSEAT_PENDING_FRAMES", cfg.Session.PendingFrames)

	cfg.Logging.Level = envOrDefault("HOTSEAT_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = envOrDefault("HOTSEAT_LOG_FORMAT", cfg.Logging.Format)

	cfg.Metrics.Addr = envOrDefault("HOTSEAT_METRICS_ADDR", cfg.Metrics.Addr)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Gemini.Validate(); err != nil {
		return fmt.Errorf("gemini config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func (g GeminiConfig) Validate() error {
	if strings.TrimSpace(g.LiveModel) == "" {
		return errors.New("live_model cannot be empty")
	}
	if strings.TrimSpace(g.ReportModel) == "" {
		return errors.New("report_model cannot be empty")
	}
	if strings.TrimSpace(g.Voice) == "" {
		return errors.New("voice cannot be empty")
	}
	return nil
}

func (a AudioConfig) Validate() error {
	if strings.TrimSpace(a.FFMPEGCommand) == "" {
		return errors.New("ffmpeg_command cannot be empty")
	}
	return nil
}

func (s SessionConfig) Validate() error {
	if s.BlockSize < 256 {
		return fmt.Errorf("block_size must be at least 256 samples, got %d", s.BlockSize)
	}
	if s.PendingFrames < 1 {
		return fmt.Errorf("pending_frames must be at least 1, got %d", s.PendingFrames)
	}
	return nil
}

func (l LoggingConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", l.Format)
	}
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
