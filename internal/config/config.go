package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Defaults chosen for battery cameras: ten minutes between frames, ten
// seconds for a camera to wake, shoot, and upload.
const (
	DefaultInterval = 600 // seconds
	DefaultSettle   = 10  // seconds
)

// Config is the effective configuration after defaults, config file,
// environment, and flags have been merged. Immutable after Load.
type Config struct {
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	Cameras     []string `mapstructure:"cameras"` // empty means all cameras
	Interval    int      `mapstructure:"interval"`
	FramesDir   string   `mapstructure:"frames_dir"`
	Credentials string   `mapstructure:"credentials"`
	Settle      int      `mapstructure:"settle"`

	MetricsAddr string `mapstructure:"metrics_addr"`
	LogFile     string `mapstructure:"log_file"`

	DaylightOnly bool    `mapstructure:"daylight_only"`
	Latitude     float64 `mapstructure:"latitude"`
	Longitude    float64 `mapstructure:"longitude"`
}

// InitConfig wires the configuration sources: a local .env file, an
// optional YAML config file (--config, else ~/.blink-lapse.yaml), and
// BLINK_-prefixed environment variables.
func InitConfig(cfgFile string) {
	// Same convenience the original tool offered: secrets in a local
	// .env instead of the shell profile. Existing variables win.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".blink-lapse")
	}

	viper.SetEnvPrefix("BLINK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("loaded config file")
	}
}

// Every key gets a default so Unmarshal sees env-only values too.
func setDefaults() {
	viper.SetDefault("username", "")
	viper.SetDefault("password", "")
	viper.SetDefault("cameras", []string{})
	viper.SetDefault("interval", DefaultInterval)
	viper.SetDefault("frames_dir", "frames")
	viper.SetDefault("credentials", ".credentials.json")
	viper.SetDefault("settle", DefaultSettle)
	viper.SetDefault("metrics_addr", "")
	viper.SetDefault("log_file", "")
	viper.SetDefault("daylight_only", false)
	viper.SetDefault("latitude", 0.0)
	viper.SetDefault("longitude", 0.0)
}

// Load unmarshals and validates the effective configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.Cameras = NormalizeCameras(cfg.Cameras)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the capture loop cannot run with.
// Callers treat a failure as fatal before any capture is attempted.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %d", c.Interval)
	}
	if c.FramesDir == "" {
		return errors.New("frames_dir must not be empty")
	}
	if c.Credentials == "" {
		return errors.New("credentials path must not be empty")
	}
	if c.Settle < 0 {
		return fmt.Errorf("settle must not be negative, got %d", c.Settle)
	}
	if c.DaylightOnly && c.Latitude == 0 && c.Longitude == 0 {
		return errors.New("daylight_only requires latitude and longitude")
	}
	return nil
}

func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func (c *Config) SettleDuration() time.Duration {
	return time.Duration(c.Settle) * time.Second
}

// NormalizeCameras splits comma-separated entries, trims whitespace, and
// drops duplicates while keeping first-seen order. Camera names are
// matched case-sensitively, so no case folding happens here.
func NormalizeCameras(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, entry := range raw {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
