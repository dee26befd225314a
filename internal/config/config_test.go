package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func validConfig() *Config {
	return &Config{
		Interval:    600,
		FramesDir:   "frames",
		Credentials: ".credentials.json",
		Settle:      10,
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults pass", func(c *Config) {}, false},
		{"zero interval", func(c *Config) { c.Interval = 0 }, true},
		{"negative interval", func(c *Config) { c.Interval = -60 }, true},
		{"empty frames dir", func(c *Config) { c.FramesDir = "" }, true},
		{"empty credentials path", func(c *Config) { c.Credentials = "" }, true},
		{"negative settle", func(c *Config) { c.Settle = -1 }, true},
		{"zero settle ok", func(c *Config) { c.Settle = 0 }, false},
		{"daylight without coordinates", func(c *Config) { c.DaylightOnly = true }, true},
		{"daylight with coordinates", func(c *Config) {
			c.DaylightOnly = true
			c.Latitude = 51.5074
			c.Longitude = -0.1278
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("got err %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestNormalizeCameras(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"single", []string{"Front Door"}, []string{"Front Door"}},
		{"comma separated entry", []string{"Front Door,Backyard"}, []string{"Front Door", "Backyard"}},
		{"whitespace trimmed", []string{" Front Door , Backyard "}, []string{"Front Door", "Backyard"}},
		{"duplicates dropped in order", []string{"Backyard", "Front Door", "Backyard"}, []string{"Backyard", "Front Door"}},
		{"case stays significant", []string{"front door", "Front Door"}, []string{"front door", "Front Door"}},
		{"empty pieces dropped", []string{",,Front Door,"}, []string{"Front Door"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeCameras(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := &Config{Interval: 600, Settle: 10}
	if got := cfg.IntervalDuration(); got != 10*time.Minute {
		t.Errorf("interval: got %v, want 10m", got)
	}
	if got := cfg.SettleDuration(); got != 10*time.Second {
		t.Errorf("settle: got %v, want 10s", got)
	}
}

func TestLoadMergesEnvOverFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "blink-lapse.yaml")
	file := `username: file-user
interval: 300
frames_dir: file-frames
settle: 7
`
	if err := os.WriteFile(cfgPath, []byte(file), 0644); err != nil {
		t.Fatal(err)
	}

	// Environment values, including keys the file never mentions. Every
	// field type is represented: string, int, bool, float, slice.
	t.Setenv("BLINK_INTERVAL", "120")
	t.Setenv("BLINK_PASSWORD", "hunter2")
	t.Setenv("BLINK_CAMERAS", "Front Door, Backyard")
	t.Setenv("BLINK_METRICS_ADDR", ":9100")
	t.Setenv("BLINK_LOG_FILE", "capture.log")
	t.Setenv("BLINK_DAYLIGHT_ONLY", "true")
	t.Setenv("BLINK_LATITUDE", "51.5074")
	t.Setenv("BLINK_LONGITUDE", "-0.1278")

	viper.Reset()
	t.Cleanup(viper.Reset)
	InitConfig(cfgPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// File values hold where no environment variable competes.
	if cfg.Username != "file-user" {
		t.Errorf("username: got %q, want file-user", cfg.Username)
	}
	if cfg.FramesDir != "file-frames" {
		t.Errorf("frames dir: got %q, want file-frames", cfg.FramesDir)
	}
	if cfg.Settle != 7 {
		t.Errorf("settle: got %d, want 7", cfg.Settle)
	}

	// Environment beats the file.
	if cfg.Interval != 120 {
		t.Errorf("interval: got %d, want 120", cfg.Interval)
	}

	// Environment-only keys still decode; they only surface through
	// Unmarshal because every key carries a default.
	if cfg.Password != "hunter2" {
		t.Errorf("password: got %q, want hunter2", cfg.Password)
	}
	if want := []string{"Front Door", "Backyard"}; !reflect.DeepEqual(cfg.Cameras, want) {
		t.Errorf("cameras: got %v, want %v", cfg.Cameras, want)
	}
	if cfg.MetricsAddr != ":9100" {
		t.Errorf("metrics addr: got %q, want :9100", cfg.MetricsAddr)
	}
	if cfg.LogFile != "capture.log" {
		t.Errorf("log file: got %q, want capture.log", cfg.LogFile)
	}
	if !cfg.DaylightOnly {
		t.Error("daylight only: got false, want true")
	}
	if cfg.Latitude != 51.5074 || cfg.Longitude != -0.1278 {
		t.Errorf("coordinates: got %v/%v", cfg.Latitude, cfg.Longitude)
	}

	// Untouched keys keep their defaults.
	if cfg.Credentials != ".credentials.json" {
		t.Errorf("credentials: got %q, want default", cfg.Credentials)
	}
}
