package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cweiture/blink-lapse/internal/auth"
	"github.com/cweiture/blink-lapse/internal/capture"
	"github.com/cweiture/blink-lapse/internal/config"
)

// Variables to hold flag values
var (
	captureOnce   bool
	serviceAction string // "install", "uninstall", "start", "stop"
)

// --- SERVICE WRAPPER ---

// program implements the kardianos/service interface around the loop.
type program struct {
	runner *capture.Runner
	server *http.Server
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	// Start must not block. Do the actual work async.
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx)
	return nil
}

func (p *program) run(ctx context.Context) {
	defer close(p.done)

	if p.server != nil {
		go func() {
			log.Info().Str("addr", p.server.Addr).Msg("metrics listening")
			if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	if err := p.runner.Run(ctx); err != nil {
		// Exit nonzero so the service manager attempts a restart.
		log.Error().Err(err).Msg("capture loop failed")
		os.Exit(1)
	}
}

func (p *program) Stop(s service.Service) error {
	// Stop must not block for long. Shut the server, cancel the loop,
	// and wait for the in-flight tick to let go.
	if p.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.server.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("metrics server forced to shut down")
		}
	}
	p.cancel()
	<-p.done
	return nil
}

// --- COLLECTOR ---

// captureCollector exposes the loop counters. Scrapes read the stats
// snapshot only, they never touch the cloud.
type captureCollector struct {
	runner *capture.Runner
}

var (
	upDesc = prometheus.NewDesc(
		"blinklapse_up", "Whether the capture loop is running.", nil, nil,
	)
	ticksDesc = prometheus.NewDesc(
		"blinklapse_ticks_total", "Capture ticks since start.", nil, nil,
	)
	framesDesc = prometheus.NewDesc(
		"blinklapse_frames_total", "Frames written, per camera.", []string{"camera"}, nil,
	)
	failuresDesc = prometheus.NewDesc(
		"blinklapse_capture_failures_total", "Failed captures, per camera.", []string{"camera"}, nil,
	)
	lastFrameDesc = prometheus.NewDesc(
		"blinklapse_last_frame_timestamp_seconds", "Unix time of the newest frame, per camera.", []string{"camera"}, nil,
	)
	authRetriesDesc = prometheus.NewDesc(
		"blinklapse_auth_retries_total", "Logins retried after a rejected authentication.", nil, nil,
	)
)

func (c *captureCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- ticksDesc
	ch <- framesDesc
	ch <- failuresDesc
	ch <- lastFrameDesc
	ch <- authRetriesDesc
}

func (c *captureCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.runner.Stats()

	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(ticksDesc, prometheus.CounterValue, float64(st.Ticks))
	ch <- prometheus.MustNewConstMetric(authRetriesDesc, prometheus.CounterValue, float64(st.AuthRetries))

	for camera, n := range st.Frames {
		ch <- prometheus.MustNewConstMetric(framesDesc, prometheus.CounterValue, float64(n), camera)
	}
	for camera, n := range st.Failures {
		ch <- prometheus.MustNewConstMetric(failuresDesc, prometheus.CounterValue, float64(n), camera)
	}
	for camera, ts := range st.LastFrame {
		ch <- prometheus.MustNewConstMetric(lastFrameDesc, prometheus.GaugeValue, float64(ts.Unix()), camera)
	}
}

func metricsServer(addr string, runner *capture.Runner) *http.Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(&captureCollector{runner: runner})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &http.Server{Addr: addr, Handler: mux}
}

// --- COMMAND ---

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run the timelapse capture loop",
	Long: `Logs in (reusing the cached token when possible), then captures one
frame per camera every interval, writing
<frames-dir>/<camera>/<YYYYMMDD_HHMMSS>.jpg. Can be installed as a
system service.`,
	Example: `  blink-lapse capture --once
  blink-lapse capture --interval 300 --cameras "Front Door,Garden"
  blink-lapse capture --service install --frames-dir /var/lib/blink-lapse`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		if captureOnce && (serviceAction != "" || !service.Interactive()) {
			return errors.New("--once cannot be combined with service mode")
		}

		cn := newConnector(cfg)
		dialer := capture.DialFunc(func(ctx context.Context) (capture.Session, error) {
			return cn.Dial(ctx)
		})

		opts := capture.Options{
			Cameras:  cfg.Cameras,
			Interval: cfg.IntervalDuration(),
			Once:     captureOnce,
			Writer:   &capture.Writer{Root: cfg.FramesDir},
		}
		if cfg.DaylightOnly {
			opts.Daylight = &capture.DaylightGate{Latitude: cfg.Latitude, Longitude: cfg.Longitude}
		}

		runner := capture.NewRunner(dialer, opts)

		var server *http.Server
		if cfg.MetricsAddr != "" && !captureOnce {
			server = metricsServer(cfg.MetricsAddr, runner)
		}

		if serviceAction != "" || !service.Interactive() {
			return runAsService(cfg, runner, server)
		}

		if server != nil {
			go func() {
				log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("metrics server error")
				}
			}()
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(sctx)
			}()
		}

		log.Info().
			Int("interval", cfg.Interval).
			Str("frames_dir", cfg.FramesDir).
			Strs("cameras", cfg.Cameras).
			Bool("once", captureOnce).
			Msg("starting capture")

		return runner.Run(cmd.Context())
	},
}

// runAsService handles both sides of service mode: control actions from
// an interactive shell, and the actual run under the service manager.
func runAsService(cfg *config.Config, runner *capture.Runner, server *http.Server) error {
	svcConfig := &service.Config{
		Name:        "blink-lapse",
		DisplayName: "Blink Lapse Capturer",
		Description: "Captures timelapse frames from Blink cameras on a fixed interval",
		// Arguments passed to the binary when run as a service
		Arguments: serviceArguments(cfg),
	}

	prg := &program{runner: runner, server: server}

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return err
	}

	if serviceAction != "" {
		if serviceAction == "install" {
			// The service cannot prompt, so a cached token or configured
			// credentials must already exist.
			if auth.NewStore(cfg.Credentials).Load() == nil && (cfg.Username == "" || cfg.Password == "") {
				return errors.New("no cached token and no configured credentials; run 'blink-lapse login' first")
			}
		}

		if err := service.Control(s, serviceAction); err != nil {
			return fmt.Errorf("failed to %s service: %w", serviceAction, err)
		}
		fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
		return nil
	}

	logger, err := s.Logger(nil)
	if err != nil {
		return err
	}
	if err := s.Run(); err != nil {
		logger.Error(err)
	}
	return nil
}

// serviceArguments replays the effective configuration as explicit flags
// so the installed service does not depend on this shell's environment.
// Path flags are pinned to absolute form: the service manager starts the
// daemon from its own working directory, not the install shell's.
func serviceArguments(cfg *config.Config) []string {
	args := []string{
		"capture",
		"--interval", strconv.Itoa(cfg.Interval),
		"--frames-dir", absPath(cfg.FramesDir),
		"--credentials", absPath(cfg.Credentials),
		"--settle", strconv.Itoa(cfg.Settle),
	}
	if len(cfg.Cameras) > 0 {
		args = append(args, "--cameras", strings.Join(cfg.Cameras, ","))
	}
	if cfg.MetricsAddr != "" {
		args = append(args, "--metrics-addr", cfg.MetricsAddr)
	}
	if cfg.LogFile != "" {
		args = append(args, "--log-file", absPath(cfg.LogFile))
	}
	if cfg.DaylightOnly {
		args = append(args,
			"--daylight-only",
			"--latitude", strconv.FormatFloat(cfg.Latitude, 'f', -1, 64),
			"--longitude", strconv.FormatFloat(cfg.Longitude, 'f', -1, 64),
		)
	}
	if cfgFile != "" {
		args = append(args, "--config", absPath(cfgFile))
	}
	if verbose {
		args = append(args, "--verbose")
	}
	return args
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().BoolVar(&captureOnce, "once", false, "Capture one round of frames and exit")
	captureCmd.Flags().Int("interval", config.DefaultInterval, "Seconds between capture ticks")
	captureCmd.Flags().StringSlice("cameras", nil, "Camera names to capture (default: all)")
	captureCmd.Flags().String("frames-dir", "frames", "Directory frames are written under")
	captureCmd.Flags().String("credentials", ".credentials.json", "Path of the credential cache")
	captureCmd.Flags().Int("settle", config.DefaultSettle, "Seconds a camera gets to wake, shoot, and upload")
	captureCmd.Flags().String("metrics-addr", "", "Listen address for Prometheus metrics, e.g. :9100")
	captureCmd.Flags().String("log-file", "", "Rotating log file path")
	captureCmd.Flags().Bool("daylight-only", false, "Skip ticks outside the local daylight window")
	captureCmd.Flags().Float64("latitude", 0, "Latitude for the daylight window")
	captureCmd.Flags().Float64("longitude", 0, "Longitude for the daylight window")

	// New Flag for Service Control
	captureCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")

	// Flags override environment and config file values.
	_ = viper.BindPFlag("interval", captureCmd.Flags().Lookup("interval"))
	_ = viper.BindPFlag("cameras", captureCmd.Flags().Lookup("cameras"))
	_ = viper.BindPFlag("frames_dir", captureCmd.Flags().Lookup("frames-dir"))
	_ = viper.BindPFlag("credentials", captureCmd.Flags().Lookup("credentials"))
	_ = viper.BindPFlag("settle", captureCmd.Flags().Lookup("settle"))
	_ = viper.BindPFlag("metrics_addr", captureCmd.Flags().Lookup("metrics-addr"))
	_ = viper.BindPFlag("log_file", captureCmd.Flags().Lookup("log-file"))
	_ = viper.BindPFlag("daylight_only", captureCmd.Flags().Lookup("daylight-only"))
	_ = viper.BindPFlag("latitude", captureCmd.Flags().Lookup("latitude"))
	_ = viper.BindPFlag("longitude", captureCmd.Flags().Lookup("longitude"))
}
