package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cweiture/blink-lapse/internal/auth"
	"github.com/cweiture/blink-lapse/internal/blink"
	"github.com/cweiture/blink-lapse/internal/config"
	"github.com/cweiture/blink-lapse/internal/logging"
)

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blink-lapse",
	Short: "Capture timelapse frames from Blink cameras",
	Long: `Periodically pulls still frames from Blink cloud cameras and stores
them with timestamped names, ready for timelapse assembly with ffmpeg.`,
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context so
// long-running commands shut down between frames, never mid-write.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		config.InitConfig(cfgFile)
		logging.Setup(verbose, viper.GetString("log_file"))
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.blink-lapse.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
}

// loadConfig returns the validated configuration or exits. Nothing talks
// to the cloud before this passes.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

// newConnector builds the dialer shared by every command that talks to
// the cloud. Username and password short-circuit the prompt when set.
func newConnector(cfg *config.Config) *blink.Connector {
	return &blink.Connector{
		Email:    cfg.Username,
		Password: cfg.Password,
		Store:    auth.NewStore(cfg.Credentials),
		Prompt:   &auth.Terminal{Email: cfg.Username},
		Settle:   cfg.SettleDuration(),
	}
}
