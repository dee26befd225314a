package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the global zerolog logger: human-readable console
// output on stderr, debug level when verbose, and an optional rotating
// log file for long-running service installs.
func Setup(verbose bool, logFile string) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	var w io.Writer = console
	if logFile != "" {
		w = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
