// Package logging sets up the process-wide zerolog logger: console plus a
// session log file, with an optional GELF stream to Graylog.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// LogFilePath returns the session log file path inside logsDir.
func LogFilePath(logsDir string, sessionStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("sentinel_%s.log", sessionStart.Format("20060102_150405")))
}

// Setup configures the global log level and builds the root logger. The
// returned closer flushes the session log file; callers defer it.
func Setup(sessionStart time.Time) (zerolog.Logger, func(), error) {
	var logLevelActual zerolog.Level
	switch strings.ToUpper(viper.GetString("logLevel")) {
	case "TRACE":
		logLevelActual = zerolog.TraceLevel
	case "DEBUG":
		logLevelActual = zerolog.DebugLevel
	case "INFO":
		logLevelActual = zerolog.InfoLevel
	case "WARN":
		logLevelActual = zerolog.WarnLevel
	case "ERROR":
		logLevelActual = zerolog.ErrorLevel
	default:
		logLevelActual = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevelActual)
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("creating logs dir: %w", err)
	}

	logFile, err := os.OpenFile(
		LogFilePath(logsDir, sessionStart),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0644,
	)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("opening log file: %w", err)
	}

	writers := []io.Writer{
		// console format with colors to console
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
		// console format without colors to file
		zerolog.ConsoleWriter{
			Out:        logFile,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		},
	}

	if viper.GetBool("graylog.enabled") {
		gw, err := gelf.NewWriter(viper.GetString("graylog.address"))
		if err != nil {
			// Graylog being down must not stop the process from logging locally.
			fmt.Fprintf(os.Stderr, "failed to connect GELF writer: %v\n", err)
		} else {
			writers = append(writers, gw)
		}
	}

	mlw := zerolog.MultiLevelWriter(writers...)

	logger := zerolog.New(mlw).With().Timestamp().Logger()
	logger.Info().Str("loglevel", logger.GetLevel().String()).Msg("Logging set up")

	closer := func() {
		logFile.Close()
	}
	return logger, closer, nil
}
