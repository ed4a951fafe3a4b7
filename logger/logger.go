// Package logger builds the process logger from configuration.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output destinations.
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
	OutputFile   = "file"
	OutputBoth   = "both"
)

// Config controls level, format and destination of log output.
type Config struct {
	Level      string `yaml:"level" json:"level" env:"LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Format     string `yaml:"format" json:"format" env:"LOG_FORMAT" validate:"omitempty,oneof=text json"`
	Output     string `yaml:"output" json:"output" env:"LOG_OUTPUT" validate:"omitempty,oneof=stdout stderr file both"`
	File       string `yaml:"file" json:"file" env:"LOG_FILE"`
	MaxSize    int    `yaml:"max_size_mb" json:"max_size_mb" env:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" env:"LOG_MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age_days" json:"max_age_days" env:"LOG_MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" json:"compress" env:"LOG_COMPRESS"`
}

// DefaultConfig logs text at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "text",
		Output:     OutputStderr,
		File:       filepath.Join("logs", "feedback-agent.log"),
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     14,
	}
}

// New returns a logger configured by cfg. The returned closer releases the
// rotating file, if any.
func New(cfg Config) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	var (
		writers []io.Writer
		closer  io.Closer = nopCloser{}
	)
	if cfg.Output == OutputFile || cfg.Output == OutputBoth {
		if cfg.File == "" {
			return nil, nil, fmt.Errorf("logger: file output requires a file path")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("logger: create log dir: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		writers = append(writers, rotating)
		closer = rotating
	}
	switch cfg.Output {
	case OutputStdout, OutputBoth:
		writers = append(writers, os.Stdout)
	case OutputStderr, "":
		writers = append(writers, os.Stderr)
	}
	l.SetOutput(io.MultiWriter(writers...))
	return l, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
