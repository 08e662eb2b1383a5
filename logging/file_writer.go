package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the JSON log file.
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
)

// FileWriterConfig controls lumberjack rotation. Zero sizes and counts use
// the defaults.
type FileWriterConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	LocalTime  bool
}

// DefaultFileWriterConfig rotates at 100 MB, keeps 5 compressed backups for
// up to 30 days.
func DefaultFileWriterConfig() FileWriterConfig {
	return FileWriterConfig{
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   true,
	}
}

func (c FileWriterConfig) withDefaults() FileWriterConfig {
	orDefault := func(v, def int) int {
		if v <= 0 {
			return def
		}
		return v
	}
	c.MaxSizeMB = orDefault(c.MaxSizeMB, DefaultMaxSizeMB)
	c.MaxBackups = orDefault(c.MaxBackups, DefaultMaxBackups)
	c.MaxAgeDays = orDefault(c.MaxAgeDays, DefaultMaxAgeDays)
	return c
}

// openLogFile creates the log directory and returns a rotating writer for
// path.
func openLogFile(path string, config FileWriterConfig) (zapcore.WriteSyncer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	cfg := config.withDefaults()
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  cfg.LocalTime,
	}), nil
}
