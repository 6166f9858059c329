package config

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/simp-lee/logger"
)

var logFormats = map[string]logger.OutputFormat{
	"text": logger.FormatText,
	"json": logger.FormatJSON,
}

// SetupLogger builds the process logger from cfg and installs it as the slog
// default. The caller owns the returned logger and must Close it.
func SetupLogger(cfg *LogConfig) (*logger.Logger, error) {
	if cfg == nil {
		return nil, errors.New("log config is nil")
	}
	log, err := logger.New(BuildLoggerOpts(cfg)...)
	if err != nil {
		return nil, err
	}
	log.SetDefault()
	return log, nil
}

// BuildLoggerOpts translates cfg into logger options: console output always,
// plus a rotated file when FilePath is set. Context attributes such as
// request_id and client_ip are attached through the context middleware.
func BuildLoggerOpts(cfg *LogConfig) []logger.Option {
	if cfg == nil {
		return nil
	}

	format, ok := logFormats[strings.ToLower(strings.TrimSpace(cfg.Format))]
	if !ok {
		format = logger.FormatCustom
	}

	opts := []logger.Option{
		logger.WithLevel(parseLevel(cfg.Level)),
		logger.WithMiddleware(logger.ContextMiddleware()),
		logger.WithConsoleFormat(format),
		logger.WithConsoleColor(cfg.Color == nil || *cfg.Color),
	}
	if cfg.FilePath == "" {
		return opts
	}
	return append(opts, fileOpts(cfg, format)...)
}

func fileOpts(cfg *LogConfig, format logger.OutputFormat) []logger.Option {
	opts := []logger.Option{logger.WithFilePath(cfg.FilePath), logger.WithFileFormat(format)}
	for _, o := range []struct {
		set bool
		opt func() logger.Option
	}{
		{cfg.MaxSizeMB > 0, func() logger.Option { return logger.WithMaxSizeMB(cfg.MaxSizeMB) }},
		{cfg.RetentionDays > 0, func() logger.Option { return logger.WithRetentionDays(cfg.RetentionDays) }},
		{cfg.MaxBackups > 0, func() logger.Option { return logger.WithMaxBackups(cfg.MaxBackups) }},
		{cfg.CompressRotated != nil, func() logger.Option { return logger.WithCompressRotated(*cfg.CompressRotated) }},
	} {
		if o.set {
			opts = append(opts, o.opt())
		}
	}
	return opts
}

// parseLevel accepts slog level names in any case; anything else is info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
