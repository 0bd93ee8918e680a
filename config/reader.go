package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/cadpoints/logging"
)

// Read reads a config from the given file, expanding environment variables such as
// "${DATA_ROOT}" before decoding.
func Read(filePath string, logger logging.Logger) (*File, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from. When the config names a log file,
// the caller must Close the returned File once it is done logging.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*File, error) {
	cfg := File{
		ConfigFilePath: originalPath,
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config from json")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "failed to validate config")
	}
	if cfg.LogLevel != nil {
		logger.SetLevel(*cfg.LogLevel)
	}
	if path := cfg.LogFilePath(); path != "" {
		cfg.logAppender = logging.NewFileAppender(logging.FileAppenderConfig{
			Path:     path,
			Compress: cfg.CompressLogs,
		})
		logger.AddAppender(cfg.logAppender)
	}
	logger.Debugw("read config", "path", originalPath,
		"pipeline", cfg.Pipeline != nil, "dataset", cfg.Dataset != nil)
	return &cfg, nil
}
