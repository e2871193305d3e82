// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type LoggerConfig struct {
	// Level is one of debug, info, warn or error. Anything else means info.
	Level     string
	Pretty    bool
	Output    io.Writer
	Component string
}

// NewLogger returns a structured logger for build and query diagnostics.
func NewLogger(cfg LoggerConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	component := cfg.Component
	if component == "" {
		component = "ehl"
	}
	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
