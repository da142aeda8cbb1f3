// Package log holds the process logger and ties log lines to the request that produced them.
package log

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ServiceName is stamped on every line.
const ServiceName = "iptv-addon"

// Options selects the level and destination of the process logger.
type Options struct {
	Level  string    // zerolog level name; empty or unknown means info
	Output io.Writer // nil means stderr
}

var root atomic.Pointer[zerolog.Logger]

// Setup builds the process logger from o and installs it. Loggers derived earlier keep
// their old settings, so call it before constructing components.
func Setup(o Options) zerolog.Logger {
	level := zerolog.InfoLevel
	if name := strings.ToLower(strings.TrimSpace(o.Level)); name != "" {
		if l, err := zerolog.ParseLevel(name); err == nil {
			level = l
		}
	}
	out := o.Output
	if out == nil {
		out = os.Stderr
	}
	l := zerolog.New(out).Level(level).With().Timestamp().Str("service", ServiceName).Logger()
	root.Store(&l)
	return l
}

// Root returns the process logger, installing the default one on first use.
func Root() zerolog.Logger {
	if l := root.Load(); l != nil {
		return *l
	}
	return Setup(Options{})
}

// WithComponent tags a child of Root with the component that logs through it.
func WithComponent(name string) zerolog.Logger {
	return Root().With().Str(FieldComponent, name).Logger()
}
