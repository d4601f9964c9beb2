// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger setup.
type Options struct {
	Level   string
	Verbose bool
	File    string
	Color   bool
	JSON    bool
}

// Setup installs the global logger and returns a closer for the log file, if any.
func Setup(opts Options, stderr io.Writer) (io.Closer, error) {
	level, err := ParseLevel(opts.Level, opts.Verbose)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)

	out := stderr
	color := opts.Color
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		// #nosec G304 - user-selected log file
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		color = false
		closer = f
	}

	if opts.JSON {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return closer, nil
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !color,
	}).With().Timestamp().Logger()
	return closer, nil
}

// ParseLevel maps a level name to a zerolog level. Verbose forces debug.
func ParseLevel(name string, verbose bool) (zerolog.Level, error) {
	if verbose {
		return zerolog.DebugLevel, nil
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q (use trace, debug, info, warn, error)", name)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Leveled adapts zerolog to the key/value logger interface used by
// hashicorp/go-retryablehttp.
type Leveled struct {
	Logger zerolog.Logger
}

func (l Leveled) Error(msg string, keysAndValues ...interface{}) {
	withFields(l.Logger.Error(), keysAndValues).Msg(msg)
}

func (l Leveled) Info(msg string, keysAndValues ...interface{}) {
	withFields(l.Logger.Info(), keysAndValues).Msg(msg)
}

func (l Leveled) Debug(msg string, keysAndValues ...interface{}) {
	withFields(l.Logger.Debug(), keysAndValues).Msg(msg)
}

func (l Leveled) Warn(msg string, keysAndValues ...interface{}) {
	withFields(l.Logger.Warn(), keysAndValues).Msg(msg)
}

func withFields(e *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		e = e.Interface(key, keysAndValues[i+1])
	}
	return e
}
