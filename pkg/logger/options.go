package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug when true.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
			return
		}
		c.level = slog.LevelInfo
	}
}

// WithPretty switches to the charmbracelet/log handler for colorized
// terminal output.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON switches to slog's JSON handler. It wins over WithPretty.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter replaces the output writer.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters writes every record to all of w.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource adds file:line to each record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
