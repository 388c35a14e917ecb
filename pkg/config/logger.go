package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the slog logger described by c. Output goes to w, which
// must not be stdout for commands that speak a protocol there.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}
