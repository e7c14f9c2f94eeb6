package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects the process-wide log output. Level takes slog level names
// ("debug", "warn", "error+2"); "warning" is accepted and anything unparsable
// means info. Format is "json" or text. A nil Output writes to stderr.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// Init installs the slog default for the process and returns the level it
// settled on.
func Init(opts Options) slog.Level {
	level := parseLevel(opts.Level)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(out, handlerOpts)
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		h = slog.NewJSONHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(h))
	return level
}

func parseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// New returns a logger tagged with the component name.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}
