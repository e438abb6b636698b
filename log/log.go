package log

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/pretty"

	"github.com/unchained-app/unchained/constant"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

func newBaseLogger() zerolog.Logger {
	return zerolog.
		New(io.Discard).
		With().
		Dict(
			"app",
			zerolog.Dict().
				Str("version", constant.Version).
				Str("compilation_time", constant.CompileTime.Format(time.RFC3339)),
		).
		Timestamp().
		Logger().
		Level(zerolog.TraceLevel)
}

func NewPretty(w io.Writer) zerolog.Logger {
	return newBaseLogger().Output(newPrettyWriter(w))
}

func NewPacked(w io.Writer) zerolog.Logger {
	return newBaseLogger().Output(w)
}

const (
	FormatPretty = "pretty"
	FormatPacked = "packed"
)

// New builds a logger for a --log-format value. An empty format is pretty.
func New(w io.Writer, format string) (zerolog.Logger, error) {
	switch format {
	case "", FormatPretty:
		return NewPretty(w), nil
	case FormatPacked:
		return NewPacked(w), nil
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q, expected %s or %s", format, FormatPretty, FormatPacked)
	}
}

// ParseLevel falls back to info for unknown or empty level names.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if nil != err || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func newPrettyWriter(out io.Writer) prettyWriter {
	return prettyWriter{out}
}

type prettyWriter struct {
	out io.Writer
}

func (p prettyWriter) Write(line []byte) (int, error) {
	if n, err := p.out.Write(pretty.Color(pretty.Pretty(line), nil)); nil != err {
		return n, err
	}
	return len(line), nil
}
