package log

import (
	"bytes"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// panicFrames is the number of stack lines belonging to the recovery itself.
const panicFrames = 9

func Panic(v any) func(e *zerolog.Event) {
	return func(e *zerolog.Event) {
		lines := bytes.Split(debug.Stack(), []byte("\n"))
		if len(lines) > panicFrames {
			lines = lines[panicFrames:]
		}
		e.Dict(
			"panic",
			zerolog.
				Dict().
				Str("type_name", fmt.Sprintf("%T", v)).
				Any("content", v).
				Bytes("stack_traces", bytes.Join(lines, []byte("\n"))),
		)
	}
}
