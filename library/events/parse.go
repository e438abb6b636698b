package events

import (
	"io"

	"github.com/tmaxmax/go-sse"
)

const maxEventSize = 1024 * 1024

// Parse reads a text/event-stream body and calls fn with the data of every
// dispatched event. Multi-line data is joined with "\n". Data left without a
// terminating blank line at EOF is discarded.
func Parse(r io.Reader, fn func(data string)) error {
	src := &eofReader{r: r}
	for e, err := range sse.Read(src, &sse.ReadConfig{MaxEventSize: maxEventSize}) {
		if nil != err {
			// An event cut off by the end of the body is not an error.
			if src.eof {
				return nil
			}
			return err
		}
		// Notifications always carry a JSON payload.
		if e.Data == "" {
			continue
		}
		fn(e.Data)
	}
	return nil
}

type eofReader struct {
	r   io.Reader
	eof bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF {
		e.eof = true
	}
	return n, err
}
