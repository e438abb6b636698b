package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/errutil"
	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/log"
)

var errStreamClosed = errors.New("event stream closed by backend")

type Source interface {
	OpenEventStream(ctx context.Context) (io.ReadCloser, error)
}

type Handler func(n library.Notification)

// Stream delivers backend notifications, reconnecting until its context ends.
type Stream struct {
	src         Source
	logger      zerolog.Logger
	maxInterval time.Duration
}

func New(src Source, logger zerolog.Logger, maxInterval time.Duration) *Stream {
	return &Stream{
		src:         src,
		logger:      logger.With().Str("module", "events").Logger(),
		maxInterval: maxInterval,
	}
}

func newBackoff(maxInterval time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.Multiplier = 1.1
	b.MaxElapsedTime = 0
	b.MaxInterval = maxInterval
	if b.InitialInterval > maxInterval {
		b.InitialInterval = maxInterval
	}
	return b
}

// Run blocks until ctx ends and always returns the context's error.
func (s *Stream) Run(ctx context.Context, h Handler) error {
	b := backoff.WithContext(newBackoff(s.maxInterval), ctx)
	op := func() error {
		err := s.consume(ctx, h, b.Reset)
		if errutil.IsContext(ctx) {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		s.logger.Warn().Func(log.Flaw(err)).Dur("retry_in", next).Msg("Notification stream interrupted")
	}
	if err := backoff.RetryNotify(op, b, notify); nil != err && !errutil.IsContext(ctx) {
		return err
	}
	return ctx.Err()
}

func (s *Stream) consume(ctx context.Context, h Handler, onEvent func()) (err error) {
	body, err := s.src.OpenEventStream(ctx)
	if nil != err {
		return err
	}
	defer func() {
		if closeErr := body.Close(); nil != closeErr && nil == err {
			flawP := flaw.P{"err_debug_tree": errutil.Tree(closeErr).FlawP()}
			err = flaw.From(fmt.Errorf("failed to close event stream: %v", closeErr)).Append(flawP)
		}
	}()
	s.logger.Debug().Msg("Connected to notification stream")

	parseErr := Parse(body, func(data string) {
		onEvent()
		var e library.ServerEvent
		if err := json.Unmarshal([]byte(data), &e); nil != err {
			s.logger.Warn().Err(err).Str("data", data).Msg("Skipping malformed notification")
			return
		}
		n := e.Notification()
		s.logger.Debug().Str("type", e.Type).Str("title", n.Title).Msg("Received notification")
		h(n)
	})
	if nil != parseErr {
		if errutil.IsContext(ctx) {
			return ctx.Err()
		}
		flawP := flaw.P{"err_debug_tree": errutil.Tree(parseErr).FlawP()}
		return flaw.From(fmt.Errorf("failed to read event stream: %v", parseErr)).Append(flawP)
	}
	return errStreamClosed
}
