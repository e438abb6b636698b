package log_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/log"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zerolog.DebugLevel, log.ParseLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, log.ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, log.ParseLevel("loud"))
}

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := log.New(&buf, log.FormatPacked)
	require.NoError(t, err)
	logger.Info().Str("deck", "A").Msg("loaded")
	assert.True(t, gjson.ValidBytes(buf.Bytes()))
	assert.Equal(t, "A", gjson.GetBytes(buf.Bytes(), "deck").String())

	buf.Reset()
	logger, err = log.New(&buf, "")
	require.NoError(t, err)
	logger.Info().Msg("loaded")
	assert.Contains(t, buf.String(), "loaded")

	_, err = log.New(&buf, "xml")
	require.ErrorContains(t, err, `unknown log format "xml"`)
}

func TestFlaw(t *testing.T) {
	t.Parallel()

	t.Run("Flaw", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := log.NewPacked(&buf)
		err := flaw.From(errors.New("backend unreachable")).Append(flaw.P{"url": "http://127.0.0.1:8000/tracks/"})
		logger.Error().Func(log.Flaw(err)).Msg("failed")

		line := buf.Bytes()
		assert.Equal(t, "backend unreachable", gjson.GetBytes(line, "error.message").String())
		assert.True(t, gjson.GetBytes(line, "records").IsArray())
		assert.Equal(t, "0.1.0", gjson.GetBytes(line, "app.version").String())
	})

	t.Run("PlainError", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := log.NewPacked(&buf)
		logger.Error().Func(log.Flaw(errors.New("plain"))).Msg("failed")
		assert.Equal(t, "plain", gjson.GetBytes(buf.Bytes(), "error").String())
	})
}

func TestPanic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.NewPacked(&buf)
	func() {
		defer func() {
			if v := recover(); nil != v {
				logger.Error().Func(log.Panic(v)).Msg("recovered")
			}
		}()
		panic("deck exploded")
	}()

	line := buf.Bytes()
	assert.Equal(t, "deck exploded", gjson.GetBytes(line, "panic.content").String())
	assert.Equal(t, "string", gjson.GetBytes(line, "panic.type_name").String())
	assert.NotEmpty(t, gjson.GetBytes(line, "panic.stack_traces").String())
}
