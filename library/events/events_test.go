package events_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/library/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "single event",
			input:    "data: {\"type\":\"info\"}\n\n",
			expected: []string{`{"type":"info"}`},
		},
		{
			name:     "multi-line data is joined",
			input:    "data: first\ndata: second\n\n",
			expected: []string{"first\nsecond"},
		},
		{
			name:     "comments and other fields are ignored",
			input:    ": keep-alive\nevent: message\nid: 3\ndata:x\n\n",
			expected: []string{"x"},
		},
		{
			name:     "crlf line endings",
			input:    "data: a\r\n\r\ndata: b\r\n\r\n",
			expected: []string{"a", "b"},
		},
		{
			name:     "unterminated event is dropped",
			input:    "data: a\n\ndata: b\n",
			expected: []string{"a"},
		},
		{
			name:     "event without data is skipped",
			input:    "event: ping\n\ndata: y\n\n",
			expected: []string{"y"},
		},
		{
			name:     "blank lines without data dispatch nothing",
			input:    "\n\n\n",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var got []string
			err := events.Parse(strings.NewReader(tc.input), func(data string) { got = append(got, data) })
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestParseReadError(t *testing.T) {
	t.Parallel()

	called := false
	err := events.Parse(io.MultiReader(strings.NewReader("data: a\n"), failingReader{}), func(string) { called = true })
	require.ErrorContains(t, err, "connection reset")
	assert.False(t, called)
}

type fakeSource struct {
	mux    sync.Mutex
	bodies []string
	errs   []error
	opened int
}

func (f *fakeSource) OpenEventStream(ctx context.Context) (io.ReadCloser, error) {
	f.mux.Lock()
	i := f.opened
	f.opened++
	f.mux.Unlock()

	if i < len(f.errs) && nil != f.errs[i] {
		return nil, f.errs[i]
	}
	if i < len(f.bodies) {
		return io.NopCloser(strings.NewReader(f.bodies[i])), nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func collect(t *testing.T, src events.Source, want int) []library.Notification {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		mux sync.Mutex
		got []library.Notification
	)
	s := events.New(src, zerolog.Nop(), 5*time.Millisecond)
	err := s.Run(ctx, func(n library.Notification) {
		mux.Lock()
		defer mux.Unlock()
		got = append(got, n)
		if len(got) == want {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	return got
}

func TestStreamMapsNotifications(t *testing.T) {
	t.Parallel()

	src := &fakeSource{bodies: []string{
		"data: {\"type\":\"upload_complete\",\"message\":\"song.mp3\",\"track_id\":4}\n\n" +
			"data: not json\n\n" +
			"data: {\"type\":\"download_finished\",\"message\":null}\n\n" +
			"data: {\"type\":\"scan\",\"message\":\"12 files\"}\n\n",
	}}

	got := collect(t, src, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "Upload complete", got[0].Title)
	assert.Equal(t, "song.mp3", got[0].Body)
	require.NotNil(t, got[0].TrackID)
	assert.Equal(t, 4, *got[0].TrackID)
	assert.Equal(t, "Download finished", got[1].Title)
	assert.Empty(t, got[1].Body)
	assert.Equal(t, "UNCHAINED", got[2].Title)
	assert.Equal(t, "12 files", got[2].Body)
}

func TestStreamReconnects(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		errs: []error{errors.New("connection refused"), nil, nil},
		bodies: []string{
			"",
			"data: {\"type\":\"info\",\"message\":\"one\"}\n\n",
			"data: {\"type\":\"info\",\"message\":\"two\"}\n\n",
		},
	}

	got := collect(t, src, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Body)
	assert.Equal(t, "two", got[1].Body)
}

func TestStreamStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- events.New(&fakeSource{}, zerolog.Nop(), time.Second).Run(ctx, func(library.Notification) {})
	}()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop")
	}
}
