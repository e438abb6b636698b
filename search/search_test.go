package search_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/ptr"
	"github.com/unchained-app/unchained/search"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRemote struct {
	mux   sync.Mutex
	terms []string
	block bool
	err   error
}

func (f *fakeRemote) SearchTracks(ctx context.Context, term string, limit int) ([]library.Track, error) {
	f.mux.Lock()
	f.terms = append(f.terms, term)
	block, err := f.block, f.err
	f.mux.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if nil != err {
		return nil, err
	}
	return []library.Track{{ID: 100 + limit, Title: ptr.Of("remote " + term)}}, nil
}

func (f *fakeRemote) calls() []string {
	f.mux.Lock()
	defer f.mux.Unlock()
	return append([]string(nil), f.terms...)
}

func libraryTracks() []library.Track {
	tracks := []library.Track{
		{ID: 1, Title: ptr.Of("Strobe"), Artist: ptr.Of("deadmau5"), Album: ptr.Of("For Lack of a Better Name")},
		{ID: 2, Title: ptr.Of("Windowlicker"), Artist: ptr.Of("Aphex Twin")},
		{ID: 3, Title: nil, Artist: nil, PathAudio: ptr.Of("/music/untitled.mp3")},
	}
	for i := range 15 {
		tracks = append(tracks, library.Track{ID: 10 + i, Title: ptr.Of("Loop " + strconv.Itoa(i)), Artist: ptr.Of("Various")})
	}
	return tracks
}

func TestLocal(t *testing.T) {
	t.Parallel()

	s := search.New(&fakeRemote{}, time.Hour, zerolog.Nop())
	defer s.Close()
	s.SetTracks(libraryTracks())

	testCases := []struct {
		name     string
		query    string
		expected []int
	}{
		{name: "title", query: "strobe", expected: []int{1}},
		{name: "artist case insensitive", query: "  APHEX ", expected: []int{2}},
		{name: "album", query: "better name", expected: []int{1}},
		{name: "blank", query: "   ", expected: nil},
		{name: "no match", query: "zzz", expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var ids []int
			for _, track := range s.Local(tc.query) {
				ids = append(ids, track.ID)
			}
			assert.Equal(t, tc.expected, ids)
		})
	}
}

func TestLocalIsCapped(t *testing.T) {
	t.Parallel()

	s := search.New(&fakeRemote{}, time.Hour, zerolog.Nop())
	defer s.Close()
	s.SetTracks(libraryTracks())

	assert.Len(t, s.Local("various"), search.MaxResults)

	limited := search.New(&fakeRemote{}, time.Hour, zerolog.Nop()).WithLimit(3)
	defer limited.Close()
	limited.SetTracks(libraryTracks())
	assert.Len(t, limited.Local("various"), 3)

	unchanged := search.New(&fakeRemote{}, time.Hour, zerolog.Nop()).WithLimit(0)
	defer unchanged.Close()
	unchanged.SetTracks(libraryTracks())
	assert.Len(t, unchanged.Local("various"), search.MaxResults)
}

func TestSubmitPrefersRemote(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{}
	s := search.New(remote, 10*time.Millisecond, zerolog.Nop())
	defer s.Close()
	s.SetTracks(libraryTracks())

	s.Submit("strobe")
	assert.Equal(t, 1, s.Results()[0].ID)

	require.Eventually(t, func() bool { return len(s.Get().Remote) == 1 }, 2*time.Second, 5*time.Millisecond)
	got := s.Results()
	require.Len(t, got, 1)
	assert.Equal(t, "remote strobe", got[0].DisplayTitle())
	assert.Equal(t, 100+search.MaxResults, got[0].ID)
}

func TestSubmitDebounces(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{}
	s := search.New(remote, 50*time.Millisecond, zerolog.Nop())
	defer s.Close()

	s.Submit("d")
	s.Submit("da")
	s.Submit("daft")

	require.Eventually(t, func() bool { return len(s.Get().Remote) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"daft"}, remote.calls())
	assert.Equal(t, "daft", s.Get().Term)
}

func TestSubmitCancelsInFlight(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{block: true}
	s := search.New(remote, time.Millisecond, zerolog.Nop())
	defer s.Close()

	s.Submit("first")
	require.Eventually(t, func() bool { return len(remote.calls()) == 1 }, 2*time.Second, time.Millisecond)

	remote.mux.Lock()
	remote.block = false
	remote.mux.Unlock()

	s.Submit("second")
	require.Eventually(t, func() bool { return len(s.Get().Remote) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "remote second", s.Results()[0].DisplayTitle())
	assert.NoError(t, s.Get().Err)
}

func TestSubmitEmptyClears(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{}
	s := search.New(remote, time.Millisecond, zerolog.Nop())
	defer s.Close()

	s.Submit("abc")
	require.Eventually(t, func() bool { return len(s.Get().Remote) == 1 }, 2*time.Second, 5*time.Millisecond)

	s.Submit("  ")
	assert.Empty(t, s.Results())
	assert.Empty(t, s.Get().Term)
}

func TestSubmitRemoteErrorFallsBackToLocal(t *testing.T) {
	t.Parallel()

	errBackend := errors.New("backend down")
	remote := &fakeRemote{err: errBackend}
	s := search.New(remote, time.Millisecond, zerolog.Nop())
	defer s.Close()
	s.SetTracks(libraryTracks())

	s.Submit("aphex")
	require.Eventually(t, func() bool { return nil != s.Get().Err }, 2*time.Second, 5*time.Millisecond)
	require.ErrorIs(t, s.Get().Err, errBackend)
	require.Len(t, s.Results(), 1)
	assert.Equal(t, 2, s.Results()[0].ID)
}

func TestCloseCancelsPending(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{}
	s := search.New(remote, time.Hour, zerolog.Nop())
	s.Submit("never")
	s.Close()

	assert.Empty(t, remote.calls())
	s.Submit("after close")
	assert.Empty(t, remote.calls())
}
