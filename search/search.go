package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/unchained-app/unchained/errutil"
	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/log"
	"github.com/unchained-app/unchained/store"
)

const MaxResults = 10

type Remote interface {
	SearchTracks(ctx context.Context, term string, limit int) ([]library.Track, error)
}

type Results struct {
	Term   string
	Local  []library.Track
	Remote []library.Track
	Err    error
	seq    uint64
}

// Tracks prefers remote results and falls back to the local matches.
func (r Results) Tracks() []library.Track {
	if len(r.Remote) > 0 {
		return r.Remote
	}
	return r.Local
}

// Searcher runs a local filter on every keystroke and a debounced remote
// search that is dropped once a newer term is submitted.
type Searcher struct {
	*store.Store[Results]
	remote   Remote
	debounce time.Duration
	limit    int
	logger   zerolog.Logger

	mux    sync.Mutex
	tracks []library.Track
	seq    uint64
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func New(remote Remote, debounce time.Duration, logger zerolog.Logger) *Searcher {
	return &Searcher{
		Store:    store.New(Results{}),
		remote:   remote,
		debounce: debounce,
		limit:    MaxResults,
		logger:   logger.With().Str("module", "search").Logger(),
	}
}

// WithLimit caps local and remote results at n. Non-positive n keeps MaxResults.
func (s *Searcher) WithLimit(n int) *Searcher {
	if n > 0 {
		s.limit = n
	}
	return s
}

// SetTracks replaces the snapshot used for local matching.
func (s *Searcher) SetTracks(tracks []library.Track) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.tracks = tracks
}

func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Local returns up to the result limit of tracks whose title, artist or album contains q.
func (s *Searcher) Local(q string) []library.Track {
	term := normalize(q)
	if term == "" {
		return nil
	}
	s.mux.Lock()
	tracks := s.tracks
	s.mux.Unlock()

	matches := lo.Filter(tracks, func(t library.Track, _ int) bool { return t.Matches(term) })
	if len(matches) > s.limit {
		matches = matches[:s.limit]
	}
	return matches
}

// Submit starts a search for q, superseding any pending or in-flight one.
func (s *Searcher) Submit(q string) {
	term := strings.TrimSpace(q)
	local := s.Local(term)

	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	if nil != s.cancel {
		s.cancel()
		s.cancel = nil
	}
	var ctx context.Context
	if term != "" {
		ctx, s.cancel = context.WithCancel(context.Background())
		s.wg.Add(1)
	}
	s.mux.Unlock()

	s.Update(func(r Results) Results {
		if r.seq > seq {
			return r
		}
		return Results{Term: term, Local: local, seq: seq}
	})
	if term == "" {
		return
	}
	go s.run(ctx, seq, term)
}

func (s *Searcher) run(ctx context.Context, seq uint64, term string) {
	defer s.wg.Done()

	timer := time.NewTimer(s.debounce)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	tracks, err := s.remote.SearchTracks(ctx, term, s.limit)
	if nil != err {
		if errutil.IsContext(ctx) {
			return
		}
		s.logger.Warn().Func(log.Flaw(err)).Str("term", term).Msg("Remote search failed")
	}
	s.Update(func(r Results) Results {
		if r.seq != seq {
			return r
		}
		r.Remote = tracks
		r.Err = err
		return r
	})
}

// Results returns the tracks to display for the current term.
func (s *Searcher) Results() []library.Track {
	return s.Get().Tracks()
}

// Close cancels any in-flight search and waits for it to finish.
func (s *Searcher) Close() {
	s.mux.Lock()
	s.closed = true
	if nil != s.cancel {
		s.cancel()
		s.cancel = nil
	}
	s.mux.Unlock()
	s.wg.Wait()
}
