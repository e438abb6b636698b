package cache

import (
	"strconv"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"

	"github.com/unchained-app/unchained/library"
)

var (
	DefaultAnalysisTTL  = 10 * time.Minute
	DefaultTrackListTTL = 30 * time.Second
)

const trackListKey = "tracks"

type Cache struct {
	Analyses  *AnalysesCache
	TrackList *TrackListCache
}

func New() *Cache {
	analysesCache := ccache.New(
		ccache.Configure[*library.Analysis]().
			MaxSize(1000).
			GetsPerPromote(3).
			ItemsToPrune(1),
	)

	trackListCache := ccache.New(
		ccache.Configure[[]library.Track]().
			MaxSize(1).
			GetsPerPromote(3).
			ItemsToPrune(1),
	)

	return &Cache{
		Analyses: &AnalysesCache{
			c:   analysesCache,
			mux: sync.Mutex{},
		},
		TrackList: &TrackListCache{
			c:   trackListCache,
			mux: sync.Mutex{},
		},
	}
}

func (c *Cache) Stop() {
	c.Analyses.c.Stop()
	c.TrackList.c.Stop()
}

type AnalysesCache struct {
	c   *ccache.Cache[*library.Analysis]
	mux sync.Mutex
}

func (c *AnalysesCache) Fetch(trackID int, ttl time.Duration, fetch func() (*library.Analysis, error)) (*ccache.Item[*library.Analysis], error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.c.Fetch(strconv.Itoa(trackID), ttl, fetch)
}

func (c *AnalysesCache) Delete(trackID int) {
	c.c.Delete(strconv.Itoa(trackID))
}

type TrackListCache struct {
	c   *ccache.Cache[[]library.Track]
	mux sync.Mutex
}

func (c *TrackListCache) Fetch(ttl time.Duration, fetch func() ([]library.Track, error)) (*ccache.Item[[]library.Track], error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.c.Fetch(trackListKey, ttl, fetch)
}

func (c *TrackListCache) Clear() {
	c.c.Delete(trackListKey)
}
