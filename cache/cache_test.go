package cache_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unchained-app/unchained/cache"
	"github.com/unchained-app/unchained/library"
	"github.com/unchained-app/unchained/ptr"
)

func TestAnalysesCache(t *testing.T) {
	t.Parallel()

	c := cache.New()
	defer c.Stop()

	calls := 0
	fetch := func() (*library.Analysis, error) {
		calls++
		return &library.Analysis{ID: 1, BPM: ptr.Of(128.0)}, nil
	}

	item, err := c.Analyses.Fetch(7, cache.DefaultAnalysisTTL, fetch)
	require.NoError(t, err)
	assert.InDelta(t, 128.0, *item.Value().BPM, 1e-9)

	_, err = c.Analyses.Fetch(7, cache.DefaultAnalysisTTL, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	c.Analyses.Delete(7)
	_, err = c.Analyses.Fetch(7, cache.DefaultAnalysisTTL, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTrackListCacheDoesNotStoreErrors(t *testing.T) {
	t.Parallel()

	c := cache.New()
	defer c.Stop()

	errBackend := errors.New("backend down")
	_, err := c.TrackList.Fetch(cache.DefaultTrackListTTL, func() ([]library.Track, error) { return nil, errBackend })
	require.ErrorIs(t, err, errBackend)

	item, err := c.TrackList.Fetch(cache.DefaultTrackListTTL, func() ([]library.Track, error) {
		return []library.Track{{ID: 1}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, item.Value(), 1)
}
