package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/unchained-app/unchained/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStoreLastWriteWins(t *testing.T) {
	t.Parallel()

	s := store.New(1)
	var seen []int
	unsubscribe := s.Subscribe(func(v int) { seen = append(seen, v) })

	s.Set(2)
	assert.Equal(t, 5, s.Update(func(v int) int { return v + 3 }))
	assert.Equal(t, 5, s.Get())
	assert.Equal(t, []int{2, 5}, seen)

	unsubscribe()
	unsubscribe()
	s.Set(9)
	assert.Equal(t, []int{2, 5}, seen)
	assert.Equal(t, 9, s.Get())
}

func TestStoreSubscriberMayWrite(t *testing.T) {
	t.Parallel()

	s := store.New("")
	s.Subscribe(func(v string) {
		if v == "ping" {
			s.Set("pong")
		}
	})

	s.Set("ping")
	assert.Equal(t, "pong", s.Get())
}

func TestAppStore(t *testing.T) {
	t.Parallel()

	app := store.NewApp()
	st := app.Get()
	assert.Equal(t, store.ViewSpotify, st.View)
	assert.True(t, st.SidebarOpen)
	assert.Empty(t, st.SelectedTrackIDs)
	assert.Nil(t, st.NowPlayingID)
	assert.Equal(t, store.PlaybackStopped, st.Playback)

	app.SetView(store.ViewStudio)
	app.ToggleSidebar()
	app.Select(3, 4)
	app.Play(4)
	st = app.Get()
	assert.Equal(t, store.ViewStudio, st.View)
	assert.False(t, st.SidebarOpen)
	assert.Equal(t, []int{3, 4}, st.SelectedTrackIDs)
	assert.Equal(t, 4, *st.NowPlayingID)
	assert.Equal(t, store.PlaybackPlaying, st.Playback)

	app.Pause()
	assert.Equal(t, store.PlaybackPaused, app.Get().Playback)
	assert.Equal(t, 4, *app.Get().NowPlayingID)

	app.Select()
	assert.Empty(t, app.Get().SelectedTrackIDs)
}

func TestParseViewMode(t *testing.T) {
	t.Parallel()

	for _, v := range store.ViewModes {
		got, err := store.ParseViewMode(string(v))
		assert.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := store.ParseViewMode("winamp")
	assert.Error(t, err)
}
