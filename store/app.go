package store

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog"

	"github.com/unchained-app/unchained/library/fs"
	"github.com/unchained-app/unchained/log"
)

type ViewMode string

const (
	ViewSpotify        ViewMode = "spotify"
	ViewITunesPro      ViewMode = "itunesPro"
	ViewVinylCollector ViewMode = "vinylCollector"
	ViewMinimal        ViewMode = "minimal"
	ViewAnalytics      ViewMode = "analytics"
	ViewStudio         ViewMode = "studio"
)

var ViewModes = []ViewMode{ViewSpotify, ViewITunesPro, ViewVinylCollector, ViewMinimal, ViewAnalytics, ViewStudio}

func ParseViewMode(s string) (ViewMode, error) {
	if v := ViewMode(s); slices.Contains(ViewModes, v) {
		return v, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

type PlaybackState string

const (
	PlaybackStopped PlaybackState = "stopped"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
)

type AppState struct {
	View             ViewMode
	SidebarOpen      bool
	SelectedTrackIDs []int
	NowPlayingID     *int
	Playback         PlaybackState
}

type UIPrefsFile interface {
	Read() (*fs.UIPrefs, error)
	Write(p fs.UIPrefs) error
}

type App struct {
	*Store[AppState]
	prefs  UIPrefsFile
	logger zerolog.Logger
}

// NewApp returns an in-memory app store with the default layout.
func NewApp() *App {
	return &App{
		Store: New(AppState{
			View:             ViewSpotify,
			SidebarOpen:      true,
			SelectedTrackIDs: []int{},
			Playback:         PlaybackStopped,
		}),
		prefs:  nil,
		logger: zerolog.Nop(),
	}
}

// LoadApp restores the view and sidebar from prefs and writes them back on
// every change. Missing or invalid prefs leave the defaults in place.
func LoadApp(prefs UIPrefsFile, logger zerolog.Logger) *App {
	a := NewApp()
	a.prefs, a.logger = prefs, logger

	p, err := prefs.Read()
	if nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Func(log.Flaw(err)).Msg("Failed to read UI preferences, using defaults")
		}
		return a
	}
	a.Update(func(s AppState) AppState {
		if v, err := ParseViewMode(p.View); nil == err {
			s.View = v
		} else {
			logger.Warn().Str("view", p.View).Msg("Ignoring unknown persisted view mode")
		}
		s.SidebarOpen = p.SidebarOpen
		return s
	})
	return a
}

func (a *App) persist(s AppState) {
	if nil == a.prefs {
		return
	}
	if err := a.prefs.Write(fs.UIPrefs{View: string(s.View), SidebarOpen: s.SidebarOpen}); nil != err {
		a.logger.Error().Func(log.Flaw(err)).Msg("Failed to persist UI preferences")
	}
}

func (a *App) SetView(v ViewMode) {
	a.persist(a.Update(func(s AppState) AppState {
		s.View = v
		return s
	}))
}

func (a *App) ToggleSidebar() {
	a.persist(a.Update(func(s AppState) AppState {
		s.SidebarOpen = !s.SidebarOpen
		return s
	}))
}

func (a *App) Select(ids ...int) {
	selected := slices.Clone(ids)
	if nil == selected {
		selected = []int{}
	}
	a.Update(func(s AppState) AppState {
		s.SelectedTrackIDs = selected
		return s
	})
}

func (a *App) Play(trackID int) {
	a.Update(func(s AppState) AppState {
		s.NowPlayingID = &trackID
		s.Playback = PlaybackPlaying
		return s
	})
}

func (a *App) Pause() {
	a.Update(func(s AppState) AppState {
		s.Playback = PlaybackPaused
		return s
	})
}
