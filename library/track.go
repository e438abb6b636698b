package library

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/ptr"
)

type Track struct {
	ID         int     `json:"id"`
	Title      *string `json:"title"`
	Artist     *string `json:"artist"`
	Album      *string `json:"album"`
	DurationMs *int64  `json:"duration_ms"`
	PathAudio  *string `json:"path_audio"`
}

// DisplayTitle falls back to the audio file's base name, then to "Unknown".
func (t Track) DisplayTitle() string {
	if title := ptr.ValueOr(t.Title, ""); title != "" {
		return title
	}
	if p := ptr.ValueOr(t.PathAudio, ""); p != "" {
		return filepath.Base(strings.ReplaceAll(p, `\`, "/"))
	}
	return "Unknown"
}

// Matches reports whether the lower-cased term occurs in title, artist or album.
func (t Track) Matches(term string) bool {
	for _, field := range []*string{t.Title, t.Artist, t.Album} {
		if strings.Contains(strings.ToLower(ptr.ValueOr(field, "")), term) {
			return true
		}
	}
	return false
}

func (t Track) FlawP() flaw.P {
	return flaw.P{
		"id":         t.ID,
		"title":      ptr.ValueOr(t.Title, ""),
		"artist":     ptr.ValueOr(t.Artist, ""),
		"album":      ptr.ValueOr(t.Album, ""),
		"path_audio": ptr.ValueOr(t.PathAudio, ""),
	}
}

func (t Track) Log(e *zerolog.Event) {
	e.
		Int("id", t.ID).
		Str("title", ptr.ValueOr(t.Title, "")).
		Str("artist", ptr.ValueOr(t.Artist, "")).
		Str("album", ptr.ValueOr(t.Album, ""))
}

// TrackDetails is the metadata view returned by apply and diff endpoints.
type TrackDetails struct {
	ID         int     `json:"id"`
	Title      *string `json:"title"`
	Artist     *string `json:"artist"`
	Album      *string `json:"album"`
	Year       Year    `json:"year"`
	DurationMs *int64  `json:"duration_ms"`
	PathCover  *string `json:"path_cover"`
}

// Year accepts both numeric and string years, as providers disagree on the type.
type Year string

func (y *Year) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*y = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); nil == err {
		*y = Year(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); nil != err {
		return err
	}
	*y = Year(n.String())
	return nil
}

func (y Year) MarshalJSON() ([]byte, error) {
	if y == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.Atoi(string(y)); nil == err {
		return []byte(y), nil
	}
	return json.Marshal(string(y))
}

type ImportResult struct {
	TrackID int    `json:"track_id"`
	Message string `json:"message"`
}
