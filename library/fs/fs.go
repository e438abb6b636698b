package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/errutil"
	"github.com/unchained-app/unchained/must"
)

const (
	prefsFileName = "prefs.json"
	uiFileName    = "ui.json"
)

type StateDir string

func From(d string) StateDir {
	return StateDir(d)
}

func (dir StateDir) path() string {
	return string(dir)
}

// Ensure creates the state directory when it does not exist yet.
func (dir StateDir) Ensure() error {
	if err := os.MkdirAll(dir.path(), 0o0700); nil != err {
		flawP := flaw.P{"dir": dir.path(), "err_debug_tree": errutil.Tree(err).FlawP()}
		return flaw.From(fmt.Errorf("failed to create state directory: %v", err)).Append(flawP)
	}
	return nil
}

func (dir StateDir) Prefs() JSONFile[Prefs] {
	return JSONFile[Prefs]{Path: filepath.Join(dir.path(), prefsFileName)}
}

func (dir StateDir) UI() JSONFile[UIPrefs] {
	return JSONFile[UIPrefs]{Path: filepath.Join(dir.path(), uiFileName)}
}

// UIPrefs holds the library layout restored on the next start.
type UIPrefs struct {
	View        string `json:"view"`
	SidebarOpen bool   `json:"sidebar_open"`
}

// Prefs holds the deck layout restored on the next start.
type Prefs struct {
	DeckOrder  []string `json:"deck_order"`
	ActiveDeck string   `json:"active_deck"`
}

type JSONFile[T any] struct {
	Path string
}

// Read returns os.ErrNotExist when the file has never been written.
func (f JSONFile[T]) Read() (v *T, err error) {
	flawP := flaw.P{"file_path": f.Path}
	file, err := os.OpenFile(f.Path, os.O_RDONLY, 0o0600)
	if nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return nil, flaw.From(fmt.Errorf("failed to open file: %v", err)).Append(flawP)
	}
	defer func() {
		if closeErr := file.Close(); nil != closeErr {
			flawP["err_debug_tree"] = errutil.Tree(closeErr).FlawP()
			closeErr = flaw.From(fmt.Errorf("failed to close file: %v", closeErr)).Append(flawP)
			switch {
			case nil == err:
				err = closeErr
			default:
				err = must.BeFlaw(err).Join(closeErr)
			}
		}
	}()

	if err := json.NewDecoder(file).Decode(&v); nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return nil, flaw.From(fmt.Errorf("failed to decode file: %v", err)).Append(flawP)
	}
	return v, nil
}

// Write replaces the file atomically through a temporary sibling.
func (f JSONFile[T]) Write(v T) (err error) {
	flawP := flaw.P{"file_path": f.Path}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*.tmp")
	if nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return flaw.From(fmt.Errorf("failed to create temporary file: %v", err)).Append(flawP)
	}
	tmpPath := tmp.Name()
	defer func() {
		if nil != err {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := json.NewEncoder(tmp).EncodeWithOption(v); nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		encodeErr := flaw.From(fmt.Errorf("failed to encode file: %v", err)).Append(flawP)
		if closeErr := tmp.Close(); nil != closeErr {
			return encodeErr.Join(closeErr)
		}
		return encodeErr
	}
	if err := tmp.Close(); nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return flaw.From(fmt.Errorf("failed to close temporary file: %v", err)).Append(flawP)
	}
	if err := os.Rename(tmpPath, f.Path); nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return flaw.From(fmt.Errorf("failed to replace file: %v", err)).Append(flawP)
	}
	return nil
}
