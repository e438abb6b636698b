package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/xeptore/flaw/v8"

	"github.com/unchained-app/unchained/cache"
	"github.com/unchained-app/unchained/config"
	"github.com/unchained-app/unchained/errutil"
	"github.com/unchained-app/unchained/library"
)

func (c *Client) Tracks(ctx context.Context) ([]library.Track, error) {
	item, err := c.cache.TrackList.Fetch(cache.DefaultTrackListTTL, func() ([]library.Track, error) {
		return c.fetchTracks(ctx)
	})
	if nil != err {
		return nil, err
	}
	return item.Value(), nil
}

func (c *Client) fetchTracks(ctx context.Context) ([]library.Track, error) {
	r := request{
		name:    "list tracks",
		method:  http.MethodGet,
		path:    "/tracks/",
		timeout: config.TrackListRequestTimeout,
	}
	return call[[]library.Track](ctx, c, r, "")
}

func (c *Client) Track(ctx context.Context, id int) (*library.Track, error) {
	r := request{name: "get track", method: http.MethodGet, path: "/tracks/" + strconv.Itoa(id)}
	track, err := call[library.Track](ctx, c, r, "")
	if nil != err {
		return nil, err
	}
	return &track, nil
}

func (c *Client) SearchTracks(ctx context.Context, term string, limit int) ([]library.Track, error) {
	query := make(url.Values, 2)
	query.Set("q", term)
	query.Set("limit", strconv.Itoa(limit))
	r := request{
		name:    "search tracks",
		method:  http.MethodGet,
		path:    "/tracks/search",
		query:   query,
		timeout: config.SearchRequestTimeout,
	}
	return call[[]library.Track](ctx, c, r, "")
}

// ImportTrack uploads an audio file. The cached track list is dropped on success.
func (c *Client) ImportTrack(ctx context.Context, fileName string, content io.Reader) (*library.ImportResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(fileName))
	if nil != err {
		flawP := flaw.P{"file_name": fileName, "err_debug_tree": errutil.Tree(err).FlawP()}
		return nil, flaw.From(fmt.Errorf("failed to create multipart file field: %v", err)).Append(flawP)
	}
	if _, err := io.Copy(part, content); nil != err {
		if errutil.IsContext(ctx) {
			return nil, ctx.Err()
		}
		flawP := flaw.P{"file_name": fileName, "err_debug_tree": errutil.Tree(err).FlawP()}
		return nil, flaw.From(fmt.Errorf("failed to copy track content into multipart body: %v", err)).Append(flawP)
	}
	if err := w.Close(); nil != err {
		flawP := flaw.P{"file_name": fileName, "err_debug_tree": errutil.Tree(err).FlawP()}
		return nil, flaw.From(fmt.Errorf("failed to finalize multipart body: %v", err)).Append(flawP)
	}

	r := request{
		name:        "import track",
		method:      http.MethodPost,
		path:        "/tracks/import",
		rawBody:     &buf,
		contentType: w.FormDataContentType(),
		timeout:     config.TrackImportRequestTimeout,
	}
	res, err := call[library.ImportResult](ctx, c, r, "")
	if nil != err {
		return nil, err
	}
	c.cache.TrackList.Clear()
	return &res, nil
}

func (c *Client) ScanLocalFolder(ctx context.Context, folder string, copyFiles bool) (int, error) {
	r := request{
		name:    "scan local folder",
		method:  http.MethodPost,
		path:    "/sources/local/scan",
		body:    map[string]any{"folder": folder, "copy": copyFiles},
		timeout: config.LocalScanRequestTimeout,
	}
	indexed, err := call[int](ctx, c, r, "indexed")
	if nil != err {
		return 0, err
	}
	c.cache.TrackList.Clear()
	return indexed, nil
}
