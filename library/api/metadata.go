package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/unchained-app/unchained/library"
)

func (c *Client) SearchCandidates(ctx context.Context, q library.CandidateQuery) (*library.CandidateSearch, error) {
	r := request{name: "search metadata candidates", method: http.MethodPost, path: "/sources/metadata/quality", body: q}
	res, err := call[library.CandidateSearch](ctx, c, r, "")
	if nil != err {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ApplyCandidate(ctx context.Context, candidateID, trackID int) (*library.TrackDetails, error) {
	r := request{
		name:   "apply metadata candidate",
		method: http.MethodPost,
		path:   "/sources/metadata/apply",
		body:   library.BulkApplyItem{CandidateID: candidateID, TrackID: trackID},
	}
	track, err := call[library.TrackDetails](ctx, c, r, "track")
	if nil != err {
		return nil, err
	}
	c.cache.TrackList.Clear()
	return &track, nil
}

func (c *Client) ApplyCandidatesBulk(ctx context.Context, items []library.BulkApplyItem) ([]library.BulkApplyItem, error) {
	r := request{
		name:   "bulk apply metadata candidates",
		method: http.MethodPost,
		path:   "/sources/metadata/apply/bulk",
		body:   map[string]any{"items": items},
	}
	applied, err := call[[]library.BulkApplyItem](ctx, c, r, "applied")
	if nil != err {
		return nil, err
	}
	c.cache.TrackList.Clear()
	return applied, nil
}

func (c *Client) Attribution(ctx context.Context, trackID int) ([]library.Attribution, error) {
	r := request{name: "get metadata attribution", method: http.MethodGet, path: "/sources/metadata/attribution/" + strconv.Itoa(trackID)}
	return call[[]library.Attribution](ctx, c, r, "attribution")
}

// RevertField returns ErrNotFound when there is nothing to revert.
func (c *Client) RevertField(ctx context.Context, trackID int, field string) ([]library.Attribution, error) {
	r := request{
		name:   "revert metadata field",
		method: http.MethodPost,
		path:   "/sources/metadata/revert",
		body:   map[string]any{"track_id": trackID, "field_name": field},
	}
	attribution, err := call[[]library.Attribution](ctx, c, r, "attribution")
	if nil != err {
		return nil, err
	}
	c.cache.TrackList.Clear()
	return attribution, nil
}

func (c *Client) RecalcConfidence(ctx context.Context, trackID int) ([]library.Attribution, error) {
	r := request{name: "recalculate metadata confidence", method: http.MethodPost, path: "/sources/metadata/recalc-confidence/" + strconv.Itoa(trackID)}
	return call[[]library.Attribution](ctx, c, r, "attribution")
}

func (c *Client) MetadataDiff(ctx context.Context, trackID int, tempRef string) (*library.MetadataDiff, error) {
	var query url.Values
	if tempRef != "" {
		query = url.Values{"temp_ref": []string{tempRef}}
	}
	r := request{name: "get metadata diff", method: http.MethodGet, path: "/sources/metadata/diff/" + strconv.Itoa(trackID), query: query}
	diff, err := call[library.MetadataDiff](ctx, c, r, "")
	if nil != err {
		return nil, err
	}
	return &diff, nil
}
