package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/unchained-app/unchained/config"
	"github.com/unchained-app/unchained/library"
)

// ComputeEmbeddings returns the number of tracks processed. Nil trackIDs
// computes all tracks without embeddings.
func (c *Client) ComputeEmbeddings(ctx context.Context, trackIDs []int, force bool, modelVersion string) (int, error) {
	if modelVersion == "" {
		modelVersion = "v1"
	}
	r := request{
		name:    "compute embeddings",
		method:  http.MethodPost,
		path:    "/analytics/embeddings/compute",
		body:    map[string]any{"track_ids": trackIDs, "force_recompute": force, "model_version": modelVersion},
		timeout: config.AnalyticsComputeTimeout,
	}
	respBytes, err := c.do(ctx, r)
	if nil != err {
		return 0, err
	}
	for _, key := range []string{"computed", "processed"} {
		if v := gjson.GetBytes(respBytes, key); v.Exists() {
			return int(v.Int()), nil
		}
	}
	if msg := gjson.GetBytes(respBytes, "error"); msg.Exists() {
		return 0, errors.New(msg.String())
	}
	return 0, nil
}

func (c *Client) Embeddings(ctx context.Context, trackIDs []int) ([]library.Embedding, error) {
	var query url.Values
	if len(trackIDs) > 0 {
		query = url.Values{"track_ids": []string{strings.Join(lo.Map(trackIDs, func(id int, _ int) string { return strconv.Itoa(id) }), ",")}}
	}
	r := request{name: "get embeddings", method: http.MethodGet, path: "/analytics/embeddings", query: query}
	return call[[]library.Embedding](ctx, c, r, "embeddings")
}

func (c *Client) ReduceEmbeddings(ctx context.Context, components int) ([]library.ReducedEmbedding, error) {
	if components != 2 && components != 3 {
		return nil, errors.New("components must be 2 or 3")
	}
	query := url.Values{"n_components": []string{strconv.Itoa(components)}}
	r := request{name: "reduce embeddings", method: http.MethodGet, path: "/analytics/embeddings/reduce", query: query}
	return call[[]library.ReducedEmbedding](ctx, c, r, "reduced_embeddings")
}

func (c *Client) ComputeClusters(ctx context.Context, algorithm string, n int, force bool) (*library.ClusterResult, error) {
	if algorithm == "" {
		algorithm = library.ClusterKMeans
	}
	r := request{
		name:    "compute clusters",
		method:  http.MethodPost,
		path:    "/analytics/clusters/compute",
		body:    map[string]any{"algorithm": algorithm, "n_clusters": n, "force_recompute": force},
		timeout: config.AnalyticsComputeTimeout,
	}
	res, err := call[library.ClusterResult](ctx, c, r, "")
	if nil != err {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Clusters(ctx context.Context, algorithm string) ([]library.ClusterAssignment, error) {
	var query url.Values
	if algorithm != "" {
		query = url.Values{"algorithm": []string{algorithm}}
	}
	r := request{name: "get clusters", method: http.MethodGet, path: "/analytics/clusters", query: query}
	return call[[]library.ClusterAssignment](ctx, c, r, "clusters")
}

func (c *Client) ComputeStats(ctx context.Context) (library.Stats, error) {
	r := request{name: "compute stats", method: http.MethodPost, path: "/analytics/stats/compute", timeout: config.AnalyticsComputeTimeout, bodyRequired: true}
	return c.do(ctx, r)
}

func (c *Client) Stats(ctx context.Context, latestOnly bool) (library.Stats, error) {
	query := url.Values{"latest_only": []string{strconv.FormatBool(latestOnly)}}
	r := request{name: "get stats", method: http.MethodGet, path: "/analytics/stats", query: query, bodyRequired: true}
	return c.do(ctx, r)
}

func (c *Client) Similar(ctx context.Context, trackID, topN int) ([]library.SimilarTrack, error) {
	query := url.Values{"top_n": []string{strconv.Itoa(topN)}}
	r := request{name: "get similar tracks", method: http.MethodGet, path: "/analytics/similarity/" + strconv.Itoa(trackID), query: query}
	return call[[]library.SimilarTrack](ctx, c, r, "similar_tracks")
}
