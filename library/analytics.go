package library

import (
	"github.com/goccy/go-json"
)

type Embedding struct {
	TrackID        int       `json:"track_id"`
	Embedding      []float64 `json:"embedding"`
	ModelVersion   string    `json:"model_version"`
	Dimensionality int       `json:"dimensionality"`
	ComputedAt     *string   `json:"computed_at"`
}

type ReducedEmbedding struct {
	TrackID int      `json:"track_id"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Z       *float64 `json:"z"`
}

type ClusterAssignment struct {
	TrackID            int      `json:"track_id"`
	ClusterID          int      `json:"cluster_id"`
	Algorithm          string   `json:"algorithm"`
	DistanceToCentroid *float64 `json:"distance_to_centroid"`
	ComputedAt         *string  `json:"computed_at"`
}

type ClusterResult struct {
	Algorithm       string `json:"algorithm"`
	NClusters       int    `json:"n_clusters"`
	TracksClustered int    `json:"tracks_clustered"`
}

type SimilarTrack struct {
	TrackID         int     `json:"track_id"`
	SimilarityScore float64 `json:"similarity_score"`
}

// Stats is kept raw: its shape varies with the backend's statistics version.
type Stats = json.RawMessage

const (
	ClusterKMeans = "kmeans"
	ClusterDBSCAN = "dbscan"
)
