package config

import "time"

var (
	DefaultRequestTimeout     = 10 * time.Second
	TrackListRequestTimeout   = 15 * time.Second
	TrackImportRequestTimeout = 2 * time.Minute
	LocalScanRequestTimeout   = 10 * time.Minute
	AnalyticsComputeTimeout   = 5 * time.Minute
	SearchRequestTimeout      = 5 * time.Second
	AnalysisRequestTimeout    = 5 * time.Second
)
