package library

type CandidateQuery struct {
	Artist       string `json:"artist,omitempty"`
	Album        string `json:"album,omitempty"`
	Title        string `json:"title,omitempty"`
	PathAudio    string `json:"path_audio,omitempty"`
	DiscogsToken string `json:"discogs_token,omitempty"`
}

type Candidate struct {
	ID       *int     `json:"id"`
	Source   string   `json:"source"`
	Title    *string  `json:"title"`
	Artist   *string  `json:"artist"`
	Album    *string  `json:"album"`
	Year     Year     `json:"year"`
	LengthMs *int64   `json:"length_ms"`
	CoverURL *string  `json:"cover_url"`
	Score    *float64 `json:"score"`
	Applied  Flag     `json:"applied"`
}

type CandidateSearch struct {
	TempRef    *string     `json:"temp_ref"`
	Best       *Candidate  `json:"best"`
	Candidates []Candidate `json:"candidates"`
}

type Attribution struct {
	FieldName   string   `json:"field_name"`
	Value       *string  `json:"value"`
	Source      *string  `json:"source"`
	CandidateID *int     `json:"candidate_id"`
	Confidence  *float64 `json:"confidence"`
	AppliedAt   *string  `json:"applied_at"`
	Reverted    Flag     `json:"reverted"`
}

type MetadataDiff struct {
	Current     TrackDetails  `json:"current"`
	Attribution []Attribution `json:"attribution"`
	Candidates  []Candidate   `json:"candidates"`
}

type BulkApplyItem struct {
	CandidateID int `json:"candidate_id"`
	TrackID     int `json:"track_id"`
}
