package models

// QuestionRequest is the body of /api/parse, /api/feasibility and /api/ask
type QuestionRequest struct {
	Question   string `json:"question"`
	UseRewrite bool   `json:"use_rewrite,omitempty"`
}

// ParseResponse is returned by /api/parse
type ParseResponse struct {
	Intent Intent `json:"intent"`
}

// FeasibilityResponse is returned by /api/feasibility
type FeasibilityResponse struct {
	Intent  Intent  `json:"intent"`
	Verdict Verdict `json:"verdict"`
}

// AskResponse is returned by /api/ask. Result is nil when nothing was analysed.
type AskResponse struct {
	Intent      Intent          `json:"intent"`
	Verdict     Verdict         `json:"verdict"`
	Analysed    *Intent         `json:"analysed,omitempty"`
	Result      *AnalysisResult `json:"result,omitempty"`
	Citations   []string        `json:"citations,omitempty"`
	ChartFamily string          `json:"chart_family,omitempty"`
	Answer      string          `json:"answer,omitempty"`
}

// DatasetStatus summarises one loaded dataset for /api/datasets
type DatasetStatus struct {
	ID          string      `json:"id"`
	Kind        DatasetKind `json:"kind"`
	Granularity Granularity `json:"granularity"`
	Years       string      `json:"years"`
	CropType    string      `json:"crop_type,omitempty"`
	Records     int         `json:"records"`
	NullPct     float64     `json:"null_pct"`
}

// DatasetsResponse is returned by /api/datasets
type DatasetsResponse struct {
	Datasets     []DatasetStatus `json:"datasets"`
	Subdivisions int             `json:"subdivisions"`
	Districts    int             `json:"districts"`
}

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error string `json:"error"`
}
