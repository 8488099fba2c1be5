package fred

// observationsResponse from GET /fred/series/observations
type observationsResponse struct {
	ObservationStart string        `json:"observation_start"`
	ObservationEnd   string        `json:"observation_end"`
	Count            int           `json:"count"`
	Observations     []observation `json:"observations"`
}

type observation struct {
	Date  string `json:"date"`  // YYYY-MM-DD
	Value string `json:"value"` // "." when missing
}

// seriesResponse from GET /fred/series
type seriesResponse struct {
	Series []struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Frequency string `json:"frequency"`
		Units     string `json:"units"`
	} `json:"seriess"`
}

// errorResponse is the body FRED sends with 4xx statuses.
type errorResponse struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}
