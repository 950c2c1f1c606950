package domain

type SearchFilter struct {
	Version string
}

type SearchResult struct {
	ControlID string  `json:"control_id"`
	Score     float64 `json:"score"`
	Control   Control `json:"control_data"`
}

const (
	AnsweredByGenerator = "generated"
	AnsweredByFallback  = "fallback"
	AnsweredByLookup    = "lookup"
)

type Answer struct {
	Text         string         `json:"text"`
	Sources      []SearchResult `json:"sources"`
	AnsweredBy   string         `json:"answered_by"`
	Reranked     bool           `json:"reranked"`
	RetrievalMs  int64          `json:"retrieval_ms"`
	GenerationMs int64          `json:"generation_ms"`
}

// QueryRecord is the persisted trace of a single answered question.
type QueryRecord struct {
	ID            string  `json:"id"`
	Question      string  `json:"question"`
	VersionFilter string  `json:"version_filter,omitempty"`
	TopControlID  string  `json:"top_control_id,omitempty"`
	TopScore      float64 `json:"top_score"`
	ResultCount   int     `json:"result_count"`
	AnsweredBy    string  `json:"answered_by"`
	DurationMs    int64   `json:"duration_ms"`
}
