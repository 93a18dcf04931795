// Package search finds submission files by their localized names. It talks
// to Meilisearch when one is configured and reachable, and falls back to a
// PostgreSQL query over the file settings otherwise.
package search

// FileRecord is the data we index for a submission file.
type FileRecord struct {
	ID           int64             `json:"id"`
	SubmissionID int64             `json:"submissionId"`
	Stage        string            `json:"fileStage"`
	Name         map[string]string `json:"name"`
}

// Result is a single search hit returned to the caller.
type Result struct {
	ID           int64  `json:"id"`
	SubmissionID int64  `json:"submissionId"`
	Stage        string `json:"fileStage"`
	Name         string `json:"name"`
}

// Query describes a search request.
type Query struct {
	Text         string
	SubmissionID int64 // 0 = all submissions
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a file-name search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}
