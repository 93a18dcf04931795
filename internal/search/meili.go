package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxFiles = "pressroom_files"

// Meili implements Searcher via Meilisearch and accepts index writes.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the file index. An
// unreachable instance is tolerated: the health loop keeps probing and the
// facade falls back to Postgres in the meantime.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxFiles,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxFiles, err)
	}

	index := m.client.Index(idxFiles)
	filterable := []interface{}{"submissionId", "fileStage"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxFiles, err)
	}
	searchable := []string{"name"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxFiles, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the file index.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	request := &meili.SearchRequest{
		Limit:  limit,
		Offset: int64(q.Offset),
	}
	if q.SubmissionID != 0 {
		request.Filter = fmt.Sprintf("submissionId = %d", q.SubmissionID)
	}

	resp, err := m.client.Index(idxFiles).Search(q.Text, request)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToResult(hit))
	}
	return results, int(resp.EstimatedTotalHits), nil
}

// IndexFile adds or updates a file in the search index.
func (m *Meili) IndexFile(rec FileRecord) error {
	_, err := m.client.Index(idxFiles).AddDocuments([]FileRecord{rec}, nil)
	return err
}

// IndexFiles bulk-indexes files.
func (m *Meili) IndexFiles(records []FileRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxFiles).AddDocuments(records, nil)
	return err
}

// RemoveFile drops a file from the search index.
func (m *Meili) RemoveFile(submissionFileID int64) error {
	_, err := m.client.Index(idxFiles).DeleteDocument(strconv.FormatInt(submissionFileID, 10), nil)
	return err
}

func hitToResult(hit meili.Hit) Result {
	r := Result{
		ID:           decodeInt(hit, "id"),
		SubmissionID: decodeInt(hit, "submissionId"),
		Stage:        decodeString(hit, "fileStage"),
	}
	// Any localized name serves as the display name; hits carry the full map.
	raw, ok := hit["name"]
	if ok {
		var names map[string]string
		if err := json.Unmarshal(raw, &names); err == nil {
			for _, name := range names {
				if name != "" {
					r.Name = name
					break
				}
			}
		}
	}
	return r
}

func decodeInt(hit meili.Hit, key string) int64 {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
