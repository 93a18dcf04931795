package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pressroom/api/internal/filestage"
	"pressroom/api/internal/store"
)

func newTestServer(st Store) *HTTPServer {
	return NewHTTPServer(newTestService(st), nil, nil, "*", testLocales, "en")
}

func doRequest(t *testing.T, server *HTTPServer, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(&fakeStore{})

	rr := doRequest(t, server, http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if ok, exists := response["ok"]; !exists || ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
}

type fakeStoreForReady struct {
	fakeStore
	pingFn func(context.Context) error
}

func (f *fakeStoreForReady) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func TestReadyEndpointReportsDatabaseFailure(t *testing.T) {
	fs := &fakeStoreForReady{
		pingFn: func(context.Context) error { return errors.New("connection refused") },
	}
	server := newTestServer(fs)

	rr := doRequest(t, server, http.MethodGet, "/api/ready", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestGetFileWithWorkflowStage(t *testing.T) {
	st := &fakeStore{
		getSubmissionFileFn: func(_ context.Context, id int64) (store.SubmissionFile, error) {
			f := baseFile()
			f.ID = id
			return f, nil
		},
	}
	server := newTestServer(st)

	rr := doRequest(t, server, http.MethodGet, "/api/files/7", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response struct {
		File          fileJSON `json:"file"`
		WorkflowStage *string  `json:"workflowStage"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.File.ID != 7 || response.File.FileStage != "submission" {
		t.Errorf("file payload %+v", response.File)
	}
	if response.WorkflowStage == nil || *response.WorkflowStage != "submission" {
		t.Errorf("workflowStage %v", response.WorkflowStage)
	}
}

func TestGetFileNotFound(t *testing.T) {
	server := newTestServer(&fakeStore{})

	rr := doRequest(t, server, http.MethodGet, "/api/files/99", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["code"] != "NOT_FOUND" {
		t.Errorf("code %v", response["code"])
	}
}

func TestEditFileValidationErrorCarriesFields(t *testing.T) {
	st := &fakeStore{
		getSubmissionFileFn: func(_ context.Context, id int64) (store.SubmissionFile, error) {
			f := baseFile()
			f.ID = id
			return f, nil
		},
	}
	server := newTestServer(st)

	rr := doRequest(t, server, http.MethodPut, "/api/files/7", `{"locale":"xx"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}

	var response struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Code != CodeValidation {
		t.Errorf("code %s", response.Code)
	}
	if response.Details["locale"] == "" {
		t.Errorf("details %v", response.Details)
	}
}

func TestListFilesForwardsCollectorParams(t *testing.T) {
	var got store.Collector
	st := &fakeStore{
		collectFilesFn: func(_ context.Context, c store.Collector) ([]store.SubmissionFile, error) {
			got = c
			return []store.SubmissionFile{baseFile()}, nil
		},
	}
	server := newTestServer(st)

	rr := doRequest(t, server, http.MethodGet,
		"/api/submissions/3/files?fileStages=reviewFile,attachment&reviewRoundIds=5&limit=10&offset=20", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if len(got.SubmissionIDs) != 1 || got.SubmissionIDs[0] != 3 {
		t.Errorf("submission filter %v", got.SubmissionIDs)
	}
	if len(got.Stages) != 2 || got.Stages[0] != filestage.StageReviewFile {
		t.Errorf("stage filter %v", got.Stages)
	}
	if len(got.ReviewRoundIDs) != 1 || got.ReviewRoundIDs[0] != 5 {
		t.Errorf("round filter %v", got.ReviewRoundIDs)
	}
	if got.Limit != 10 || got.Offset != 20 {
		t.Errorf("pagination %d/%d", got.Limit, got.Offset)
	}
}

func TestListFilesRejectsUnknownStage(t *testing.T) {
	server := newTestServer(&fakeStore{})

	rr := doRequest(t, server, http.MethodGet, "/api/submissions/3/files?fileStages=galley", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", rr.Code)
	}
}

func TestUploadUnavailableWithoutBlobStore(t *testing.T) {
	server := newTestServer(&fakeStore{})

	rr := doRequest(t, server, http.MethodPost, "/api/submissions/3/files", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

type fakeBlobStore struct {
	stored  []string
	removed []string
}

func (b *fakeBlobStore) Store(_ context.Context, submissionID int64, stage filestage.Stage, originalName, mimetype string, uploaderUserID int64, _ io.Reader, size int64) (store.FileUpload, error) {
	path := fmt.Sprintf("journal/1/submissions/%d/%s/%s", submissionID, filestage.Dir(stage), originalName)
	b.stored = append(b.stored, path)
	return store.FileUpload{
		Path:             path,
		Mimetype:         mimetype,
		Size:             size,
		OriginalFileName: originalName,
		UploaderUserID:   uploaderUserID,
	}, nil
}

func (b *fakeBlobStore) Remove(_ context.Context, objectPath string) error {
	b.removed = append(b.removed, objectPath)
	return nil
}

func doMultipartUpload(t *testing.T, server *HTTPServer, path string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "figures.pdf")
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.7")); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func TestUploadRejectsUnknownStageBeforeStoringBlob(t *testing.T) {
	blobs := &fakeBlobStore{}
	server := NewHTTPServer(newTestService(&fakeStore{}), nil, blobs, "*", testLocales, "en")

	rr := doMultipartUpload(t, server, "/api/submissions/3/files", map[string]string{
		"fileStage":      "galley",
		"uploaderUserId": "42",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(blobs.stored) != 0 {
		t.Errorf("blob stored despite unknown stage: %v", blobs.stored)
	}
}

func TestUploadRemovesBlobWhenFileIsRejected(t *testing.T) {
	blobs := &fakeBlobStore{}
	server := NewHTTPServer(newTestService(&fakeStore{}), nil, blobs, "*", testLocales, "en")

	rr := doMultipartUpload(t, server, "/api/submissions/3/files", map[string]string{
		"fileStage":      "submission",
		"uploaderUserId": "42",
		"locale":         "xx",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(blobs.stored) != 1 {
		t.Fatalf("stored %v", blobs.stored)
	}
	if len(blobs.removed) != 1 || blobs.removed[0] != blobs.stored[0] {
		t.Errorf("rejected upload not cleaned up: stored=%v removed=%v", blobs.stored, blobs.removed)
	}
}

func TestSearchUnavailableWithoutSearcher(t *testing.T) {
	server := newTestServer(&fakeStore{})

	rr := doRequest(t, server, http.MethodGet, "/api/search?q=figure", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestGrantReviewerFile(t *testing.T) {
	var grantedReview, grantedFile int64
	st := &fakeStore{
		getReviewAssignmentFn: func(_ context.Context, id int64) (store.ReviewAssignment, error) {
			return store.ReviewAssignment{ID: id, ReviewRoundID: 5}, nil
		},
		getSubmissionFileFn: func(_ context.Context, id int64) (store.SubmissionFile, error) {
			f := baseFile()
			f.ID = id
			return f, nil
		},
		grantReviewerFileFn: func(_ context.Context, reviewID, fileID int64) error {
			grantedReview, grantedFile = reviewID, fileID
			return nil
		},
	}
	server := newTestServer(st)

	rr := doRequest(t, server, http.MethodPost, "/api/reviews/4/files", `{"submissionFileId":7}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if grantedReview != 4 || grantedFile != 7 {
		t.Errorf("granted review=%d file=%d", grantedReview, grantedFile)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	server := newTestServer(&fakeStore{})

	rr := doRequest(t, server, http.MethodGet, "/api/unknown", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}
