package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pressroom/api/internal/filestage"
	"pressroom/api/internal/search"
	"pressroom/api/internal/store"
)

// BlobStore receives uploaded bodies and returns the record the file store
// persists. Implemented by upload.Uploader; nil disables uploads.
type BlobStore interface {
	Store(ctx context.Context, submissionID int64, stage filestage.Stage, originalName, mimetype string, uploaderUserID int64, body io.Reader, size int64) (store.FileUpload, error)
	Remove(ctx context.Context, objectPath string) error
}

// FileSearcher serves the search endpoint. Implemented by search.Service.
type FileSearcher interface {
	Search(q search.Query) search.Response
}

type HTTPServer struct {
	service        *Service
	searcher       FileSearcher
	blobs          BlobStore
	corsOrigin     string
	allowedLocales []string
	primaryLocale  string
}

func NewHTTPServer(service *Service, searcher FileSearcher, blobs BlobStore, corsOrigin string, allowedLocales []string, primaryLocale string) *HTTPServer {
	return &HTTPServer{
		service:        service,
		searcher:       searcher,
		blobs:          blobs,
		corsOrigin:     corsOrigin,
		allowedLocales: allowedLocales,
		primaryLocale:  primaryLocale,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	parts := splitPath(r.URL.Path)

	// /api/submissions/{id}/files and /api/submissions/{id}/file-stages
	if len(parts) == 4 && parts[0] == "api" && parts[1] == "submissions" {
		submissionID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "submission id must be an integer", nil)
			return
		}
		switch {
		case parts[3] == "files" && r.Method == http.MethodGet:
			s.handleListFiles(w, r, submissionID)
			return
		case parts[3] == "files" && r.Method == http.MethodPost:
			s.handleUploadFile(w, r, submissionID)
			return
		case parts[3] == "file-stages" && r.Method == http.MethodGet:
			s.handleAssignedStages(w, r, submissionID)
			return
		}
	}

	// /api/reviews/{id}/files
	if len(parts) == 4 && parts[0] == "api" && parts[1] == "reviews" && parts[3] == "files" && r.Method == http.MethodPost {
		reviewID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "review id must be an integer", nil)
			return
		}
		s.handleGrantReviewerFile(w, r, reviewID)
		return
	}

	// /api/files/{id}[/...]
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "files" {
		fileID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file id must be an integer", nil)
			return
		}

		if len(parts) == 3 {
			switch r.Method {
			case http.MethodGet:
				s.handleGetFile(w, r, fileID)
				return
			case http.MethodPut:
				s.handleEditFile(w, r, fileID)
				return
			case http.MethodDelete:
				s.handleDeleteFile(w, r, fileID)
				return
			}
		}

		if len(parts) == 4 {
			switch {
			case parts[3] == "revisions" && r.Method == http.MethodGet:
				s.handleRevisions(w, r, fileID)
				return
			case parts[3] == "history" && r.Method == http.MethodGet:
				s.handleHistory(w, r, fileID)
				return
			case parts[3] == "stage" && r.Method == http.MethodPut:
				s.handleMoveToStage(w, r, fileID)
				return
			case parts[3] == "variants" && r.Method == http.MethodPost:
				s.handleLinkVariants(w, r, fileID)
				return
			case parts[3] == "variants" && r.Method == http.MethodDelete:
				s.handleUnlinkVariants(w, r, fileID)
				return
			}
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// fileJSON is the wire shape of a submission file.
type fileJSON struct {
	ID             int64             `json:"id"`
	SubmissionID   int64             `json:"submissionId"`
	FileID         int64             `json:"fileId"`
	FileStage      string            `json:"fileStage"`
	AssocType      string            `json:"assocType,omitempty"`
	AssocID        int64             `json:"assocId,omitempty"`
	GenreID        int64             `json:"genreId,omitempty"`
	UploaderUserID int64             `json:"uploaderUserId"`
	Viewable       bool              `json:"viewable"`
	VariantGroupID int64             `json:"variantGroupId,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	Locale         string            `json:"locale,omitempty"`
	Name           map[string]string `json:"name"`
	Caption        map[string]string `json:"caption,omitempty"`
	Credit         map[string]string `json:"credit,omitempty"`
}

func toFileJSON(f store.SubmissionFile) fileJSON {
	return fileJSON{
		ID:             f.ID,
		SubmissionID:   f.SubmissionID,
		FileID:         f.FileID,
		FileStage:      string(f.Stage),
		AssocType:      string(f.AssocType),
		AssocID:        f.AssocID,
		GenreID:        f.GenreID,
		UploaderUserID: f.UploaderUserID,
		Viewable:       f.Viewable,
		VariantGroupID: f.VariantGroupID,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
		Locale:         f.Locale,
		Name:           f.Name,
		Caption:        f.Caption,
		Credit:         f.Credit,
	}
}

func toFileListJSON(files []store.SubmissionFile) []fileJSON {
	out := make([]fileJSON, 0, len(files))
	for _, f := range files {
		out = append(out, toFileJSON(f))
	}
	return out
}

func (s *HTTPServer) handleListFiles(w http.ResponseWriter, r *http.Request, submissionID int64) {
	collector := store.BySubmission(submissionID)
	query := r.URL.Query()

	if stages, ok, err := stageParams(query.Get("fileStages")); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		return
	} else if ok {
		collector = collector.WithStages(stages...)
	}

	if ids, ok, err := idParams(query.Get("reviewRoundIds")); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "reviewRoundIds must be integers", nil)
		return
	} else if ok {
		collector = collector.WithReviewRounds(ids...)
	}

	if ids, ok, err := idParams(query.Get("reviewIds")); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "reviewIds must be integers", nil)
		return
	} else if ok {
		collector = collector.WithReviews(ids...)
	}

	if ids, ok, err := idParams(query.Get("uploaderUserIds")); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "uploaderUserIds must be integers", nil)
		return
	} else if ok {
		collector = collector.WithUploaders(ids...)
	}

	if ids, ok, err := idParams(query.Get("variantGroupIds")); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "variantGroupIds must be integers", nil)
		return
	} else if ok {
		collector = collector.WithVariantGroups(ids...)
	}

	if assocType := strings.TrimSpace(query.Get("assocType")); assocType != "" {
		ids, ok, err := idParams(query.Get("assocIds"))
		if err != nil || !ok {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "assocType requires integer assocIds", nil)
			return
		}
		collector = collector.WithAssoc(filestage.AssocType(assocType), ids...)
	}

	if query.Get("includeDependent") == "true" {
		collector.IncludeDependent = true
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		collector.Limit = parsed
	}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		collector.Offset = parsed
	}

	files, err := s.service.Collect(r.Context(), collector)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": toFileListJSON(files)})
}

func (s *HTTPServer) handleUploadFile(w http.ResponseWriter, r *http.Request, submissionID int64) {
	if s.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Object storage not configured", nil)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "multipart form expected", nil)
		return
	}
	blob, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "a file part is required", nil)
		return
	}
	defer blob.Close()

	stage := filestage.Stage(r.FormValue("fileStage"))
	if !filestage.Known(stage) {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("unrecognized file stage %q", stage), nil)
		return
	}
	uploaderID, err := strconv.ParseInt(r.FormValue("uploaderUserId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "uploaderUserId must be an integer", nil)
		return
	}

	f := store.SubmissionFile{
		SubmissionID: submissionID,
		Stage:        stage,
		AssocType:    filestage.AssocType(r.FormValue("assocType")),
		Locale:       r.FormValue("locale"),
		Viewable:     r.FormValue("viewable") == "true",
	}
	if raw := r.FormValue("assocId"); raw != "" {
		f.AssocID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "assocId must be an integer", nil)
			return
		}
	}
	if raw := r.FormValue("genreId"); raw != "" {
		f.GenreID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "genreId must be an integer", nil)
			return
		}
	}
	if raw := r.FormValue("name"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &f.Name); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name must be a locale map", nil)
			return
		}
	}

	mimetype := header.Header.Get("Content-Type")
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}

	uploadRec, err := s.blobs.Store(r.Context(), submissionID, stage, header.Filename, mimetype, uploaderID, blob, header.Size)
	if err != nil {
		log.Printf("http: store blob: %v", err)
		writeError(w, http.StatusBadGateway, "STORAGE_ERROR", "Could not store the uploaded file", nil)
		return
	}

	added, err := s.service.AddUpload(r.Context(), uploadRec, f, s.allowedLocales, s.primaryLocale)
	if err != nil {
		// The entity row never existed, so the stored blob is unreachable.
		if rmErr := s.blobs.Remove(r.Context(), uploadRec.Path); rmErr != nil {
			log.Printf("http: remove rejected upload %s: %v", uploadRec.Path, rmErr)
		}
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, toFileJSON(added))
}

func (s *HTTPServer) handleGetFile(w http.ResponseWriter, r *http.Request, fileID int64) {
	f, err := s.service.Get(r.Context(), fileID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	workflowStage, err := s.service.WorkflowStage(r.Context(), f)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	payload := map[string]any{"file": toFileJSON(f)}
	if workflowStage != "" {
		payload["workflowStage"] = workflowStage
	} else {
		payload["workflowStage"] = nil
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleEditFile(w http.ResponseWriter, r *http.Request, fileID int64) {
	var body struct {
		FileID   *int64            `json:"fileId"`
		Name     map[string]string `json:"name"`
		Caption  map[string]string `json:"caption"`
		Credit   map[string]string `json:"credit"`
		GenreID  *int64            `json:"genreId"`
		Viewable *bool             `json:"viewable"`
		Locale   *string           `json:"locale"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	changes := FileChanges{
		FileID:   body.FileID,
		Name:     body.Name,
		Caption:  body.Caption,
		Credit:   body.Credit,
		GenreID:  body.GenreID,
		Viewable: body.Viewable,
		Locale:   body.Locale,
	}
	edited, err := s.service.Edit(r.Context(), fileID, changes, s.allowedLocales, s.primaryLocale)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, toFileJSON(edited))
}

func (s *HTTPServer) handleMoveToStage(w http.ResponseWriter, r *http.Request, fileID int64) {
	var body struct {
		FileStage string `json:"fileStage"`
		AssocType string `json:"assocType"`
		AssocID   int64  `json:"assocId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	moved, err := s.service.MoveToStage(r.Context(), fileID, filestage.Stage(body.FileStage), filestage.AssocType(body.AssocType), body.AssocID, s.allowedLocales, s.primaryLocale)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, toFileJSON(moved))
}

func (s *HTTPServer) handleDeleteFile(w http.ResponseWriter, r *http.Request, fileID int64) {
	if err := s.service.DeleteByID(r.Context(), fileID); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": fileID})
}

func (s *HTTPServer) handleRevisions(w http.ResponseWriter, r *http.Request, fileID int64) {
	if _, err := s.service.Get(r.Context(), fileID); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	revisions, err := s.service.Revisions(r.Context(), fileID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	type revisionJSON struct {
		ID       int64  `json:"id"`
		FileID   int64  `json:"fileId"`
		Path     string `json:"path"`
		Mimetype string `json:"mimetype"`
	}
	out := make([]revisionJSON, 0, len(revisions))
	for _, rev := range revisions {
		out = append(out, revisionJSON{ID: rev.ID, FileID: rev.FileID, Path: rev.Path, Mimetype: rev.Mimetype})
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": out})
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request, fileID int64) {
	if _, err := s.service.Get(r.Context(), fileID); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	entries, err := s.service.Events(r.Context(), fileID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	type eventJSON struct {
		ID        int64     `json:"id"`
		EventType string    `json:"eventType"`
		UserID    int64     `json:"userId"`
		Message   string    `json:"message"`
		CreatedAt time.Time `json:"createdAt"`
	}
	out := make([]eventJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, eventJSON{ID: e.ID, EventType: e.EventType, UserID: e.UserID, Message: e.Message, CreatedAt: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *HTTPServer) handleLinkVariants(w http.ResponseWriter, r *http.Request, fileID int64) {
	var body struct {
		OtherFileID  int64 `json:"otherFileId"`
		SubmissionID int64 `json:"submissionId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if body.OtherFileID == 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "otherFileId is required", nil)
		return
	}
	if err := s.service.LinkVariants(r.Context(), fileID, body.OtherFileID, body.SubmissionID); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"linked": []int64{fileID, body.OtherFileID}})
}

func (s *HTTPServer) handleUnlinkVariants(w http.ResponseWriter, r *http.Request, fileID int64) {
	f, err := s.service.Get(r.Context(), fileID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	affected, err := s.service.UnlinkVariants(r.Context(), fileID, f.SubmissionID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unlinked": affected})
}

func (s *HTTPServer) handleGrantReviewerFile(w http.ResponseWriter, r *http.Request, reviewID int64) {
	var body struct {
		SubmissionFileID int64 `json:"submissionFileId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if body.SubmissionFileID == 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "submissionFileId is required", nil)
		return
	}
	if err := s.service.GrantReviewerAccess(r.Context(), reviewID, body.SubmissionFileID); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"granted": body.SubmissionFileID})
}

func (s *HTTPServer) handleAssignedStages(w http.ResponseWriter, r *http.Request, submissionID int64) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "userId must be an integer", nil)
		return
	}
	action := filestage.ActionRead
	if raw := r.URL.Query().Get("action"); raw == string(filestage.ActionWrite) {
		action = filestage.ActionWrite
	}

	stages, err := s.service.AssignedFileStages(r.Context(), submissionID, userID, action)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	out := make([]string, 0, len(stages))
	for stage := range stages {
		out = append(out, string(stage))
	}
	writeJSON(w, http.StatusOK, map[string]any{"fileStages": out})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search not configured", nil)
		return
	}

	query := search.Query{Text: strings.TrimSpace(r.URL.Query().Get("q"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("submissionId")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "submissionId must be an integer", nil)
			return
		}
		query.SubmissionID = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		query.Limit = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		query.Offset = parsed
	}

	writeJSON(w, http.StatusOK, s.searcher.Search(query))
}

func stageParams(raw string) ([]filestage.Stage, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false, nil
	}
	var stages []filestage.Stage
	for _, part := range strings.Split(raw, ",") {
		stage := filestage.Stage(strings.TrimSpace(part))
		if !filestage.Known(stage) {
			return nil, false, fmt.Errorf("unrecognized file stage %q", stage)
		}
		stages = append(stages, stage)
	}
	return stages, true, nil
}

func idParams(raw string) ([]int64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, false, err
		}
		ids = append(ids, id)
	}
	return ids, true, nil
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
