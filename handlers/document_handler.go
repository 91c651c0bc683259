package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/upb/waqf-policy-engine/middleware"
	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/repositories"
	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/services/documents"
	"github.com/upb/waqf-policy-engine/utils"
	"go.uber.org/zap"
)

const maxDocumentBytes = 1 << 20

// Assertion operations accepted by the dry-run endpoint
const (
	AssertOperationWrite  = "write"
	AssertOperationDelete = "delete"
)

// DocumentService is the guarded write pipeline the handler drives
type DocumentService interface {
	Governs(collection string) bool
	Get(ctx context.Context, collection, key string) (*models.Document, error)
	List(ctx context.Context, collection string, filter repositories.ListFilter) ([]*models.Document, error)
	Write(ctx context.Context, in documents.WriteInput) (*models.Document, error)
	Delete(ctx context.Context, in documents.DeleteInput) error
	AssertWrite(ctx context.Context, in documents.WriteInput) error
	AssertDelete(ctx context.Context, in documents.DeleteInput) error
}

// AssertRequest is the body of a dry-run assertion
type AssertRequest struct {
	Key       string          `json:"key" validate:"required,identifier"`
	Operation string          `json:"operation" validate:"omitempty,oneof=write delete"`
	Data      json.RawMessage `json:"data,omitempty"`
	Version   int64           `json:"version" validate:"gte=0"`
}

// AssertResponse reports the outcome of a dry run
type AssertResponse struct {
	Allowed    bool                 `json:"allowed"`
	Error      string               `json:"error,omitempty"`
	Violations []services.Violation `json:"violations,omitempty"`
}

// ListResponse wraps a collection listing
type ListResponse struct {
	Documents []*models.Document `json:"documents"`
	Count     int                `json:"count"`
}

// DocumentHandler exposes governed collections over HTTP
type DocumentHandler struct {
	docs   DocumentService
	logger *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(docs DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		docs:   docs,
		logger: logger,
	}
}

// HandlePut handles PUT /api/v1/collections/{collection}/documents/{key}
// The request body is the document data. If-Match carries the expected version.
func (h *DocumentHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	collection, key, ok := h.target(w, r, true)
	if !ok {
		return
	}
	version, err := expectedVersion(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	data, err := readBody(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	stored, err := h.docs.Write(r.Context(), documents.WriteInput{
		Collection: collection,
		Key:        key,
		Data:       data,
		Version:    version,
		Caller:     middleware.CallerFromContext(r.Context()),
		Headers:    forwardedHeaders(r),
	})
	if stored != nil {
		setETag(w, stored.Version)
	}
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if stored.Version == 1 {
		_ = utils.WriteCreated(w, stored)
		return
	}
	_ = utils.WriteOK(w, stored)
}

// HandleDelete handles DELETE /api/v1/collections/{collection}/documents/{key}
func (h *DocumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	collection, key, ok := h.target(w, r, true)
	if !ok {
		return
	}
	version, err := expectedVersion(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	err = h.docs.Delete(r.Context(), documents.DeleteInput{
		Collection: collection,
		Key:        key,
		Version:    version,
		Caller:     middleware.CallerFromContext(r.Context()),
		Headers:    forwardedHeaders(r),
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleGet handles GET /api/v1/collections/{collection}/documents/{key}
func (h *DocumentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	collection, key, ok := h.target(w, r, true)
	if !ok {
		return
	}

	doc, err := h.docs.Get(r.Context(), collection, key)
	if err != nil {
		HandleServiceError(w, services.WrapStoreError("get "+collection, err), h.logger)
		return
	}
	setETag(w, doc.Version)
	_ = utils.WriteOK(w, doc)
}

// HandleList handles GET /api/v1/collections/{collection}/documents
// Every query parameter is an equality filter on a top-level field.
func (h *DocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	collection, _, ok := h.target(w, r, false)
	if !ok {
		return
	}

	var filter repositories.ListFilter
	query := r.URL.Query()
	fields := make([]string, 0, len(query))
	for field := range query {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		filter = filter.And(field, query.Get(field))
	}

	docs, err := h.docs.List(r.Context(), collection, filter)
	if err != nil {
		HandleServiceError(w, services.WrapStoreError("list "+collection, err), h.logger)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	_ = utils.WriteOK(w, ListResponse{Documents: docs, Count: len(docs)})
}

// HandleAssert handles POST /api/v1/assert/{collection}
// It runs the checks of a write or delete without committing. Policy
// rejections are reported in the body with a 200 status.
func (h *DocumentHandler) HandleAssert(w http.ResponseWriter, r *http.Request) {
	collection, _, ok := h.target(w, r, false)
	if !ok {
		return
	}

	var req AssertRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentBytes)).Decode(&req); err != nil {
		HandleValidationError(w, fmt.Errorf("invalid request body: %w", err), h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	caller := middleware.CallerFromContext(r.Context())
	var err error
	if req.Operation == AssertOperationDelete {
		err = h.docs.AssertDelete(r.Context(), documents.DeleteInput{
			Collection: collection,
			Key:        req.Key,
			Version:    req.Version,
			Caller:     caller,
			Headers:    forwardedHeaders(r),
		})
	} else {
		err = h.docs.AssertWrite(r.Context(), documents.WriteInput{
			Collection: collection,
			Key:        req.Key,
			Data:       req.Data,
			Version:    req.Version,
			Caller:     caller,
			Headers:    forwardedHeaders(r),
		})
	}

	switch {
	case err == nil:
		_ = utils.WriteOK(w, AssertResponse{Allowed: true})
	case services.IsPolicyRejection(err):
		_ = utils.WriteOK(w, AssertResponse{
			Allowed:    false,
			Error:      string(services.GetErrorType(err)),
			Violations: violationsOf(err),
		})
	default:
		HandleServiceError(w, err, h.logger)
	}
}

// target resolves and checks the collection and, when withKey is set, the key
func (h *DocumentHandler) target(w http.ResponseWriter, r *http.Request, withKey bool) (string, string, bool) {
	collection := chi.URLParam(r, "collection")
	if err := utils.ValidateIdentifier(collection, "collection"); err != nil {
		HandleValidationError(w, err, h.logger)
		return "", "", false
	}
	if !h.docs.Governs(collection) {
		_ = utils.WriteNotFound(w, fmt.Sprintf("collection %s is not governed", collection))
		return "", "", false
	}

	var key string
	if withKey {
		key = chi.URLParam(r, "key")
		if err := utils.ValidateIdentifier(key, "key"); err != nil {
			HandleValidationError(w, err, h.logger)
			return "", "", false
		}
	}
	return collection, key, true
}

func readBody(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentBytes)
		}
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return json.RawMessage(body), nil
}

// expectedVersion parses If-Match. Both "3" and 3 are accepted; absent means
// no version check.
func expectedVersion(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" || raw == "*" {
		return 0, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	version, err := strconv.ParseInt(strings.Trim(raw, `"`), 10, 64)
	if err != nil || version < 0 {
		return 0, fmt.Errorf("If-Match must be a document version")
	}
	return version, nil
}

func setETag(w http.ResponseWriter, version int64) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(version, 10)))
}

// forwardedHeaders returns the request headers assertions may inspect
func forwardedHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string)
	if ua := r.UserAgent(); ua != "" {
		headers["user-agent"] = ua
	}
	if id := middleware.GetRequestIDFromContext(r.Context()); id != "" {
		headers["x-request-id"] = id
	}
	return headers
}
