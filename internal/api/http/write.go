package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/meridiandb/meridian/internal/catalog"
	"github.com/meridiandb/meridian/internal/dml"
	"github.com/meridiandb/meridian/internal/router"
	"github.com/meridiandb/meridian/pkg/types"
)

// writePathPrefix is the route prefix; the namespace name follows it.
const writePathPrefix = "/api/v2/write/"

// WriteRequest is the wire shape of a write: table name to rows.
type WriteRequest struct {
	Tables map[string][]types.Row `json:"tables"`
}

// WriteResponse is returned on a fully successful write.
type WriteResponse struct {
	RowCount  int    `json:"row_count"`
	RequestID string `json:"request_id"`
}

// WriteHandler handles POST /api/v1/write/{namespace} requests.
type WriteHandler struct {
	pipeline    router.Pipeline
	maxBodySize int64
}

// NewWriteHandler creates the write endpoint over the given pipeline.
func NewWriteHandler(pipeline router.Pipeline, maxBodySize int64) *WriteHandler {
	return &WriteHandler{pipeline: pipeline, maxBodySize: maxBodySize}
}

// ServeHTTP decodes the write, feeds the pipeline, and maps the error
// taxonomy to a status code.
func (h *WriteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	namespace := strings.TrimPrefix(r.URL.Path, writePathPrefix)
	if namespace == "" || strings.Contains(namespace, "/") {
		writeError(w, http.StatusBadRequest, "namespace is required", requestID)
		return
	}

	var body WriteRequest
	reader := http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(reader).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}
	if len(body.Tables) == 0 {
		writeError(w, http.StatusBadRequest, "tables must not be empty", requestID)
		return
	}
	for table, rows := range body.Tables {
		if len(rows) == 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("table %q has no rows", table), requestID)
			return
		}
	}

	req := &types.WriteRequest{Namespace: namespace, Tables: body.Tables}
	if err := h.pipeline.Route(r.Context(), req); err != nil {
		status, message := mapPipelineError(err)
		writeError(w, status, message, requestID)
		return
	}

	writeJSON(w, http.StatusOK, WriteResponse{
		RowCount:  req.RowCount(),
		RequestID: requestID,
	})
}

// mapPipelineError translates the pipeline's error categories into
// protocol responses without losing which stage or partition failed.
func mapPipelineError(err error) (int, string) {
	var schemaErr *dml.SchemaError
	if errors.As(err, &schemaErr) {
		return http.StatusBadRequest, schemaErr.Error()
	}

	var nsErr *dml.NamespaceError
	if errors.As(err, &nsErr) {
		if errors.Is(err, catalog.ErrNamespaceNotFound) {
			return http.StatusNotFound, nsErr.Error()
		}
		return http.StatusServiceUnavailable, nsErr.Error()
	}

	var fanErr *dml.FanOutError
	if errors.As(err, &fanErr) {
		// Partial success: some partitions are durably published, the
		// named ones are not. The caller decides how to retry.
		return http.StatusInternalServerError, fanErr.Error()
	}

	return http.StatusInternalServerError, err.Error()
}
