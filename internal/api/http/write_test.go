package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridiandb/meridian/internal/catalog"
	"github.com/meridiandb/meridian/internal/dml"
	"github.com/meridiandb/meridian/pkg/types"
)

// pipelineFunc adapts a function to router.Pipeline.
type pipelineFunc func(ctx context.Context, req *types.WriteRequest) error

func (f pipelineFunc) Route(ctx context.Context, req *types.WriteRequest) error {
	return f(ctx, req)
}

func postWrite(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	handler.ServeHTTP(rec, req)
	return rec
}

func validBody() WriteRequest {
	return WriteRequest{
		Tables: map[string][]types.Row{
			"cpu": {
				{
					Timestamp: 1700000000000000000,
					Tags:      map[string]string{"host": "a"},
					Fields:    map[string]interface{}{"usage": 0.5},
				},
			},
		},
	}
}

func TestWriteHandlerSuccess(t *testing.T) {
	var got *types.WriteRequest
	h := NewWriteHandler(pipelineFunc(func(ctx context.Context, req *types.WriteRequest) error {
		got = req
		return nil
	}), 1<<20)

	rec := postWrite(t, h, "/api/v2/write/prod", validBody())

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "prod", got.Namespace)
	assert.Equal(t, 1, got.RowCount())

	var resp WriteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.RowCount)
}

func TestWriteHandlerRejectsMissingNamespace(t *testing.T) {
	h := NewWriteHandler(pipelineFunc(func(ctx context.Context, req *types.WriteRequest) error {
		t.Fatal("pipeline should not be invoked")
		return nil
	}), 1<<20)

	rec := postWrite(t, h, "/api/v2/write/", validBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteHandlerRejectsEmptyTables(t *testing.T) {
	h := NewWriteHandler(pipelineFunc(func(ctx context.Context, req *types.WriteRequest) error {
		t.Fatal("pipeline should not be invoked")
		return nil
	}), 1<<20)

	rec := postWrite(t, h, "/api/v2/write/prod", WriteRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWrite(t, h, "/api/v2/write/prod", WriteRequest{
		Tables: map[string][]types.Row{"cpu": {}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteHandlerRejectsMalformedJSON(t *testing.T) {
	h := NewWriteHandler(pipelineFunc(func(ctx context.Context, req *types.WriteRequest) error {
		return nil
	}), 1<<20)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/write/prod", bytes.NewBufferString("{not json"))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteHandlerMethodNotAllowed(t *testing.T) {
	h := NewWriteHandler(pipelineFunc(func(ctx context.Context, req *types.WriteRequest) error {
		return nil
	}), 1<<20)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v2/write/prod", nil)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWriteHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{
			name: "schema conflict is a client error",
			err: &dml.SchemaError{
				Namespace: "prod", Table: "cpu", Column: "usage",
				Err: catalog.ErrColumnTypeConflict,
			},
			status: http.StatusBadRequest,
		},
		{
			name: "unknown namespace",
			err: &dml.NamespaceError{
				Namespace: "prod",
				Err:       catalog.ErrNamespaceNotFound,
			},
			status: http.StatusNotFound,
		},
		{
			name: "catalog unavailable",
			err: &dml.NamespaceError{
				Namespace: "prod",
				Err:       errors.New("database is locked"),
			},
			status: http.StatusServiceUnavailable,
		},
		{
			name: "partial publish failure",
			err: &dml.FanOutError{
				Total: 2,
				Branches: []*dml.BranchError{
					{Partition: "2024-01-01", Err: errors.New("shard down")},
				},
			},
			status: http.StatusInternalServerError,
		},
		{
			name:   "unclassified failure",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewWriteHandler(pipelineFunc(func(ctx context.Context, req *types.WriteRequest) error {
				return tc.err
			}), 1<<20)

			rec := postWrite(t, h, "/api/v2/write/prod", validBody())
			require.Equal(t, tc.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestWriteHandlerBodyLimit(t *testing.T) {
	h := NewWriteHandler(pipelineFunc(func(ctx context.Context, req *types.WriteRequest) error {
		return nil
	}), 64)

	rec := postWrite(t, h, "/api/v2/write/prod", validBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIDMiddlewarePropagatesHeader(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/write/prod", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	RequestIDMiddleware(inner).ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddlewareGeneratesID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/write/prod", nil)
	RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler bug")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v2/write/prod", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler("meridian-router")(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "meridian-router", resp.Service)
}
