package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialmerge/internal/dataprocessing"
	apierrors "trialmerge/internal/errors"
	"trialmerge/internal/services"
	"trialmerge/internal/shared/testutil"
)

const (
	trialA = testutil.TrialWithCounts
	trialB = testutil.TrialWithoutCounts
)

type upload struct {
	name, body string
}

func multipartBody(t *testing.T, field string, uploads ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, u := range uploads {
		part, err := mw.CreateFormFile(field, u.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, u.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestRouter(t *testing.T, maxBytes int64) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	asm, err := dataprocessing.NewAssembler(logger, nil)
	require.NoError(t, err)
	svc := services.NewMergeService(asm, t.TempDir(), logger)
	h := NewMergeHandler(svc, maxBytes, logger, apierrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Mount("/api/merge", h.Routes())
	return r
}

func doMerge(t *testing.T, router http.Handler, query string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/merge"+query, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMergeHandler_JSON(t *testing.T) {
	router := newTestRouter(t, 1<<20)
	body, ct := multipartBody(t, UploadField, upload{"a.csv", trialA}, upload{"b.csv", trialB})

	rec := doMerge(t, router, "?summary=true", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MergeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Rows, 3)
	assert.Equal(t, []string{"Count 1", "Count 2"}, resp.CountColumns)
	assert.Equal(t, 2, resp.FilesParsed)
	assert.Equal(t, "Count 2", resp.Columns[len(resp.Columns)-1])
	assert.Equal(t, "checked twice", resp.Rows[0]["Notes"])
	assert.Equal(t, 10.5, resp.Rows[0]["Total_Seconds_Per_Round"])
	assert.Equal(t, 3.0, resp.Rows[0]["Count 1"])
	assert.Equal(t, "Gadget", resp.Rows[2]["Item"])

	require.NotNil(t, resp.Summary)
	assert.Equal(t, 3, resp.Summary.Rows)
	assert.Equal(t, []string{"Gadget", "Widget"}, resp.Summary.Items)
}

func TestMergeHandler_JSONFillsMissingCounts(t *testing.T) {
	router := newTestRouter(t, 1<<20)
	body, ct := multipartBody(t, UploadField, upload{"a.csv", trialA}, upload{"b.csv", trialB})

	rec := doMerge(t, router, "", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MergeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 3)

	gadget := resp.Rows[2]
	assert.Equal(t, "Gadget", gadget["Item"])
	assert.Len(t, gadget, len(resp.Columns))
	assert.Equal(t, 0.0, gadget["Count 1"])
	assert.Equal(t, 0.0, gadget["Count 2"])
	assert.Nil(t, gadget["Accuracy for Round"])
	assert.NotContains(t, gadget, "Count 3")
	assert.NotContains(t, gadget, "counts")
}

func TestMergeHandler_CSV(t *testing.T) {
	router := newTestRouter(t, 1<<20)
	body, ct := multipartBody(t, UploadField, upload{"b.csv", trialB})

	rec := doMerge(t, router, "?format=csv&bom=true", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	out := rec.Body.String()
	assert.True(t, strings.HasPrefix(out, "\ufeffItem,System_Type,Round"))
	assert.Contains(t, out, "Gadget,Manual,1,0,20,0,20,0,")
}

func TestMergeHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		field      string
		uploads    []upload
		maxBytes   int64
		wantStatus int
		wantCode   string
	}{
		{
			name:       "bad format",
			query:      "?format=xml",
			field:      UploadField,
			uploads:    []upload{{"b.csv", trialB}},
			maxBytes:   1 << 20,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "bad summary flag",
			query:      "?summary=maybe",
			field:      UploadField,
			uploads:    []upload{{"b.csv", trialB}},
			maxBytes:   1 << 20,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "wrong field",
			field:      "attachments",
			uploads:    []upload{{"b.csv", trialB}},
			maxBytes:   1 << 20,
			wantStatus: http.StatusBadRequest,
			wantCode:   "NO_FILES",
		},
		{
			name:       "nothing parseable",
			field:      UploadField,
			uploads:    []upload{{"x.csv", "Item,X\nno rounds"}, {"y.csv", "Round,Min\n1,2"}},
			maxBytes:   1 << 20,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "NOTHING_MERGED",
		},
		{
			name:       "too large",
			field:      UploadField,
			uploads:    []upload{{"b.csv", strings.Repeat(trialB+"\n", 200)}},
			maxBytes:   512,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "PAYLOAD_TOO_LARGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.maxBytes)
			body, ct := multipartBody(t, tt.field, tt.uploads...)

			rec := doMerge(t, router, tt.query, body, ct)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantCode, problem["error_code"])
			assert.Equal(t, "/api/merge", problem["instance"])
		})
	}
}

func TestMergeHandler_NothingMergedListsFailures(t *testing.T) {
	router := newTestRouter(t, 1<<20)
	body, ct := multipartBody(t, UploadField, upload{"x.csv", testutil.TrialMissingHeader})

	rec := doMerge(t, router, "", body, ct)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var problem struct {
		Details []struct {
			Source string `json:"source"`
			Kind   string `json:"kind"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Len(t, problem.Details, 1)
	assert.Equal(t, "x.csv", problem.Details[0].Source)
	assert.Equal(t, "MISSING_HEADER", problem.Details[0].Kind)
}

func TestMergeHandler_RejectsJSONBody(t *testing.T) {
	router := newTestRouter(t, 1<<20)
	rec := doMerge(t, router, "", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
