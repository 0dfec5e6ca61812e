package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/medreport/analyzer/internal/models"
	"github.com/medreport/analyzer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, logs *bytes.Buffer) (*echo.Echo, *testutil.FakeAnalyzer) {
	t.Helper()
	mgr, fake := newTestSessionManager(t)

	e := echo.New()
	SetupMiddleware(e, MiddlewareConfig{
		Logger:         slog.New(slog.NewJSONHandler(logs, nil)),
		RequestLogging: true,
		BodyLimit:      "8M",
		EnableCORS:     true,
		AllowOrigins:   SplitOrigins("*"),
	})
	RegisterRoutes(e, NewHandlers(&Dependencies{SessionMgr: mgr, Version: "test"}))
	return e, fake
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_AnalysisFlow(t *testing.T) {
	var logs bytes.Buffer
	e, fake := newTestServer(t, &logs)

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.AnalysisSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	base := "/api/sessions/" + created.ID

	body, formType := multipartFile(t, "file", "labs.pdf", "application/pdf", testutil.PDFBytes())
	req := httptest.NewRequest(http.MethodPost, base+"/file", body)
	req.Header.Set(echo.HeaderContentType, formType)
	rec = serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodPost, base+"/analyze", nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var sess models.AnalysisSession
	require.Eventually(t, func() bool {
		rec := serve(e, httptest.NewRequest(http.MethodGet, base, nil))
		if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &sess) != nil {
			return false
		}
		return sess.Status == models.SessionStatusComplete
	}, 2*time.Second, 10*time.Millisecond)

	require.NotNil(t, sess.Result)
	assert.Equal(t, analysisText, sess.Result.Text)
	assert.Contains(t, sess.Result.HTML, "<br><br><strong>Document Type</strong>")
	assert.Equal(t, models.VerificationVerified, sess.Result.Verification.Status)
	assert.Equal(t, "green", sess.Result.Verification.Color)
	assert.Equal(t, 1, fake.Calls())

	rec = serve(e, httptest.NewRequest(http.MethodDelete, base, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Mutating requests are logged; polling is not.
	assert.Contains(t, logs.String(), `"uri":"/api/sessions"`)
	assert.NotContains(t, logs.String(), `"method":"GET"`)
}

func TestRoutes_ErrorBodies(t *testing.T) {
	var logs bytes.Buffer
	e, _ := newTestServer(t, &logs)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "session not found: nope", apiErr.Message)
}

func TestRoutes_OversizedUploadClearsSlot(t *testing.T) {
	var logs bytes.Buffer
	e, _ := newTestServer(t, &logs)

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.AnalysisSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	base := "/api/sessions/" + created.ID

	upload := func(name, contentType string, data []byte) *httptest.ResponseRecorder {
		body, formType := multipartFile(t, "file", name, contentType, data)
		req := httptest.NewRequest(http.MethodPost, base+"/file", body)
		req.Header.Set(echo.HeaderContentType, formType)
		return serve(e, req)
	}

	rec = upload("labs.pdf", "application/pdf", testutil.PDFBytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// 9 MiB is past the server body limit as well as the file limit.
	big := make([]byte, 9<<20)
	copy(big, testutil.PNGBytes())
	rec = upload("huge.png", "image/png", big)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, "too large", apiErr.Message)
	assert.Contains(t, apiErr.Details, "9437184")

	rec = serve(e, httptest.NewRequest(http.MethodGet, base, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sess models.AnalysisSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Nil(t, sess.File)
	assert.False(t, sess.PreviewReady)
}

func TestRoutes_BodyLimitOutsideUploads(t *testing.T) {
	var logs bytes.Buffer
	e, _ := newTestServer(t, &logs)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(make([]byte, 9<<20)))
	rec := serve(e, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRoutes_Health(t *testing.T) {
	var logs bytes.Buffer
	e, _ := newTestServer(t, &logs)

	serve(e, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.EqualValues(t, 1, body["sessions"])
	assert.NotContains(t, logs.String(), "/api/health")
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, SplitOrigins(" http://a, ,http://b "))
	assert.Nil(t, SplitOrigins(""))
}
