package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-progression-engine/internal/application/command"
	"github.com/dojo-hub/dojo-progression-engine/internal/application/query"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/badge"
	"github.com/dojo-hub/dojo-progression-engine/internal/infrastructure/memory"
)

func newTestServer(t *testing.T, apiKeys ...string) *Server {
	t.Helper()

	catalog := badge.DefaultCatalog()
	require.NoError(t, catalog.Validate())

	ledgerRepo := memory.NewLedgerRepository()
	awardRepo := memory.NewAwardRepository()
	enrollmentRepo := memory.NewEnrollmentRepository()

	profileQ := query.NewGetProfileHandler(ledgerRepo, awardRepo, catalog, nil, query.DefaultGetProfileHandlerConfig())

	cfg := DefaultConfig()
	cfg.APIKeys = apiKeys

	return NewServer(cfg, Dependencies{
		RecordPointEvent:   command.NewRecordPointEventHandler(ledgerRepo, nil, nil),
		SyncEnrollment:     command.NewSyncEnrollmentHandler(enrollmentRepo),
		GetProfile:         profileQ,
		GetPointsHistory:   query.NewGetPointsHistoryHandler(ledgerRepo),
		GetStudentBadges:   query.NewGetStudentBadgesHandler(awardRepo, catalog),
		GetSubjectRanking:  query.NewGetSubjectRankingHandler(ledgerRepo, enrollmentRepo),
		GetTopPerformers:   query.NewGetTopPerformersHandler(ledgerRepo, enrollmentRepo),
		GetStudentPosition: query.NewGetStudentPositionHandler(ledgerRepo, enrollmentRepo),
		CheckUnlock:        query.NewCheckUnlockHandler(profileQ),
	})
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func eventBody(studentID string, points int, sourceRef string) string {
	return fmt.Sprintf(`{"student_id":%q,"subject_id":"math","points":%d,"reason":"exercise_completed","source_ref":%q}`,
		studentID, points, sourceRef)
}

func TestServer_RecordPointEvent(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/events", eventBody("student-1", 250, "ex-1"))

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "student-1", data["student_id"])
	assert.Equal(t, float64(250), data["total_points"])
	assert.Equal(t, "yellow", data["belt"])
	assert.Equal(t, true, data["belt_changed"])
}

func TestServer_RecordPointEvent_DuplicateSourceRef(t *testing.T) {
	s := newTestServer(t)

	first := doRequest(s, http.MethodPost, "/api/v1/events", eventBody("student-1", 50, "ex-1"))
	require.Equal(t, http.StatusCreated, first.Code)

	second := doRequest(s, http.MethodPost, "/api/v1/events", eventBody("student-1", 50, "ex-1"))
	require.Equal(t, http.StatusConflict, second.Code)

	resp := decodeResponse(t, second)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "duplicate_source", resp.Error.Code)
}

func TestServer_RecordPointEvent_ValidationFailure(t *testing.T) {
	s := newTestServer(t)

	body := `{"student_id":"student-1","points":0,"reason":"exercise_completed","source_ref":"ex-1"}`
	rec := doRequest(s, http.MethodPost, "/api/v1/events", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_failed", resp.Error.Code)
}

func TestServer_RecordPointEvent_RejectsUnknownFields(t *testing.T) {
	s := newTestServer(t)

	body := `{"student_id":"student-1","points":10,"reason":"exercise_completed","source_ref":"ex-1","bonus":true}`
	rec := doRequest(s, http.MethodPost, "/api/v1/events", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_WriteEndpointsRequireAPIKey(t *testing.T) {
	s := newTestServer(t, "secret-key")

	unauthenticated := doRequest(s, http.MethodPost, "/api/v1/events", eventBody("student-1", 10, "ex-1"))
	assert.Equal(t, http.StatusUnauthorized, unauthenticated.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(eventBody("student-1", 10, "ex-1")))
	req.Header.Set("X-API-Key", "secret-key")
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Reads stay open even when keys are configured.
	read := doRequest(s, http.MethodGet, "/api/v1/students/student-1/profile", "")
	assert.Equal(t, http.StatusOK, read.Code)
}

func TestServer_GetProfile(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusCreated,
		doRequest(s, http.MethodPost, "/api/v1/events", eventBody("student-1", 150, "ex-1")).Code)

	rec := doRequest(s, http.MethodGet, "/api/v1/students/student-1/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, float64(150), data["total_points"])
	assert.Equal(t, "white", data["current_belt"])
}

func TestServer_GetProfile_UnknownStudentIsZeroProfile(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/students/ghost/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, float64(0), data["total_points"])
	assert.Equal(t, "white", data["current_belt"])
}

func TestServer_SubjectRanking(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusNoContent,
		doRequest(s, http.MethodPost, "/api/v1/enrollments", `{"subject_id":"math","student_id":"a"}`).Code)
	require.Equal(t, http.StatusNoContent,
		doRequest(s, http.MethodPost, "/api/v1/enrollments", `{"subject_id":"math","student_id":"b"}`).Code)

	doRequest(s, http.MethodPost, "/api/v1/events", eventBody("a", 100, "ex-a"))
	doRequest(s, http.MethodPost, "/api/v1/events", eventBody("b", 300, "ex-b"))

	rec := doRequest(s, http.MethodGet, "/api/v1/subjects/math/ranking", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	entries := data["entries"].([]interface{})
	require.Len(t, entries, 2)

	top := entries[0].(map[string]interface{})
	assert.Equal(t, "b", top["student_id"])
	assert.Equal(t, float64(1), top["position"])
}

func TestServer_SubjectRanking_InvalidWindow(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/subjects/math/ranking?from=2026-03-10&to=2026-03-01", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_window", resp.Error.Code)
}

func TestServer_SubjectRanking_MalformedWindowBound(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/subjects/math/ranking?from=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_StudentPosition_NotEnrolled(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusNoContent,
		doRequest(s, http.MethodPost, "/api/v1/enrollments", `{"subject_id":"math","student_id":"a"}`).Code)

	rec := doRequest(s, http.MethodGet, "/api/v1/subjects/math/students/outsider/position", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_enrolled", resp.Error.Code)
}

func TestServer_CheckUnlock(t *testing.T) {
	s := newTestServer(t)

	doRequest(s, http.MethodPost, "/api/v1/events", eventBody("student-1", 250, "ex-1"))

	rec := doRequest(s, http.MethodGet, "/api/v1/students/student-1/unlock?required_belt=yellow&required_points=200", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, true, data["unlocked"])

	locked := doRequest(s, http.MethodGet, "/api/v1/students/student-1/unlock?required_belt=black", "")
	lockedData := decodeResponse(t, locked).Data.(map[string]interface{})
	assert.Equal(t, false, lockedData["unlocked"])
}

func TestServer_HealthAndLiveness(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/live", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(s, http.MethodGet, "/no/such/route", "").Code)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"))
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:4321"
	assert.Equal(t, "192.168.1.1", getClientIP(req))
}
