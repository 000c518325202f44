package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/application/command"
	"github.com/dojo-hub/dojo-progression-engine/internal/application/query"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
	"github.com/dojo-hub/dojo-progression-engine/internal/interface/http/handlers"
	"github.com/dojo-hub/dojo-progression-engine/pkg/logger"
	"github.com/dojo-hub/dojo-progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth performs a full health check of all registered dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checker := s.deps.HealthChecker
	if checker == nil {
		checker = handlers.NewNoopHealthChecker()
	}

	status := checker.Check(r.Context())

	httpStatus := http.StatusOK
	if !status.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, status)
}

// handleReady reports whether the server is ready to accept traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.IsRunning() {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Server is not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive is a trivial liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleRoot returns basic service information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Resource not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "dojo-progression-engine",
		"version": "v1",
		"uptime":  s.Uptime().String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// recordPointEventRequest is the request body for POST /api/v1/events.
type recordPointEventRequest struct {
	StudentID  string `json:"student_id"`
	SubjectID  string `json:"subject_id,omitempty"`
	Points     int    `json:"points"`
	Reason     string `json:"reason"`
	SourceRef  string `json:"source_ref"`
	OccurredAt string `json:"occurred_at,omitempty"`
}

// recordPointEventResponse mirrors command.RecordPointEventResult with wire tags.
type recordPointEventResponse struct {
	EventID      string    `json:"event_id"`
	StudentID    string    `json:"student_id"`
	TotalPoints  int       `json:"total_points"`
	Belt         string    `json:"belt"`
	BeltChanged  bool      `json:"belt_changed"`
	PreviousBelt string    `json:"previous_belt,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// handleRecordPointEvent appends a point event to the ledger.
//
// Producers retrying a delivery get 409 with the error code
// "duplicate_source": the original event is already in the ledger and
// nothing was double-counted, so the retry may treat it as success.
func (s *Server) handleRecordPointEvent(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordPointEvent == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Point event recording is not available")
		return
	}

	var req recordPointEventRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	var occurredAt time.Time
	if req.OccurredAt != "" {
		parsed, err := timeutil.ParseWindowBound(req.OccurredAt)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_occurred_at", err.Error())
			return
		}
		occurredAt = parsed
	}

	cmd := command.RecordPointEventCommand{
		StudentID:     req.StudentID,
		SubjectID:     req.SubjectID,
		Points:        req.Points,
		Reason:        ledger.Reason(req.Reason),
		SourceRef:     req.SourceRef,
		OccurredAt:    occurredAt,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.RecordPointEvent.Handle(r.Context(), cmd)
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	if result.BeltChanged {
		s.logger.Info("belt changed",
			logger.StudentID(result.StudentID),
			logger.Belt(string(result.Belt)),
			logger.Points(result.TotalPoints),
		)
	}

	writeJSONWithMeta(w, r, http.StatusCreated, recordPointEventResponse{
		EventID:      result.EventID,
		StudentID:    result.StudentID,
		TotalPoints:  result.TotalPoints,
		Belt:         string(result.Belt),
		BeltChanged:  result.BeltChanged,
		PreviousBelt: string(result.PreviousBelt),
		RecordedAt:   result.RecordedAt,
	}, nil)
}

// syncEnrollmentRequest is the request body for POST /api/v1/enrollments.
type syncEnrollmentRequest struct {
	SubjectID  string `json:"subject_id"`
	StudentID  string `json:"student_id"`
	EnrolledAt string `json:"enrolled_at,omitempty"`
}

// handleSyncEnrollment registers a student as a ranking participant of a
// subject. Re-posting an existing enrollment is a no-op.
func (s *Server) handleSyncEnrollment(w http.ResponseWriter, r *http.Request) {
	if s.deps.SyncEnrollment == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enrollment sync is not available")
		return
	}

	var req syncEnrollmentRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	var enrolledAt time.Time
	if req.EnrolledAt != "" {
		parsed, err := timeutil.ParseWindowBound(req.EnrolledAt)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_enrolled_at", err.Error())
			return
		}
		enrolledAt = parsed
	}

	cmd := command.SyncEnrollmentCommand{
		SubjectID:  req.SubjectID,
		StudentID:  req.StudentID,
		EnrolledAt: enrolledAt,
	}

	if err := s.deps.SyncEnrollment.Handle(r.Context(), cmd); err != nil {
		s.writeCommandError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT READ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProfile returns the aggregated progression profile of a student.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetProfile == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Profile queries are not available")
		return
	}

	q := query.GetProfileQuery{
		StudentID: r.PathValue("id"),
		SkipCache: getQueryParamBool(r, "skip_cache"),
	}

	result, err := s.deps.GetProfile.Handle(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetPointsHistory returns a student's point events, newest first.
func (s *Server) handleGetPointsHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetPointsHistory == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "History queries are not available")
		return
	}

	q := query.GetPointsHistoryQuery{
		StudentID: r.PathValue("id"),
		Limit:     getQueryParamInt(r, "limit", 0),
	}

	result, err := s.deps.GetPointsHistory.Handle(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{
		TotalCount: len(result.Events),
	})
}

// handleGetStudentBadges returns the badge board of a student.
func (s *Server) handleGetStudentBadges(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetStudentBadges == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Badge queries are not available")
		return
	}

	q := query.GetStudentBadgesQuery{
		StudentID:   r.PathValue("id"),
		OnlyAwarded: getQueryParamBool(r, "only_awarded"),
	}

	result, err := s.deps.GetStudentBadges.Handle(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCheckUnlock answers whether a student clears a content gate.
func (s *Server) handleCheckUnlock(w http.ResponseWriter, r *http.Request) {
	if s.deps.CheckUnlock == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Unlock queries are not available")
		return
	}

	q := query.CheckUnlockQuery{
		StudentID:      r.PathValue("id"),
		RequiredBelt:   getQueryParam(r, "required_belt", ""),
		RequiredPoints: getQueryParamInt(r, "required_points", 0),
	}

	result, err := s.deps.CheckUnlock.Handle(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT READ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetSubjectRanking returns a page of a subject leaderboard. The
// optional from/to parameters accept RFC 3339 timestamps or plain dates
// (interpreted at reporting-timezone midnight); both absent means the
// all-time ranking.
func (s *Server) handleGetSubjectRanking(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetSubjectRanking == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Ranking queries are not available")
		return
	}

	windowStart, windowEnd, ok := s.parseWindow(w, r)
	if !ok {
		return
	}

	q := query.GetSubjectRankingQuery{
		SubjectID:   r.PathValue("id"),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Limit:       getQueryParamInt(r, "limit", 0),
		Offset:      getQueryParamInt(r, "offset", 0),
	}

	result, err := s.deps.GetSubjectRanking.Handle(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{
		TotalCount: result.TotalStudents,
		HasMore:    result.HasMore,
	})
}

// handleGetTopPerformers returns the medal podium of a subject.
func (s *Server) handleGetTopPerformers(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetTopPerformers == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Ranking queries are not available")
		return
	}

	windowStart, windowEnd, ok := s.parseWindow(w, r)
	if !ok {
		return
	}

	q := query.GetTopPerformersQuery{
		SubjectID:   r.PathValue("id"),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}

	result, err := s.deps.GetTopPerformers.Handle(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetStudentPosition returns a single student's place in a subject
// leaderboard without materializing the whole board.
func (s *Server) handleGetStudentPosition(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetStudentPosition == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Ranking queries are not available")
		return
	}

	windowStart, windowEnd, ok := s.parseWindow(w, r)
	if !ok {
		return
	}

	q := query.GetStudentPositionQuery{
		SubjectID:   r.PathValue("id"),
		StudentID:   r.PathValue("student_id"),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}

	result, err := s.deps.GetStudentPosition.Handle(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST PARSING & ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSONBody decodes a request body, rejecting unknown fields and
// trailing content.
func decodeJSONBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}

	// Reject bodies with trailing data after the JSON object.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}

	return nil
}

// parseWindow reads the optional from/to ranking window parameters. On a
// parse failure it writes a 400 response and returns ok=false.
func (s *Server) parseWindow(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	if from := r.URL.Query().Get("from"); from != "" {
		parsed, err := timeutil.ParseWindowBound(from)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_from", err.Error())
			return time.Time{}, time.Time{}, false
		}
		start = parsed
	}

	if to := r.URL.Query().Get("to"); to != "" {
		parsed, err := timeutil.ParseWindowBound(to)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_to", err.Error())
			return time.Time{}, time.Time{}, false
		}
		end = parsed
	}

	return start, end, true
}

// writeCommandError maps write-side domain errors to HTTP statuses.
func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsDuplicateSource(err):
		writeJSONError(w, http.StatusConflict, "duplicate_source", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		s.logger.Error("command failed",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// writeQueryError maps read-side domain errors to HTTP statuses.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrNotEnrolled):
		writeJSONError(w, http.StatusNotFound, "not_enrolled", err.Error())
	case errors.Is(err, shared.ErrInvalidWindow):
		writeJSONError(w, http.StatusBadRequest, "invalid_window", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		s.logger.Error("query failed",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
