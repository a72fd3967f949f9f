package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/smcen/registrar/internal/application/command"
	"github.com/smcen/registrar/internal/application/query"
	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/student"
	"github.com/smcen/registrar/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "SMCEN Registrar API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":      "/health",
			"register":    "POST /api/v1/students",
			"enroll":      "POST /api/v1/enrollments",
			"admin":       "/api/v1/admin",
			"transcripts": "/api/v1/admin/transcripts",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, r, http.StatusOK, status)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": s.config.Version,
	})
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// PUBLIC FORMS
// ══════════════════════════════════════════════════════════════════════════════

// handleRegisterStudent handles POST /api/v1/students
func (s *Server) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req registerStudentRequest
	if !s.decodeInto(w, r, &req) {
		return
	}

	result, err := s.deps.RegisterStudent.Handle(r.Context(), req.toCommand())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, result.Record)
}

// handleEnrollSemester handles POST /api/v1/enrollments
func (s *Server) handleEnrollSemester(w http.ResponseWriter, r *http.Request) {
	var req enrollSemesterRequest
	if !s.decodeInto(w, r, &req) {
		return
	}

	result, err := s.deps.EnrollSemester.Handle(r.Context(), req.toCommand())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, result.Enrollment)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN: RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// handleListStudents handles GET /api/v1/admin/students
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	q := query.ListStudentsQuery{
		Offset: getQueryParamInt(r, "offset", 0),
		Limit:  getQueryParamInt(r, "limit", 100),
	}

	result, err := s.deps.ListStudents.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	meta := &ResponseMeta{
		TotalCount: result.Total,
		Offset:     result.Offset,
		Limit:      result.Limit,
		HasMore:    result.Offset+len(result.Students) < result.Total,
	}
	writeJSONWithMeta(w, r, http.StatusOK, result.Students, meta)
}

// handleGetStudent handles GET /api/v1/admin/students/{id}
func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetStudent.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// gradesResponse reports a recomputation.
type gradesResponse struct {
	Record   *student.Record  `json:"record"`
	Applied  []string         `json:"applied"`
	Rejected []rejectionEntry `json:"rejected,omitempty"`
}

type rejectionEntry struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// handleRecomputeGrades handles PUT /api/v1/admin/students/{id}/grades
func (s *Server) handleRecomputeGrades(w http.ResponseWriter, r *http.Request) {
	var req updateGradesRequest
	if !s.decodeInto(w, r, &req) {
		return
	}

	updates, duplicates := req.toUpdates()
	result, err := s.deps.RecomputeGrades.Handle(r.Context(), command.RecomputeGradesCommand{
		StudentID: r.PathValue("id"),
		Updates:   updates,
		Rejected:  duplicates,
	})
	if err != nil {
		if result != nil && len(result.Rejected) > 0 && errors.Is(err, shared.ErrNoApplicableUpdates) {
			fields := make(map[string]string, len(result.Rejected))
			for _, rej := range result.Rejected {
				fields["grades."+rej.Code] = rej.Reason
			}
			writeValidationError(w, r, fields)
			return
		}
		s.writeError(w, r, err)
		return
	}

	resp := gradesResponse{Record: result.Record, Applied: result.Applied}
	for _, rej := range result.Rejected {
		resp.Rejected = append(resp.Rejected, rejectionEntry{Code: rej.Code, Reason: rej.Reason})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN: DOCUMENTS AND EXPORTS
// ══════════════════════════════════════════════════════════════════════════════

// handleRenderTranscript handles GET /api/v1/admin/students/{id}/transcript
func (s *Server) handleRenderTranscript(w http.ResponseWriter, r *http.Request) {
	file, err := s.deps.RenderTranscript.Handle(r.Context(), query.RenderTranscriptQuery{
		StudentID: r.PathValue("id"),
		Semester:  r.URL.Query().Get("semester"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	setAttachment(w, file.ContentType, file.FileName)
	w.Header().Set("Content-Length", fmt.Sprint(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// handleExportTranscripts handles GET /api/v1/admin/transcripts
func (s *Server) handleExportTranscripts(w http.ResponseWriter, r *http.Request) {
	sel, err := grading.ParseSelector(r.URL.Query().Get("semester"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := newAttachmentWriter(w, "application/zip", "transcripts"+sel.FileSuffix()+".zip")
	result, err := s.deps.ExportTranscripts.Handle(r.Context(), query.ExportTranscriptsQuery{
		StudentIDs: splitIDs(r.URL.Query().Get("ids")),
		Semester:   string(sel),
	}, out)
	if err != nil {
		s.abortOrWriteError(w, r, out, err)
		return
	}
	out.finish()

	logger.FromContext(r.Context()).Info("transcript archive served",
		logger.Count("written", result.Written),
		logger.Count("failed", len(result.Failures)),
	)
}

// handleExportStudentsCSV handles GET /api/v1/admin/exports/students.csv
func (s *Server) handleExportStudentsCSV(w http.ResponseWriter, r *http.Request) {
	out := newAttachmentWriter(w, "text/csv; charset=utf-8", "students.csv")
	if _, err := s.deps.ExportStudentsCSV.Handle(r.Context(), out); err != nil {
		s.abortOrWriteError(w, r, out, err)
		return
	}
	out.finish()
}

// handleExportEnrollmentsCSV handles GET /api/v1/admin/exports/enrollments.csv
func (s *Server) handleExportEnrollmentsCSV(w http.ResponseWriter, r *http.Request) {
	semester := r.URL.Query().Get("semester")
	sel, err := grading.ParseSelector(semester)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := newAttachmentWriter(w, "text/csv; charset=utf-8", "enrollments"+sel.FileSuffix()+".csv")
	if _, err := s.deps.ExportEnrollmentsCSV.Handle(r.Context(), semester, out); err != nil {
		s.abortOrWriteError(w, r, out, err)
		return
	}
	out.finish()
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeError maps an application error onto a status code and envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fields *shared.ValidationErrors
	switch {
	case errors.As(err, &fields):
		writeValidationError(w, r, fields.Fields)
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", domainMessage(err, "Not found"))
	case shared.IsAlreadyExists(err):
		writeJSONError(w, r, http.StatusConflict, "already_exists", domainMessage(err, "Already exists"))
	case shared.IsValidation(err):
		writeJSONError(w, r, http.StatusBadRequest, "invalid_input", domainMessage(err, "Invalid input"))
	case errors.Is(err, shared.ErrUnauthorized):
		writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
	case errors.Is(err, shared.ErrForbidden):
		writeJSONError(w, r, http.StatusForbidden, "forbidden", "Not allowed")
	case errors.Is(err, shared.ErrTimeout):
		s.logRequestError(r, "request timed out", err)
		writeJSONError(w, r, http.StatusGatewayTimeout, "timeout", "The operation took too long")
	case errors.Is(err, shared.ErrCanceled):
		writeJSONError(w, r, http.StatusRequestTimeout, "canceled", "The request was canceled")
	case shared.IsRendering(err):
		s.logRequestError(r, "document rendering failed", err)
		writeJSONError(w, r, http.StatusInternalServerError, "rendering_failed", "The document could not be produced")
	default:
		s.logRequestError(r, "request failed", err)
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// abortOrWriteError reports err as JSON when nothing was streamed yet.
// Otherwise the connection is dropped so the client never keeps a
// truncated file.
func (s *Server) abortOrWriteError(w http.ResponseWriter, r *http.Request, out *attachmentWriter, err error) {
	if !out.started {
		out.discard()
		s.writeError(w, r, err)
		return
	}
	s.logRequestError(r, "stream aborted", err)
	panic(http.ErrAbortHandler)
}

func (s *Server) logRequestError(r *http.Request, msg string, err error) {
	logger.FromContext(r.Context()).Error(msg,
		logger.String("path", r.URL.Path),
		logger.Err(err),
	)
}

// domainMessage returns the human part of a DomainError.
func domainMessage(err error, fallback string) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeInto decodes and validates a body, writing the 400 itself when it
// fails.
func (s *Server) decodeInto(w http.ResponseWriter, r *http.Request, dst any) bool {
	fields, err := s.validate.decode(r, dst)
	switch {
	case err != nil && errors.Is(err, errMalformedBody):
		writeJSONError(w, r, http.StatusBadRequest, "malformed_body", err.Error())
		return false
	case err != nil:
		s.writeError(w, r, err)
		return false
	case len(fields) > 0:
		writeValidationError(w, r, fields)
		return false
	}
	return true
}

func splitIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setAttachment(w http.ResponseWriter, contentType, fileName string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
}

// attachmentWriter sends the download headers on the first write, so an
// error raised before any output can still become a JSON response.
type attachmentWriter struct {
	w           http.ResponseWriter
	contentType string
	fileName    string
	started     bool
	discarded   bool
}

var _ io.Writer = (*attachmentWriter)(nil)

func newAttachmentWriter(w http.ResponseWriter, contentType, fileName string) *attachmentWriter {
	return &attachmentWriter{w: w, contentType: contentType, fileName: fileName}
}

func (a *attachmentWriter) Write(p []byte) (int, error) {
	if a.discarded {
		return 0, errors.New("attachment discarded")
	}
	if !a.started {
		a.started = true
		setAttachment(a.w, a.contentType, a.fileName)
		a.w.WriteHeader(http.StatusOK)
	}
	return a.w.Write(p)
}

// finish sends the headers of an empty download.
func (a *attachmentWriter) finish() {
	if !a.started && !a.discarded {
		_, _ = a.Write(nil)
	}
}

func (a *attachmentWriter) discard() {
	a.discarded = true
}
