package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"diploma_generator/generator"
	"diploma_generator/publisher"
)

const maxRequestBody = 1 << 20

type generateResp struct {
	RunID    string `json:"runId"`
	Content  string `json:"content"`
	FilePath string `json:"filePath"`
}

type errorResp struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
	RunID   string   `json:"runId,omitempty"`
	Section string   `json:"section,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generator.GenerationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid request body"})
		return
	}

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{
			Error:   "validation failed",
			Details: validationMessages(err),
		})
		return
	}

	rec, err := s.execute(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		s.logFailure(r, status, rec, err)

		resp := errorResp{Error: publicMessage(status)}
		if rec.Run != nil {
			resp.RunID = rec.Run.ID.String()
			resp.Section = rec.Run.FailedSection
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, generateResp{
		RunID:    rec.Run.ID.String(),
		Content:  rec.Run.Document.Text,
		FilePath: rec.Location,
	})
}

func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRunHTML(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	if rec.Run.State != generator.RunCompleted || rec.Run.Document == nil {
		writeJSON(w, http.StatusConflict, errorResp{Error: "run has no document", RunID: rec.Run.ID.String()})
		return
	}

	page, err := publisher.RenderPage(rec.Run)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "render html failed", "run_id", rec.Run.ID.String(), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: "failed to render document"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (runRecord, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid run id"})
		return runRecord{}, false
	}
	rec, ok := s.store.get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "run not found"})
		return runRecord{}, false
	}
	return rec, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

// validationMessages turns validator errors into one readable line per field.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out = append(out, field+" is required")
		case "min":
			out = append(out, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max":
			out = append(out, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			out = append(out, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
