package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/nao1215/satyagyan/internal/database"
	"github.com/nao1215/satyagyan/internal/model"
	"github.com/nao1215/satyagyan/internal/report"
)

// errorResponse is the JSON body of every API error.
type errorResponse struct {
	Error string `json:"error"`
	// ID identifies the stored report of a failed check.
	ID string `json:"id,omitempty"`
}

// checkSummary is a history row in API responses.
type checkSummary struct {
	ID        string          `json:"id"`
	Kind      model.InputKind `json:"kind"`
	Label     string          `json:"label"`
	Verdict   model.Verdict   `json:"verdict"`
	CheckedAt time.Time       `json:"checked_at"`
	Error     string          `json:"error,omitempty"`
}

// pageData feeds the HTML templates.
type pageData struct {
	Version  string
	Mode     string
	Report   *model.FactCheckReport
	Error    string
	Download bool
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "index.html", pageData{Version: s.version, Mode: string(model.InputText)})
}

// handleCheckForm runs a check submitted from the HTML form and renders the
// result page, or the form again with the error.
func (s *Server) handleCheckForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)

	in, err := s.parseForm(r)
	data := pageData{Version: s.version, Mode: r.FormValue("mode")}
	if err != nil {
		s.metrics.RecordCheck(nil, err)
		data.Error = err.Error()
		s.render(w, http.StatusBadRequest, "index.html", data)
		return
	}

	rep, err := s.checker.Check(r.Context(), in)
	s.metrics.RecordCheck(rep, err)
	if rep == nil {
		data.Error = err.Error()
		s.render(w, http.StatusBadRequest, "index.html", data)
		return
	}

	data.Report = rep
	data.Download = s.store != nil
	status := http.StatusOK
	if err != nil {
		s.logger.Warn("check failed", "id", rep.ID, "error", err)
		data.Error = err.Error()
		status = http.StatusInternalServerError
	}
	s.render(w, status, "result.html", data)
}

// handleCheckAPI runs a check from JSON or a multipart upload and returns
// the report.
func (s *Server) handleCheckAPI(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)

	in, err := s.parseAPIRequest(r)
	if err != nil {
		s.metrics.RecordCheck(nil, err)
		s.writeError(w, err, "")
		return
	}

	rep, err := s.checker.Check(r.Context(), in)
	s.metrics.RecordCheck(rep, err)
	if rep == nil {
		s.writeError(w, badInput(err), "")
		return
	}
	if err != nil {
		s.logger.Warn("check failed", "id", rep.ID, "error", err)
		s.writeError(w, err, rep.ID)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, ErrHistoryDisabled, "")
		return
	}

	opts := database.ListOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.writeError(w, badInput(ErrInvalidLimit), "")
			return
		}
		opts.Limit = limit
	}
	if v := r.URL.Query().Get("verdict"); v != "" {
		verdict, err := model.ParseVerdict(v)
		if err != nil {
			s.writeError(w, badInput(err), "")
			return
		}
		opts.Verdict = verdict
	}

	rows, err := s.store.ListChecks(r.Context(), opts)
	if err != nil {
		s.writeError(w, err, "")
		return
	}

	out := make([]checkSummary, len(rows))
	for i, row := range rows {
		out[i] = checkSummary{
			ID:        row.ID,
			Kind:      row.Kind,
			Label:     row.Label,
			Verdict:   row.Verdict,
			CheckedAt: row.CheckedAt,
			Error:     row.ErrorMessage,
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleDeleteCheck(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, ErrHistoryDisabled, "")
		return
	}
	if err := s.store.DeleteCheck(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDownload serves the plain-text report as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.lookup(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", report.DownloadMIMEType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.DownloadFileName))
	if _, err := report.NewSimpleWriter(w).Write(rep); err != nil {
		s.logger.Warn("failed to write report", "id", rep.ID, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// lookup loads the report named by the {id} route variable, writing the
// error response when it cannot.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*model.FactCheckReport, bool) {
	if s.store == nil {
		s.writeError(w, ErrHistoryDisabled, "")
		return nil, false
	}
	rep, err := s.store.GetCheck(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err, "")
		return nil, false
	}
	return rep, true
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var inErr *inputError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &inErr):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error, id string) {
	s.writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), ID: id})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Warn("failed to render template", "template", name, "error", err)
	}
}
