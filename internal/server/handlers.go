package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/luatutor/internal/catalog"
	apperrors "github.com/conneroisu/luatutor/internal/errors"
	"github.com/conneroisu/luatutor/internal/exercise"
	"github.com/conneroisu/luatutor/internal/navigation"
	"github.com/conneroisu/luatutor/internal/sandbox"
	"github.com/conneroisu/luatutor/internal/search"
	"github.com/conneroisu/luatutor/internal/version"
	"github.com/conneroisu/luatutor/internal/view"
)

// ValidateRequest checks code against a subsection's exercise, or against an
// explicit solution when no subsection is named.
type ValidateRequest struct {
	Code       string `json:"code"`
	Section    string `json:"section,omitempty"`
	Subsection string `json:"subsection,omitempty"`
	Solution   string `json:"solution,omitempty"`
}

// RunRequest simulates running code from one editor session.
type RunRequest struct {
	Session    string `json:"session"`
	Code       string `json:"code"`
	Section    string `json:"section,omitempty"`
	Subsection string `json:"subsection,omitempty"`
}

// TOCSection is a section entry of /api/catalog.
type TOCSection struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Subsections []TOCSubsection `json:"subsections"`
}

// TOCSubsection is a subsection entry of /api/catalog.
type TOCSubsection struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	HasExercise bool   `json:"has_exercise"`
	HasEditor   bool   `json:"has_editor"`
}

// CatalogResponse is the table of contents.
type CatalogResponse struct {
	Sections []TOCSection  `json:"sections"`
	Stats    catalog.Stats `json:"stats"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sec, sub, ok := s.tree.First()
	if !ok {
		s.renderNotFound(w, r, "the catalog has no lessons")
		return
	}
	http.Redirect(w, r, navigation.PagePath(sec.ID, sub.ID), http.StatusFound)
}

func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request) {
	secID, subID := r.PathValue("section"), r.PathValue("subsection")
	sec, sub, err := s.tree.Subsection(secID, subID)
	if err != nil {
		s.errs.Handle(r.Context(), err)
		s.renderNotFound(w, r, "The requested lesson does not exist or has moved.")
		return
	}

	nav := navigation.FromQuery(s.tree, r.URL.Query())
	if err := nav.Select(secID, subID); err != nil {
		s.writeError(w, r, err)
		return
	}

	page := view.Page(view.PageData{
		Tree:       s.tree,
		Nav:        nav,
		Section:    sec,
		Subsection: sub,
		Session:    sandbox.NewSessionID(),
	})
	templ.Handler(page).ServeHTTP(w, r)
}

func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	resp := s.search(r.URL.Query().Get("q"))
	templ.Handler(view.SearchPage(s.tree, resp)).ServeHTTP(w, r)
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request, msg string) {
	templ.Handler(view.NotFound(msg), templ.WithStatus(http.StatusNotFound)).ServeHTTP(w, r)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	resp := CatalogResponse{
		Sections: make([]TOCSection, 0, len(s.tree.Sections)),
		Stats:    s.tree.Stats(),
	}
	for _, sec := range s.tree.Sections {
		entry := TOCSection{ID: sec.ID, Title: sec.Title, Subsections: make([]TOCSubsection, 0, len(sec.Subsections))}
		for i := range sec.Subsections {
			sub := &sec.Subsections[i]
			entry.Subsections = append(entry.Subsections, TOCSubsection{
				ID:          sub.ID,
				Title:       sub.Title,
				HasExercise: sub.FillInBlank != nil,
				HasEditor:   sub.Editable(),
			})
		}
		resp.Sections = append(resp.Sections, entry)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.search(r.URL.Query().Get("q")))
}

func (s *Server) search(q string) search.Response {
	resp := s.index.Search(q)
	s.metrics.ObserveSearch(resp.IsSearching, len(resp.Results))
	return resp
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	solution := req.Solution
	if req.Section != "" || req.Subsection != "" {
		_, sub, err := s.tree.Subsection(req.Section, req.Subsection)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		solution = sub.Solution()
	}
	if !exercise.Enabled(solution) {
		s.writeError(w, r, apperrors.NewValidationError(apperrors.ErrCodeValidationFailed,
			"no solution to validate against"))
		return
	}

	verdict := exercise.Validate(req.Code, solution)
	s.metrics.ObserveValidation(verdict.Correct)
	s.writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !sandbox.ValidSessionID(req.Session) {
		s.writeError(w, r, apperrors.NewValidationError(apperrors.ErrCodeValidationFailed,
			"session must be an id issued with the page"))
		return
	}

	var solution string
	if req.Section != "" || req.Subsection != "" {
		_, sub, err := s.tree.Subsection(req.Section, req.Subsection)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		solution = sub.Solution()
	}

	res, err := s.runners.Get(req.Session).Run(r.Context(), req.Code, solution)
	switch {
	case errors.Is(err, sandbox.ErrBusy):
		s.metrics.ObserveRun("busy")
		s.writeError(w, r, err)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.metrics.ObserveRun("cancelled")
		return
	case err != nil:
		s.writeError(w, r, apperrors.NewInternalError("run failed", err))
		return
	}

	s.metrics.ObserveRun(string(res.Status))
	if res.Verdict != nil {
		s.metrics.ObserveValidation(res.Verdict.Correct)
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.Get(),
		"catalog":   s.tree.Stats(),
		"sessions":  s.runners.Len(),
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.NewValidationError(apperrors.ErrCodeValidationFailed, "invalid JSON request: "+err.Error())
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(context.Background(), err, "Failed to encode response")
	}
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.errs.Handle(r.Context(), err)

	body := ErrorResponse{Error: err.Error()}
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		body = ErrorResponse{Error: ae.Message, Code: ae.Code}
	}
	s.writeJSON(w, statusFor(err), body)
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
