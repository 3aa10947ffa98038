package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/metrics"
	"github.com/secfit/ip-protector/internal/record"
	"github.com/secfit/ip-protector/internal/registry"
)

type paperRequest struct {
	Author        fingerprint.Identity `json:"author"`
	PaperHash     string               `json:"paper_hash"`
	SectionsCount uint8                `json:"sections_count"`
}

type sectionRequest struct {
	Author          fingerprint.Identity `json:"author"`
	SectionType     string               `json:"section_type"`
	ContentHash     string               `json:"content_hash"`
	UniquenessScore uint8                `json:"uniqueness_score"`
	Summary         string               `json:"summary"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

type lookupResponse struct {
	Outcome registry.Outcome `json:"outcome"`
	Key     fingerprint.Key  `json:"key"`
	Record  *record.Section  `json:"record,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed",
				"request_id", RequestIDFrom(r.Context()),
				"error", err.Error(),
			)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegisterPaper(w http.ResponseWriter, r *http.Request) {
	var req paperRequest
	caller, err := s.decodeSigned(w, r, &req)
	if err != nil {
		s.metrics.IncrementRegistration(string(record.KindPaper), registrationOutcome(err))
		s.writeError(w, r, err)
		return
	}

	paper, err := s.registry.RegisterPaper(r.Context(), caller, registry.PaperRequest{
		Author:        req.Author,
		PaperHash:     req.PaperHash,
		SectionsCount: req.SectionsCount,
	})
	s.metrics.IncrementRegistration(string(record.KindPaper), registrationOutcome(err))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, paper)
}

func (s *Server) handleRegisterSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	caller, err := s.decodeSigned(w, r, &req)
	if err != nil {
		s.metrics.IncrementRegistration(string(record.KindSection), registrationOutcome(err))
		s.writeError(w, r, err)
		return
	}

	section, err := s.registry.RegisterSection(r.Context(), caller, registry.SectionRequest{
		Author:          req.Author,
		SectionType:     req.SectionType,
		ContentHash:     req.ContentHash,
		UniquenessScore: req.UniquenessScore,
		Summary:         req.Summary,
	})
	s.metrics.IncrementRegistration(string(record.KindSection), registrationOutcome(err))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, section)
}

func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	author, err := fingerprint.ParseIdentity(chi.URLParam(r, "author"))
	if err != nil {
		s.writeError(w, r, &registry.Error{Code: registry.CodeInvalidInput, Field: "author", Message: err.Error()})
		return
	}

	paper, err := s.registry.GetPaper(r.Context(), author, chi.URLParam(r, "paperHash"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Verified: v.Verified()})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{Outcome: v.Outcome, Key: v.Key, Record: v.Section})
}

// lookup parses the section query from URL parameters and runs it. On
// failure the error response has been written.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (registry.Verification, bool) {
	params := r.URL.Query()
	author, err := fingerprint.ParseIdentity(params.Get("author"))
	if err != nil {
		s.metrics.IncrementVerification(metrics.OutcomeError)
		s.writeError(w, r, &registry.Error{Code: registry.CodeInvalidInput, Field: "author", Message: err.Error()})
		return registry.Verification{}, false
	}

	v, err := s.registry.Lookup(r.Context(), registry.SectionQuery{
		Author:      author,
		SectionType: params.Get("section_type"),
		ContentHash: params.Get("content_hash"),
	})
	if err != nil {
		s.metrics.IncrementVerification(metrics.OutcomeError)
		s.writeError(w, r, err)
		return registry.Verification{}, false
	}
	s.metrics.IncrementVerification(string(v.Outcome))
	return v, true
}

// decodeSigned reads the body, authenticates the caller over it, and
// decodes it into dst.
func (s *Server) decodeSigned(w http.ResponseWriter, r *http.Request, dst any) (fingerprint.Identity, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fingerprint.Identity{}, &registry.Error{Code: registry.CodeInvalidInput, Message: "request body too large or unreadable", Err: err}
	}

	caller, err := s.identity.Identify(r, body)
	if err != nil {
		return fingerprint.Identity{}, &registry.Error{Code: registry.CodeUnauthorized, Message: err.Error(), Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fingerprint.Identity{}, &registry.Error{Code: registry.CodeInvalidInput, Message: "invalid request body: " + err.Error(), Err: err}
	}
	return caller, nil
}

func registrationOutcome(err error) string {
	switch registry.CodeOf(err) {
	case "":
		if err != nil {
			return metrics.OutcomeError
		}
		return metrics.OutcomeRegistered
	case registry.CodeAlreadyRegistered:
		return metrics.OutcomeRejected
	case registry.CodeInvalidInput:
		return metrics.OutcomeInvalid
	case registry.CodeUnauthorized:
		return metrics.OutcomeDenied
	default:
		return metrics.OutcomeError
	}
}

// statusFor maps registry error codes to HTTP status codes.
func statusFor(code registry.Code) int {
	switch code {
	case registry.CodeInvalidInput:
		return http.StatusBadRequest
	case registry.CodeAlreadyRegistered:
		return http.StatusConflict
	case registry.CodeNotFound:
		return http.StatusNotFound
	case registry.CodeUnauthorized:
		return http.StatusUnauthorized
	case registry.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	requestID := RequestIDFrom(ctx)

	var re *registry.Error
	if !errors.As(err, &re) {
		s.logger.ErrorContext(ctx, "request failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:     "INTERNAL",
			Message:   "internal server error",
			RequestID: requestID,
		})
		return
	}

	status := statusFor(re.Code)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, "request failed",
			"request_id", requestID,
			"code", string(re.Code),
			"error", err.Error(),
		)
	}
	writeJSON(w, status, errorResponse{
		Error:     string(re.Code),
		Field:     re.Field,
		Message:   re.Message,
		RequestID: requestID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
