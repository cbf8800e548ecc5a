package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"social_dining/internal/app"
	"social_dining/internal/domain"
)

// Generation and booking both hit the AI endpoint; cap them per client.
const (
	expensiveCallsPerWindow = 10
	expensiveCallsWindow    = time.Minute
)

// SessionQuerier serves the session read model; *app.QueryService in production.
type SessionQuerier interface {
	GetSession(ctx context.Context, id string) (domain.SessionView, error)
}

type Handlers struct {
	Q SessionQuerier
	S *app.SessionService
	R *app.RecommendationService

	validate *validator.Validate
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type bookRequest struct {
	BusinessID string `json:"business_id" validate:"required"`
}

func (s *Server) MountHandlers(h *Handlers) {
	if h.validate == nil {
		h.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	limit := httprate.LimitByIP(expensiveCallsPerWindow, expensiveCallsWindow)

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/sessions", h.createSession)
	s.mux.Get("/sessions/{id}", h.getSession)
	s.mux.Post("/sessions/{id}/join", h.joinSession)
	s.mux.Post("/sessions/{id}/vote", h.castVote)
	s.mux.With(limit).Post("/sessions/{id}/generate", h.generate)
	s.mux.With(limit).Post("/sessions/{id}/book", h.book)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrNoParticipants),
		errors.Is(err, domain.ErrSessionFull),
		errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// decode reads a JSON body into dst and runs struct validation.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body, nil
}

func (h *Handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var in domain.SessionCreate
	if !h.decode(w, r, &in) {
		return
	}
	s, err := h.S.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Q.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	etag, body, err := calcETagAndBody(resp)
	if err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to marshal session view")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "session view could not be encoded")
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getSession body")
	}
}

func (h *Handlers) joinSession(w http.ResponseWriter, r *http.Request) {
	var in domain.ParticipantCreate
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.S.Join(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) castVote(w http.ResponseWriter, r *http.Request) {
	var in domain.VoteCreate
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.S.Vote(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "voted", "message": "Vote recorded"})
}

func (h *Handlers) generate(w http.ResponseWriter, r *http.Request) {
	out, err := h.R.Generate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) book(w http.ResponseWriter, r *http.Request) {
	var in bookRequest
	if !h.decode(w, r, &in) {
		return
	}
	res, err := h.S.Book(r.Context(), chi.URLParam(r, "id"), in.BusinessID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
