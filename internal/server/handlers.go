package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Raj-Taware/credit-scrape/internal/jobs"
	"github.com/Raj-Taware/credit-scrape/internal/llm"
	"github.com/Raj-Taware/credit-scrape/internal/model"
	"github.com/Raj-Taware/credit-scrape/internal/scraper"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Detail string `json:"detail"`
}

type healthResponse struct {
	Status string `json:"status"`
	LLM    bool   `json:"llm"`
	Engine string `json:"engine"`
}

var (
	errStorageDisabled = errors.New("card storage is disabled")
	errJobsDisabled    = errors.New("asynchronous jobs are disabled")
)

// badRequestError marks client errors that have no type of their own.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

// handleScrape runs a scrape and returns the card records.
//
// Method: POST
// Path:   /api/v1/scrape_and_extract
// Body:   optional JSON array of bank names; empty means every bank.
// Example:
//
//	curl -X POST localhost:8000/api/v1/scrape_and_extract -d '["Axis Bank"]'
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	banks, err := decodeBanks(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.scrape(r.Context(), banks, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}

	details := result.Details
	if details == nil {
		details = []*model.CardDetails{}
	}
	writeJSON(w, details, http.StatusOK)
}

// handleBanks lists the configured banks and their strategies.
func (s *Server) handleBanks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.service.Banks(), http.StatusOK)
}

// handleCards returns stored card records, optionally for one bank.
//
// Method: GET
// Path:   /api/v1/cards?bank=Axis%20Bank
func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	if s.cards == nil {
		s.writeError(w, errStorageDisabled)
		return
	}

	bank := strings.TrimSpace(r.URL.Query().Get("bank"))
	if bank != "" {
		if _, err := s.service.Resolve([]string{bank}); err != nil {
			s.writeError(w, err)
			return
		}
	}

	details, err := s.cards.ListCardDetails(r.Context(), bank)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, details, http.StatusOK)
}

// Run history page sizes. limit must be at least 1; larger values are
// capped at maxRunsLimit.
const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// handleRuns returns the most recent runs.
//
// Method: GET
// Path:   /api/v1/runs?limit=20
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.cards == nil {
		s.writeError(w, errStorageDisabled)
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, &badRequestError{err: fmt.Errorf("invalid limit %q", v)})
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.cards.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, runs, http.StatusOK)
}

// handleSubmitJob starts a scrape in the background.
//
// Method: POST
// Path:   /api/v1/jobs
// Body:   same as /api/v1/scrape_and_extract
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, errJobsDisabled)
		return
	}

	banks, err := decodeBanks(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Reject unknown banks now rather than in a failed job.
	banks, err = s.service.Resolve(banks)
	if err != nil {
		s.writeError(w, err)
		return
	}

	job, err := s.runner.Submit(r.Context(), banks)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/jobs/"+job.ID)
	writeJSON(w, job, http.StatusAccepted)
}

// handleGetJob returns the state of a job.
//
// Method: GET
// Path:   /api/v1/jobs/{id}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, errJobsDisabled)
		return
	}

	job, err := s.runner.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, job, http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, healthResponse{
		Status: "ok",
		LLM:    s.service.LLMAvailable(),
		Engine: s.service.Engine(),
	}, http.StatusOK)
}

// decodeBanks reads the optional bank list of a scrape request.
func decodeBanks(w http.ResponseWriter, r *http.Request) ([]string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &badRequestError{err: fmt.Errorf("failed to read request body: %w", err)}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var banks []string
	if err := json.Unmarshal(body, &banks); err != nil {
		return nil, &badRequestError{err: fmt.Errorf("request body must be a JSON array of bank names: %w", err)}
	}
	return banks, nil
}

// writeError maps an error to its status code and writes it as
// {"detail": "..."}.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var (
		ube *scraper.UnknownBankError
		bre *badRequestError
	)
	switch {
	case errors.As(err, &ube), errors.As(err, &bre):
		status = http.StatusBadRequest
	case errors.Is(err, scraper.ErrNoCardData), errors.Is(err, jobs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, llm.ErrUnavailable),
		errors.Is(err, errStorageDisabled),
		errors.Is(err, errJobsDisabled),
		errors.Is(err, jobs.ErrClosed):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, errorResponse{Detail: err.Error()}, status)
}

func writeJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
