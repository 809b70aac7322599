package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mike-a-ellis/docs-observability/internal/answer"
	"github.com/mike-a-ellis/docs-observability/internal/insights"
	"github.com/mike-a-ellis/docs-observability/internal/retrieval"
)

const (
	defaultUnansweredLimit = 10
	defaultIssuesWindow    = "24h"
	defaultIssuesTop       = 20

	maxAskBody = 64 << 10
)

type handlers struct {
	asker    Asker
	reporter Reporter
	logger   *slog.Logger
}

// AskRequest is the /ask request body.
type AskRequest struct {
	Query *string `json:"query"`
}

// TopUnansweredResponse is the /top-unanswered response body.
type TopUnansweredResponse struct {
	Queries []insights.UnansweredQuery `json:"queries"`
}

// IssuesResponse is the /issues response body.
type IssuesResponse struct {
	Issues []insights.IssueRow `json:"issues"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAskBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object with a query string")
		return
	}
	if req.Query == nil || strings.TrimSpace(*req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	resp, err := h.asker.Ask(r.Context(), *req.Query)
	if err != nil {
		if errors.Is(err, retrieval.ErrRetrieval) {
			writeError(w, http.StatusBadGateway, "retrieval backend unavailable")
			return
		}
		h.logger.Error("Ask failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, askResponse(resp))
}

// askResponse guarantees a non-null citations array.
func askResponse(resp *answer.Response) *answer.Response {
	if resp.Citations == nil {
		resp.Citations = []answer.Citation{}
	}
	return resp
}

func (h *handlers) topUnanswered(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", defaultUnansweredLimit)
	if !ok {
		return
	}

	queries, err := h.reporter.TopUnanswered(r.Context(), limit)
	if err != nil {
		h.logger.Error("Top unanswered failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read event log")
		return
	}
	writeJSON(w, http.StatusOK, TopUnansweredResponse{Queries: queries})
}

func (h *handlers) issues(w http.ResponseWriter, r *http.Request) {
	top, ok := intParam(w, r, "top", defaultIssuesTop)
	if !ok {
		return
	}
	window := r.URL.Query().Get("window")
	if window == "" {
		window = defaultIssuesWindow
	}

	rows, err := h.reporter.Issues(r.Context(), window, top)
	if err != nil {
		h.logger.Error("Issues failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read event log")
		return
	}
	writeJSON(w, http.StatusOK, IssuesResponse{Issues: rows})
}

// intParam reads an integer query parameter, writing a 400 when it is malformed.
func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
