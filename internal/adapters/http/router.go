package httpadapter

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stigtools/stig-rag/internal/core/domain"
	"github.com/stigtools/stig-rag/internal/core/ports"
	"github.com/stigtools/stig-rag/internal/observability/metrics"
)

// Corpus uploads are bounded to keep a misbehaving client from exhausting
// memory; full multi-benchmark XCCDF exports stay well under this.
const maxCorpusBytes = 64 << 20

type Router struct {
	service string

	corpusUC ports.CorpusAdmin
	searchUC ports.ControlSearcher
	askUC    ports.QuestionAnswerer
	reader   ports.ControlReader
	history  ports.QueryHistoryStore

	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
}

func NewRouter(
	service string,
	corpusUC ports.CorpusAdmin,
	searchUC ports.ControlSearcher,
	askUC ports.QuestionAnswerer,
	reader ports.ControlReader,
	history ports.QueryHistoryStore,
	serverMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) *Router {
	return &Router{
		service:  service,
		corpusUC: corpusUC,
		searchUC: searchUC,
		askUC:    askUC,
		reader:   reader,
		history:  history,
		metrics:  serverMetrics,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/api/stats", rt.stats)
	mux.HandleFunc("/api/history", rt.recentQueries)
	mux.HandleFunc("/v1/corpus", rt.loadCorpus)
	mux.HandleFunc("/v1/controls/", rt.getControlByID)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/ask", rt.ask)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	stats := rt.corpusUC.Stats(r.Context())
	if rt.metrics != nil {
		rt.metrics.SetCorpusControls(stats.TotalControls)
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) recentQueries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "query history is not configured"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := rt.history.RecentQueries(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []domain.QueryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"queries": records,
	})
}

func (rt *Router) loadCorpus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxCorpusBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
		return
	}
	if len(payload) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "corpus payload is required"})
		return
	}

	count, err := rt.corpusUC.LoadCorpus(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.SetCorpusControls(count)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "loaded",
		"control_count": count,
	})
}

func (rt *Router) getControlByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/controls/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "control id is required"})
		return
	}

	control, err := rt.reader.GetControl(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, control)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question    string `json:"question"`
		Limit       int    `json:"limit"`
		RHELVersion string `json:"rhel_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	results, err := rt.searchUC.Search(r.Context(), req.Question, req.Limit, domain.SearchFilter{
		Version: req.RHELVersion,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSearch(rt.service, "/v1/search", len(results))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"question": req.Question,
		"count":    len(results),
		"results":  results,
	})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question    string `json:"question"`
		StigID      string `json:"stig_id"`
		Limit       int    `json:"limit"`
		RHELVersion string `json:"rhel_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	answer, err := rt.askUC.Ask(r.Context(), req.Question, req.StigID, req.Limit, domain.SearchFilter{
		Version: req.RHELVersion,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSearch(rt.service, "/v1/ask", len(answer.Sources))
		rt.metrics.RecordAnswer(rt.service, answer.AnsweredBy, time.Duration(answer.GenerationMs)*time.Millisecond)
		if answer.AnsweredBy != domain.AnsweredByLookup {
			rt.metrics.RecordRerankOutcome(rt.service, answer.Reranked)
		}
	}

	writeJSON(w, http.StatusOK, answer)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
