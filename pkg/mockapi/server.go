// Package mockapi is a local stand-in for the external HTTP services the
// http_get/http_post tools call during a demo or eval run, grounded on
// original_source/mock_api/*.py's FastAPI app. Routes are deliberately
// the same shapes and fault behaviors as the original: a flaky endpoint
// that fails its first N calls, a slow endpoint with a configurable
// delay, and a malformed endpoint that returns a non-JSON body with a
// 200 status.
package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// State tracks per-key call counters, the Go equivalent of
// mock_api/state.py's MockState (a defaultdict(int) with bump/get/reset).
type State struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewState returns an empty counter state.
func NewState() *State {
	return &State{counters: map[string]int{}}
}

// Bump increments and returns the counter for key.
func (s *State) Bump(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key]
}

// Get returns the current counter for key without mutating it.
func (s *State) Get(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key]
}

// Reset clears every counter.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = map[string]int{}
}

// Server is the mock API's handler set, grounded on
// original_source/mock_api/routes.py's router.
type Server struct {
	state *State
}

// New returns a Server with fresh fault-injection state.
func New() *Server {
	return &Server{state: NewState()}
}

// Handler builds the net/http.ServeMux routing every endpoint, the Go
// analogue of create_app()'s app.include_router(router).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /data", s.handleData)
	mux.HandleFunc("POST /submit", s.handleSubmit)
	mux.HandleFunc("GET /flaky", s.handleFlaky)
	mux.HandleFunc("GET /slow", s.handleSlow)
	mux.HandleFunc("GET /malformed", s.handleMalformed)
	mux.HandleFunc("GET /scenario/{scenario_id}", s.handleScenario)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "mock-api"})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true, "numbers": []int{2, 4, 8}, "message": "mock data", "sum": 14,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message  string         `json:"message"`
		Metadata map[string]any `json:"metadata"`
	}
	payload.Message = "hello"
	_ = json.NewDecoder(r.Body).Decode(&payload)
	if payload.Metadata == nil {
		payload.Metadata = map[string]any{}
	}
	count := s.state.Bump("submit")
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true, "accepted": true, "count": count,
		"echo":   map[string]any{"message": payload.Message, "metadata": payload.Metadata},
		"status": "submitted",
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func queryString(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func (s *Server) handleFlaky(w http.ResponseWriter, r *http.Request) {
	failFirst := queryInt(r, "fail_first", 1)
	key := queryString(r, "key", "default")
	count := s.state.Bump("flaky:" + key)
	if count <= failFirst {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "transient failure"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true, "status": "recovered", "key": key, "attempts": s.state.Get("flaky:" + key),
	})
}

func (s *Server) handleSlow(w http.ResponseWriter, r *http.Request) {
	delayMs := queryInt(r, "delay_ms", 1500)
	if delayMs > 0 {
		time.Sleep(time.Duration(delayMs) * time.Millisecond)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true, "delay_ms": delayMs, "status": "slow response completed",
	})
}

func (s *Server) handleMalformed(w http.ResponseWriter, r *http.Request) {
	kind := queryString(r, "kind", "json_text")
	switch kind {
	case "json_text":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("this is not json"))
	case "truncated":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok": true`))
	default:
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("MALFORMED"))
	}
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.PathValue("scenario_id")
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true, "scenario_id": scenarioID,
		"message": fmt.Sprintf("scenario payload for %s", scenarioID),
	})
}
