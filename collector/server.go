package collector

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/quantumchildren/propsim/telemetry"
)

const (
	rateLimitMax    = 60
	rateLimitWindow = time.Minute
)

// Server is the HTTP surface of the collection service.
type Server struct {
	store    *Store
	limiter  *rateLimiter
	adminKey string
	logger   *log.Logger
}

// NewServer wires the handlers around a store. adminKey guards the
// report endpoints; an empty key leaves them open.
func NewServer(store *Store, adminKey string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:    store,
		limiter:  newRateLimiter(rateLimitMax, rateLimitWindow),
		adminKey: adminKey,
		logger:   logger,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/signal", s.limited(s.handleSignal))
	mux.HandleFunc("/collect", s.limited(s.handleSignal)) // legacy alias
	mux.HandleFunc("/outcome", s.limited(s.handleOutcome))
	mux.HandleFunc("/entropy", s.limited(s.handleEntropy))
	mux.HandleFunc("/stats", s.limited(s.admin(s.handleStats)))
	mux.HandleFunc("/performance", s.limited(s.admin(s.handlePerformance)))
	mux.HandleFunc("/alerts", s.limited(s.handleAlerts))
	return mux
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next(w, r)
	}
}

func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey != "" && r.Header.Get("X-Admin-Key") != s.adminKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var sig telemetry.Signal
	if !decodePost(w, r, &sig) {
		return
	}

	if err := s.store.InsertSignal(sig); err != nil {
		s.logger.Printf("insert signal from %s: %v", sig.NodeID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}

	s.logger.Printf("signal %s %s %s conf=%.2f", sig.NodeID, sig.Symbol, sig.Direction, sig.Confidence)
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	var o telemetry.Outcome
	if !decodePost(w, r, &o) {
		return
	}

	if err := s.store.InsertOutcome(o); err != nil {
		s.logger.Printf("insert outcome from %s: %v", o.NodeID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}

	s.logger.Printf("outcome %s #%d %s pnl=%.2f", o.NodeID, o.Ticket, o.Outcome, o.PnL)
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (s *Server) handleEntropy(w http.ResponseWriter, r *http.Request) {
	var e telemetry.EntropySnapshot
	if !decodePost(w, r, &e) {
		return
	}

	if err := s.store.InsertEntropy(e); err != nil {
		s.logger.Printf("insert entropy from %s: %v", e.NodeID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.Stats()
	if err != nil {
		s.logger.Printf("stats query: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failure"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.Performance()
	if err != nil {
		s.logger.Printf("performance query: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failure"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.Alerts()
	if err != nil {
		s.logger.Printf("alerts query: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failure"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// decodePost enforces POST + JSON body. The X-Node-ID header wins over
// the body's node_id when both are present.
func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return false
	}

	if nodeID := r.Header.Get("X-Node-ID"); nodeID != "" {
		switch rec := v.(type) {
		case *telemetry.Signal:
			rec.NodeID = nodeID
		case *telemetry.Outcome:
			rec.NodeID = nodeID
		case *telemetry.EntropySnapshot:
			rec.NodeID = nodeID
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
