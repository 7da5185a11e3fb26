package server

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-scanner/internal/learning"
	"github.com/zombor/receipt-scanner/internal/receipt"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

// Recognizer turns an image into a record; it never fails
type Recognizer interface {
	Recognize(ctx context.Context, img scanning.Image) scanning.Result
}

// Learner records corrections and reports on them
type Learner interface {
	Record(original, corrected receipt.ReceiptData) error
	RecentHints(n int) []string
	Stats() learning.Stats
}

// Server handles HTTP requests for the recognition engine
type Server struct {
	recognizer Recognizer
	learner    Learner
	basicAuth  BasicAuth
	imageDir   string
	mux        *http.ServeMux
	logger     *slog.Logger
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux. Scan requests may reference
// files under imageDir; an empty imageDir accepts uploads only.
func NewServer(recognizer Recognizer, learner Learner, basicAuth BasicAuth, imageDir string, logger *slog.Logger) *Server {
	return NewServerWithMux(recognizer, learner, basicAuth, imageDir, http.NewServeMux(), logger)
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(recognizer Recognizer, learner Learner, basicAuth BasicAuth, imageDir string, mux *http.ServeMux, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		recognizer: recognizer,
		learner:    learner,
		basicAuth:  basicAuth,
		imageDir:   imageDir,
		mux:        mux,
		logger:     logger,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

// corsMiddleware adds CORS headers and answers preflight requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger tags each request with an id and logs its completion
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("http.request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Receipt Scanner"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/scan", s.requireAuth(s.handleScan))

	s.mux.HandleFunc("GET /api/corrections/hints", s.requireAuth(s.handleHints))
	s.mux.HandleFunc("GET /api/corrections/stats", s.requireAuth(s.handleStats))
	s.mux.HandleFunc("POST /api/corrections", s.requireAuth(s.handleRecordCorrection))

	s.mux.HandleFunc("POST /api/import", s.requireAuth(s.handleImport))
	s.mux.HandleFunc("POST /api/export", s.requireAuth(s.handleExport))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the full middleware chain around the mux
func (s *Server) Handler() http.Handler {
	return s.requestLogger(s.corsMiddleware(s.mux))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}
