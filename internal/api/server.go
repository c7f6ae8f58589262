// Package api exposes audits over HTTP. Audits are slow (a render plus
// WHOIS plus a battery of network checks), so POST /audits only enqueues a
// job; clients poll the job until the finished report replaces it.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/avoronkov/pdnaudit/internal/api/middleware"
	"github.com/avoronkov/pdnaudit/internal/engine"
	"github.com/avoronkov/pdnaudit/internal/inn"
	"github.com/avoronkov/pdnaudit/internal/registry"
	"github.com/avoronkov/pdnaudit/internal/resolver"
	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

const maxRequestBody = 1 << 20

// DefaultJobTimeout bounds one background audit. Slightly above the engine
// deadline so the engine times out first and still produces a report.
const DefaultJobTimeout = 3 * time.Minute

// AuditRunner runs one audit. The production implementation is
// *engine.Auditor.
type AuditRunner interface {
	RunAudit(ctx context.Context, req engine.Request) (*engine.Report, error)
}

// ReportStore persists finished reports. The production implementation is
// *jsonstore.AuditStore.
type ReportStore interface {
	Save(ctx context.Context, rep *engine.Report) error
	FindByID(ctx context.Context, id string) (*engine.Report, error)
	List(ctx context.Context) ([]*engine.Report, error)
}

// Config wires the server's collaborators. Zero-value optional fields
// disable their feature: empty APIKey means open access, zero RateLimit
// disables throttling, nil Registry disables the registry route.
type Config struct {
	Auditor     AuditRunner
	Reports     ReportStore
	Registry    *registry.Lookup
	Jobs        *JobManager
	APIKey      string
	CORSOrigins []string
	RateLimit   int
	RateBurst   int
	JobTimeout  time.Duration
	Logger      *zap.Logger
}

type Server struct {
	cfg      Config
	router   chi.Router
	limiters *limiterPool
}

func NewServer(cfg Config) *Server {
	if cfg.Jobs == nil {
		cfg.Jobs = NewJobManager(DefaultMaxJobs)
	}
	s := &Server{cfg: cfg, limiters: newLimiterPool()}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(s.allowCORS)
	r.Use(s.limitRate)

	r.Route("/api/v1", func(r chi.Router) {
		// Probes stay open so orchestrators can reach them without the key.
		r.Get("/healthz", s.handleHealthz)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAPIKey)
			r.Post("/audits", s.handleStartAudit)
			r.Get("/audits", s.handleListJobs)
			r.Get("/audits/{id}", s.handleAuditStatus)
			r.Get("/reports", s.handleListReports)
			r.Get("/reports/{id}", s.handleGetReport)
			r.Get("/registry/{inn}", s.handleRegistryLookup)
		})
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartAudit(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Auditor == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("auditing is not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	// Reject bad input here so a doomed job never enters the queue.
	if _, err := resolver.ExtractHost(req.URL); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.INN != "" {
		if ok, reason := inn.Validate(req.INN); !ok {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: %s", sharederrors.ErrInvalidINN, reason))
			return
		}
	}

	job := s.cfg.Jobs.Create(req.URL)
	go s.runAuditJob(job.ID, req)

	writeJSON(w, http.StatusAccepted, job)
}

// runAuditJob drives one audit in the background and records its outcome
// on the job. The request context is gone by the time this runs, hence the
// fresh context with its own deadline.
func (s *Server) runAuditJob(jobID string, req engine.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout())
	defer cancel()

	s.cfg.Jobs.Update(jobID, func(j *Job) {
		now := time.Now().UTC()
		j.Status = JobRunning
		j.StartedAt = &now
	})

	rep, err := s.cfg.Auditor.RunAudit(ctx, req)
	if err == nil && s.cfg.Reports != nil {
		if saveErr := s.cfg.Reports.Save(ctx, rep); saveErr != nil {
			err = saveErr
		}
	}

	s.cfg.Jobs.Update(jobID, func(j *Job) {
		now := time.Now().UTC()
		j.FinishedAt = &now
		if err != nil {
			j.Status = JobFailed
			j.Error = err.Error()
			return
		}
		j.Status = JobDone
		j.ReportID = rep.ID
	})

	if err != nil {
		s.logger().Warn("audit job failed",
			zap.String("job_id", jobID),
			zap.String("target", req.URL),
			zap.Error(err))
	}
}

// handleAuditStatus returns the job state while the audit runs and the
// stored report once it is done.
func (s *Server) handleAuditStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.cfg.Jobs.Get(id)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, errors.New("audit job not found"))
		return
	}

	if job.Status == JobDone && s.cfg.Reports != nil {
		rep, err := s.cfg.Reports.FindByID(r.Context(), job.ReportID)
		if err == nil {
			writeJSON(w, http.StatusOK, rep)
			return
		}
		s.logger().Warn("finished job has no report",
			zap.String("job_id", job.ID),
			zap.String("report_id", job.ReportID),
			zap.Error(err))
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 25
	if q := r.URL.Query().Get("limit"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	writeJSON(w, http.StatusOK, s.cfg.Jobs.List(limit))
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Reports == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("report storage is not configured"))
		return
	}
	reports, err := s.cfg.Reports.List(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Reports == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("report storage is not configured"))
		return
	}
	rep, err := s.cfg.Reports.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleRegistryLookup(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Registry == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("registry lookups are not configured"))
		return
	}

	rec, err := s.cfg.Registry.LookupByINN(r.Context(), chi.URLParam(r, "inn"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rec)
	case errors.Is(err, sharederrors.ErrInvalidINN):
		s.writeError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, sharederrors.ErrRegistryNotFound):
		s.writeError(w, r, http.StatusNotFound, err)
	case errors.Is(err, sharederrors.ErrRegistryUnavailable):
		s.writeError(w, r, http.StatusServiceUnavailable, err)
	default:
		s.writeError(w, r, http.StatusInternalServerError, err)
	}
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	if s.cfg.APIKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.APIKey)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("missing or invalid API key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limitRate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		limiter := s.limiters.get(ip, s.cfg.RateLimit, s.cfg.RateBurst)
		if !limiter.Allow() {
			s.requestLogger(r).Warn("rate limit exceeded", zap.String("client_ip", ip))
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowed := range s.cfg.CORSOrigins {
				if allowed == origin {
					allowOrigin = origin
					break
				}
			}
		}
		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger().Info("http request",
			zap.String("request_id", middleware.FromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", rw.status),
			zap.Int64("bytes", rw.written),
			zap.Duration("took", time.Since(start)))
	})
}

// statusWriter captures what the handler sent so the access log can report
// it.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError reports the problem to the client. Internal errors are logged
// with their details but sent as a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		s.requestLogger(r).Error("request failed", zap.Int("status", status), zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return s.logger().With(
		zap.String("request_id", middleware.FromContext(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
}

func (s *Server) logger() *zap.Logger {
	if s.cfg.Logger != nil {
		return s.cfg.Logger
	}
	return zap.NewNop()
}

func (s *Server) jobTimeout() time.Duration {
	if s.cfg.JobTimeout > 0 {
		return s.cfg.JobTimeout
	}
	return DefaultJobTimeout
}

// clientIP prefers the first X-Forwarded-For entry so limits apply to the
// caller, not the proxy in front of us.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// limiterPool keeps one token bucket per client IP and drops buckets that
// have gone quiet.
type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterIdleTTL = 5 * time.Minute

func newLimiterPool() *limiterPool {
	p := &limiterPool{limiters: make(map[string]*clientLimiter)}
	go p.sweep()
	return p
}

func (p *limiterPool) get(ip string, rps, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = rps
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cl, ok := p.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		p.limiters[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

func (p *limiterPool) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		for ip, cl := range p.limiters {
			if time.Since(cl.lastSeen) > limiterIdleTTL {
				delete(p.limiters, ip)
			}
		}
		p.mu.Unlock()
	}
}
