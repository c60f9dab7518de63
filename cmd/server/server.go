package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/loancheck/eligibility"
	"github.com/liamcoop/loancheck/form"
	"github.com/liamcoop/loancheck/internal/config"
	"github.com/liamcoop/loancheck/internal/logger"
	"github.com/liamcoop/loancheck/internal/metrics"
)

const (
	evaluationIDHeader   = "X-Evaluation-ID"
	slowRequestThreshold = time.Second
)

type Server struct {
	cfg       config.Config
	evaluator *eligibility.Evaluator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	router    *chi.Mux
}

// NewServer wires the HTTP routes. reg may be nil, in which case no metrics
// are recorded and the metrics endpoint is not mounted.
func NewServer(cfg config.Config, evaluator *eligibility.Evaluator, log *slog.Logger, reg *prometheus.Registry) *Server {
	s := &Server{
		cfg:       cfg,
		evaluator: evaluator,
		logger:    log,
	}
	if reg != nil && cfg.Metrics.Enabled {
		s.metrics = metrics.New(reg)
		s.gatherer = reg
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(corsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.WriteTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	// Health check
	r.Get("/api/v1/health", s.handleHealth)
	r.Get("/api/loan/health", s.handleHealth)

	// Eligibility, under the versioned route and the two legacy ones
	r.Post("/", s.handleEligibility)
	r.Post("/api/v1/loan/eligibility", s.handleEligibility)
	r.Post("/api/loan/checkEligibility", s.handleEligibility)

	// Form contract only
	r.Post("/api/v1/loan/validate", s.handleValidate)

	if s.gatherer != nil {
		r.Handle(s.cfg.Metrics.Path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// corsMiddleware sets the CORS headers on every response, whether or not the
// request carries an Origin, and answers preflight requests itself.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		h.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		h.Set("Content-Type", "application/json")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type requestErrorKey struct{}

// setRequestError attaches the cause of a failed request to the request's log
// line. Handlers call it instead of logging errors themselves so that each
// failure is logged and counted once.
func setRequestError(r *http.Request, err error) {
	if p, ok := r.Context().Value(requestErrorKey{}).(*error); ok {
		*p = err
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		var reqErr error
		r = r.WithContext(context.WithValue(r.Context(), requestErrorKey{}, &reqErr))

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		} else if r.Method == http.MethodOptions {
			route = "preflight"
		}
		s.metrics.IncrementRequest(route, r.Method, status)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		}
		if id := ww.Header().Get(evaluationIDHeader); id != "" {
			attrs = append(attrs, "evaluation_id", id)
		}
		if reqErr != nil {
			attrs = append(attrs, "error", reqErr)
		}

		// The sampling handler counts error and warning records.
		switch {
		case status >= 500:
			s.logger.ErrorContext(r.Context(), "request failed", attrs...)
		case status >= 400:
			s.logger.InfoContext(r.Context(), "request rejected", attrs...)
		case elapsed > slowRequestThreshold:
			logger.WarnSlowRequest()
			s.logger.WarnContext(r.Context(), "slow request", attrs...)
		default:
			s.logger.DebugContext(r.Context(), "request served", attrs...)
		}
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		GatesLoaded: s.evaluator.GateCount(),
	})
}

// Eligibility handler
func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	evaluationID := uuid.NewString()
	w.Header().Set(evaluationIDHeader, evaluationID)
	ctx := eligibility.WithEvaluationID(r.Context(), evaluationID)

	var req EligibilityRequest
	if err := s.decode(w, r, &req); err != nil {
		setRequestError(r, fmt.Errorf("failed to decode eligibility request: %w", err))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	if req.missingFields() {
		respondErrorDetails(w, http.StatusBadRequest, "Missing required fields",
			"All fields (name, loanAmount, mobileNumber, panNumber, monthlyIncome) are required")
		return
	}
	if *req.LoanAmount <= 0 || *req.MonthlyIncome <= 0 {
		respondErrorDetails(w, http.StatusBadRequest, "Invalid input",
			"Loan amount and monthly income must be positive numbers")
		return
	}
	if !eligibility.ValidAmount(*req.LoanAmount) || !eligibility.ValidAmount(*req.MonthlyIncome) {
		respondErrorDetails(w, http.StatusBadRequest, "Invalid input",
			fmt.Sprintf("Loan amount and monthly income must not exceed %d", eligibility.MaxAmount))
		return
	}

	start := time.Now()
	result, err := s.evaluator.Evaluate(ctx, req.loanRequest())
	s.metrics.ObserveEvaluateLatency(time.Since(start))
	if err != nil {
		setRequestError(r, fmt.Errorf("eligibility evaluation failed: %w", err))
		respondError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	s.metrics.ObserveResult(result)
	respondJSON(w, http.StatusOK, EligibilityResponse{
		Eligible:          result.Eligible,
		CibilScore:        result.CibilScore,
		MaxEligibleAmount: result.MaxEligibleAmount,
		Message:           result.Message,
	})
}

// Form validation handler
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var in form.Input
	if err := s.decode(w, r, &in); err != nil {
		setRequestError(r, fmt.Errorf("failed to decode form: %w", err))
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if _, err := form.Validate(in); err != nil {
		var verrs form.ValidationErrors
		if errors.As(err, &verrs) {
			respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation Failed",
				Message: "Invalid input data",
				Errors:  verrs,
			})
			return
		}
		setRequestError(r, err)
		respondError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	respondJSON(w, http.StatusOK, ValidationResponse{Valid: true})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	respondErrorDetails(w, status, message, details)
}

func respondErrorDetails(w http.ResponseWriter, status int, message, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
