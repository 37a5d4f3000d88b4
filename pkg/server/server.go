package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/usecase/orchestrator"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	Version = "1.0.0"

	defaultMaxUploadSize  = 32 << 20
	defaultRequestTimeout = 120 * time.Second
)

// ClaimUseCase is the claim intake and lookup surface. *claim.UseCase satisfies it.
type ClaimUseCase interface {
	Process(ctx context.Context, doc *model.Document) (*model.Claim, error)
	Get(ctx context.Context, id model.ClaimID) (*model.Claim, error)
	List(ctx context.Context, opts interfaces.ListOptions) ([]*model.Claim, error)
	UpdateStatus(ctx context.Context, id model.ClaimID, status model.ClaimStatus) (*model.Claim, error)
}

// Comparer runs one estimate per severity level. *estimation.Service satisfies it.
type Comparer interface {
	Compare(ctx context.Context, claim *model.Claim, severities []model.Severity) (map[model.Severity]*model.Estimate, error)
}

type Server struct {
	orch     *orchestrator.Orchestrator
	claims   ClaimUseCase
	comparer Comparer
	mcp      http.Handler

	allowedOrigins []string
	requestTimeout time.Duration
	maxUploadSize  int64
	now            func() time.Time

	router chi.Router
}

type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. "*" allows every origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// WithMaxUploadSize limits multipart bodies in bytes
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		s.maxUploadSize = n
	}
}

// WithMCPHandler mounts an MCP streamable HTTP handler at /mcp
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(orch *orchestrator.Orchestrator, claims ClaimUseCase, comparer Comparer, opts ...Option) *Server {
	s := &Server{
		orch:           orch,
		claims:         claims,
		comparer:       comparer,
		allowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		requestTimeout: defaultRequestTimeout,
		maxUploadSize:  defaultMaxUploadSize,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler with every route mounted
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/health", s.handleHealth)
	if s.mcp != nil {
		r.Mount("/mcp", s.mcp)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/upload", s.handleUpload)
		r.Post("/process-claim", s.handleProcessClaim)
		r.Post("/process-full-claim", s.handleProcessFullClaim)

		r.Route("/claims", func(r chi.Router) {
			r.Get("/", s.handleListClaims)
			r.Route("/{claimID}", func(r chi.Router) {
				r.Get("/", s.handleGetClaim)
				r.Put("/status", s.handleUpdateStatus)
				r.Get("/analysis", s.handleAnalysis)
				r.Get("/agent-status", s.handleGetAgentStatus)
				r.Put("/agent-status", s.handleSetAgentStatus)
				r.Post("/draft", s.handleDraft)
				r.Post("/email", s.handleEmail)
				r.Post("/compliance-check", s.handleComplianceCheck)
			})
		})

		r.Post("/estimate/{claimID}", s.handleEstimate)
		r.Post("/compare-estimates/{claimID}", s.handleCompareEstimates)
		r.Get("/shops/{claimID}", s.handleShops)
		r.Get("/shops/{claimID}/specialty/{specialty}", s.handleShops)

		r.Get("/conversation/history", s.handleHistory)
		r.Post("/conversation/clear", s.handleClearHistory)
		r.Get("/stats", s.handleStats)
	})

	return r
}

// Run serves on addr until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.requestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return goerr.Wrap(err, "HTTP server stopped", goerr.V("addr", addr))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shut down HTTP server")
	}
	logging.From(ctx).Info("HTTP server stopped")
	return nil
}
