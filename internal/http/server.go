// Package http exposes the JSON API: authentication, expense and budget
// CRUD, the conversational endpoint, trends, AI insights and receipt
// uploads.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledgerchat/internal/auth"
	"ledgerchat/internal/chat"
	"ledgerchat/internal/config"
	"ledgerchat/internal/log"
	"ledgerchat/internal/metrics"
	"ledgerchat/internal/middleware/ratelimit"
	"ledgerchat/internal/middleware/security"
	"ledgerchat/internal/services"
	"ledgerchat/internal/storage"
)

// Deps collects everything the server needs. All fields are required
// unless noted otherwise.
type Deps struct {
	Config   *config.Config
	Logger   *log.Logger
	Repo     *storage.Repository
	Issuer   *auth.TokenIssuer
	Limiter  *ratelimit.Limiter
	Expenses *services.ExpenseService
	Budgets  *services.BudgetService
	Trends   *services.TrendsService
	Receipts *services.ReceiptService
	Insights *services.InsightsService
	Chat     *chat.Router
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	repo       *storage.Repository
	issuer     *auth.TokenIssuer
	expenses   *services.ExpenseService
	budgets    *services.BudgetService
	trends     *services.TrendsService
	receipts   *services.ReceiptService
	insights   *services.InsightsService
	chat       *chat.Router
	otpTTL     time.Duration

	now func() time.Time
}

func NewServer(d Deps) *Server {
	s := &Server{
		logger:   d.Logger.WithComponent("http"),
		repo:     d.Repo,
		issuer:   d.Issuer,
		expenses: d.Expenses,
		budgets:  d.Budgets,
		trends:   d.Trends,
		receipts: d.Receipts,
		insights: d.Insights,
		chat:     d.Chat,
		otpTTL:   d.Config.OTPTTL,
		now:      time.Now,
	}

	s.httpServer = &http.Server{
		Addr:         ":" + d.Config.Port,
		Handler:      s.routes(d.Limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) routes(limiter *ratelimit.Limiter) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(limiter.Middleware)

		api.Post("/auth/register", s.handleRegister)
		api.Post("/auth/verify", s.handleVerify)
		api.Post("/auth/resend", s.handleResendOTP)
		api.Post("/auth/login", s.handleLogin)

		api.Group(func(private chi.Router) {
			private.Use(auth.Middleware(s.issuer))

			private.Get("/auth/me", s.handleMe)

			private.Route("/expenses", func(er chi.Router) {
				er.Post("/", s.handleCreateExpense)
				er.Get("/", s.handleListExpenses)
				er.Get("/summary", s.handleExpenseSummary)
				er.Get("/{id}", s.handleGetExpense)
				er.Put("/{id}", s.handleUpdateExpense)
				er.Put("/{id}/category", s.handleOverrideCategory)
				er.Delete("/{id}", s.handleDeleteExpense)
			})

			private.Route("/budgets", func(br chi.Router) {
				br.Post("/", s.handleCreateBudget)
				br.Get("/", s.handleListBudgets)
				br.Get("/status", s.handleBudgetStatusAll)
				br.Get("/{id}", s.handleGetBudget)
				br.Get("/{id}/status", s.handleBudgetStatus)
				br.Put("/{id}", s.handleUpdateBudget)
				br.Delete("/{id}", s.handleDeleteBudget)
			})

			private.Post("/chat", s.handleChat)
			private.Get("/chat/history", s.handleChatHistory)

			private.Get("/trends/monthly", s.handleMonthlyTrends)
			private.Post("/ai/categorize", s.handleCategorize)
			private.Get("/ai/insights", s.handleInsights)
			private.Get("/ai/suggestions", s.handleSuggestions)

			private.Post("/receipts", s.handleUploadReceipt)
			private.Get("/receipts/{id}", s.handleGetReceipt)
		})
	})

	return r
}

// requestLogger records latency and outcome for every request, tagged
// with the route pattern so metric cardinality stays bounded. It also
// puts a request-scoped logger into the context so handlers can log
// with the request id attached.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		reqLogger := s.logger.With("request_id", chimiddleware.GetReqID(r.Context()))
		r = r.WithContext(log.IntoContext(r.Context(), reqLogger))

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		elapsed := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(elapsed.Seconds())

		reqLogger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", elapsed.Milliseconds(),
			"client_ip", security.ClientIP(r),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// currentUser pulls the authenticated user id out of the request
// context. The auth middleware guarantees it is set on private routes.
func currentUser(r *http.Request) int64 {
	id, _ := auth.UserID(r.Context())
	return id
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
