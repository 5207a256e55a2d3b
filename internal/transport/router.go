package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/config"
	"github.com/muturi/chatbridge/internal/dispatch"
	"github.com/muturi/chatbridge/internal/extractor"
	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/internal/progress"
	"github.com/muturi/chatbridge/internal/session"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Auth       *Authenticator
	Progress   *progress.Service
	Inspector  *progress.Inspector
	Extractor  *extractor.Extractor
	Dispatcher *dispatch.Dispatcher
	Sessions   *session.Orchestrator
	Limiter    *session.Limiter
	Ready      http.HandlerFunc
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery(deps.Logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	// Public routes — bypass authentication.
	r.Get("/healthz", observability.HandleHealth())
	r.Get("/readyz", deps.Ready)
	if deps.Config.Observability.Metrics.Enabled {
		r.Method(http.MethodGet, deps.Config.Observability.Metrics.Path, observability.Handler())
	}

	pollInterval := int(deps.Config.Polling.Interval.Milliseconds())

	// Workflow and tool routes — verified bearers only.
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.RequireUser)
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(deps.Logger))
		r.Use(MetricsRecording(deps.Metrics))

		r.Get("/workflow/progress", handleProgressGet(deps.Progress, deps.Metrics))
		r.Post("/workflow/progress", handleStepDetails(deps.Inspector))

		r.Post("/tools/workflow-trigger", handleToolTrigger(deps.Extractor, deps.Dispatcher, deps.Metrics))
		r.Post("/tools/workflow-status", handleToolStatus(deps.Progress))
		r.Post("/tools/workflow-progress", handleToolProgress(deps.Progress, deps.Metrics, pollInterval))
	})

	// Chat routes — guests admitted, entitlements enforced downstream.
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.AllowGuest)
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(deps.Logger))
		r.Use(MetricsRecording(deps.Metrics))

		r.Post("/chat/messages", handleChatMessage(chatDeps{
			Extractor:  deps.Extractor,
			Dispatcher: deps.Dispatcher,
			Sessions:   deps.Sessions,
			Limiter:    deps.Limiter,
			Metrics:    deps.Metrics,
			Logger:     deps.Logger,
		}))
		r.Get("/chat/sessions/{sessionId}", handleSessionGet(deps.Sessions))
		r.Delete("/chat/sessions/{sessionId}", handleSessionDelete(deps.Sessions))
	})

	return r
}
