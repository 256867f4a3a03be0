package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"peerbridge-backend/application/services"
	"peerbridge-backend/infrastructure/config"
	"peerbridge-backend/interfaces/http/rest/handlers"
	"peerbridge-backend/interfaces/http/rest/middleware"
	"peerbridge-backend/pkg/auth"
	"peerbridge-backend/pkg/common"
	"peerbridge-backend/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg         *config.Config
	connections *services.ConnectionService
	matching    *services.MatchingService
	messaging   *services.MessagingService
	inbox       *services.InboxService
	validator   *auth.JWTValidator
	metrics     *observability.Metrics
	registry    *prometheus.Registry
	logger      *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	connections *services.ConnectionService,
	matching *services.MatchingService,
	messaging *services.MessagingService,
	inbox *services.InboxService,
	validator *auth.JWTValidator,
	metrics *observability.Metrics,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:         cfg,
		connections: connections,
		matching:    matching,
		messaging:   messaging,
		inbox:       inbox,
		validator:   validator,
		metrics:     metrics,
		registry:    registry,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.peerbridge.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.cfg.EnableMetrics {
		router.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	ipLimiter := auth.NewKeyedRateLimiter(rt.cfg.RateLimitPerMinute)
	userLimiter := auth.NewKeyedRateLimiter(rt.cfg.RateLimitPerMinute * 2)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.cfg.IsLambda, rt.logger))
		r.Use(middleware.RateLimit(ipLimiter, userLimiter))

		connectionHandler := handlers.NewConnectionHandler(rt.connections, rt.logger)
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", connectionHandler.SendRequest)
			r.Get("/", connectionHandler.ListRequests)
			r.Post("/{requestID}/respond", connectionHandler.Respond)
		})
		r.Route("/peers", func(r chi.Router) {
			r.Get("/", connectionHandler.ListPeers)
			r.Delete("/{peerID}", connectionHandler.RemovePeer)
		})

		matchingHandler := handlers.NewMatchingHandler(rt.matching, rt.logger)
		r.Get("/matches", matchingHandler.ListMatches)
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", matchingHandler.ListTags)
			r.Post("/", matchingHandler.AddTag)
			r.Put("/", matchingHandler.ReplaceTags)
			r.Delete("/{tag}", matchingHandler.RemoveTag)
		})

		messageHandler := handlers.NewMessageHandler(rt.messaging, rt.logger)
		inboxHandler := handlers.NewInboxHandler(rt.inbox, rt.logger)
		r.Route("/conversations/{conversationID}", func(r chi.Router) {
			r.Post("/messages", messageHandler.Send)
			r.Get("/messages", messageHandler.List)
			r.Post("/read", inboxHandler.MarkRead)
		})
		r.Get("/inbox", inboxHandler.ListInbox)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
