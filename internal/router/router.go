package router

import (
	"net/http"
	"time"

	"konfihub/internal/handlers/api/v1/activities"
	"konfihub/internal/handlers/api/v1/badges"
	"konfihub/internal/handlers/api/v1/participants"
	"konfihub/internal/handlers/api/v1/requests"
	"konfihub/internal/middleware"
	"konfihub/internal/response"
	"konfihub/internal/services"

	"go.uber.org/zap"
)

// SetupRouter configures all HTTP routes and returns the main handler.
func SetupRouter(
	serviceCollection *services.ServiceCollection,
	authMiddleware *middleware.AuthMiddleware,
	builder *response.Builder,
	logger *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()

	requestController := requests.NewController(serviceCollection.RequestService, logger, builder)
	badgeController := badges.NewController(serviceCollection.BadgeService, logger, builder)
	participantController := participants.NewController(
		serviceCollection.LedgerService, serviceCollection.BadgeService, logger, builder)
	activityController := activities.NewController(serviceCollection.ActivityRepo, logger, builder)

	authed := authMiddleware.Authenticate
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(authMiddleware.RequireAdmin(h))
	}

	// Health (no auth).
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := serviceCollection.Health(r.Context()); err != nil {
			builder.WriteError(w, r, services.NewServiceUnavailableError("dependency unhealthy"))
			return
		}
		builder.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Activity requests.
	mux.Handle("POST /api/v1/requests", authed(http.HandlerFunc(requestController.Create)))
	mux.Handle("GET /api/v1/requests", authed(http.HandlerFunc(requestController.ListMine)))
	mux.Handle("GET /api/v1/requests/pending", admin(requestController.ListPending))
	mux.Handle("PUT /api/v1/requests/{id}/status", admin(requestController.UpdateStatus))

	// Participant history and badges.
	mux.Handle("GET /api/v1/participants/{id}/history", authed(http.HandlerFunc(participantController.GetHistory)))
	mux.Handle("GET /api/v1/participants/{id}/badges", authed(http.HandlerFunc(participantController.GetBadges)))
	mux.Handle("POST /api/v1/participants/{id}/activities", admin(participantController.AssignActivity))
	mux.Handle("POST /api/v1/participants/{id}/bonus", admin(participantController.GrantBonus))
	mux.Handle("POST /api/v1/participants/{id}/badges/evaluate", admin(participantController.Evaluate))

	// Badge catalog.
	mux.Handle("GET /api/v1/badges", authed(http.HandlerFunc(badgeController.ListCatalog)))
	mux.Handle("POST /api/v1/badges", admin(badgeController.Create))
	mux.Handle("PUT /api/v1/badges/{id}", admin(badgeController.Update))

	// Assignable activity catalog.
	mux.Handle("GET /api/v1/activities", authed(http.HandlerFunc(activityController.List)))
	mux.Handle("POST /api/v1/activities", admin(activityController.Create))

	// Middleware chain, outermost first.
	var handler http.Handler = mux
	handler = middleware.StructuredLogging(1 * time.Second)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.RequestID(logger)(handler)

	return handler
}
