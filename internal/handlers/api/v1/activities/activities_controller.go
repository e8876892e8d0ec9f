package activities

import (
	"encoding/json"
	"net/http"

	"konfihub/internal/models"
	"konfihub/internal/repositories"
	"konfihub/internal/response"
	"konfihub/internal/services"

	"go.uber.org/zap"
)

// Controller handles the assignable-activity catalog endpoints.
type Controller struct {
	activityRepo repositories.ActivityRepository
	logger       *zap.Logger
	builder      *response.Builder
}

// NewController creates a new activity catalog controller.
func NewController(activityRepo repositories.ActivityRepository, logger *zap.Logger, builder *response.Builder) *Controller {
	return &Controller{
		activityRepo: activityRepo,
		logger:       logger,
		builder:      builder,
	}
}

// List handles GET /api/v1/activities.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	catalog, err := c.activityRepo.List(r.Context(), true)
	if err != nil {
		c.builder.WriteError(w, r, services.NewServiceUnavailableError("activity catalog is unavailable"))
		return
	}

	c.builder.WriteJSON(w, r, http.StatusOK, catalog)
}

// createActivityBody is the admin catalog entry payload.
type createActivityBody struct {
	Name       string              `json:"name"`
	Points     int                 `json:"points"`
	Type       models.ActivityType `json:"type"`
	Categories []string            `json:"categories"`
}

// Create handles POST /api/v1/activities (admin).
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	var body createActivityBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		c.builder.WriteValidationError(w, r, "Invalid request body format")
		return
	}
	if body.Name == "" || body.Points < 0 || !body.Type.Valid() {
		c.builder.WriteValidationError(w, r, "Name, non-negative points and a valid type are required")
		return
	}

	activity := &models.Activity{
		Name:       body.Name,
		Points:     body.Points,
		Type:       body.Type,
		Categories: body.Categories,
		IsActive:   true,
	}
	if err := c.activityRepo.Create(r.Context(), activity); err != nil {
		c.builder.WriteError(w, r, services.NewServiceUnavailableError("failed to store activity"))
		return
	}

	c.logger.Info("Catalog activity created",
		zap.Int64("activity_id", activity.ID),
		zap.String("name", activity.Name),
	)
	c.builder.WriteCreated(w, r, activity)
}
