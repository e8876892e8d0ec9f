package badges

import (
	"encoding/json"
	"net/http"
	"strconv"

	"konfihub/internal/middleware"
	"konfihub/internal/response"
	"konfihub/internal/services"

	"go.uber.org/zap"
)

// Controller handles the badge catalog endpoints.
type Controller struct {
	badgeService services.BadgeService
	logger       *zap.Logger
	builder      *response.Builder
}

// NewController creates a new badge controller.
func NewController(badgeService services.BadgeService, logger *zap.Logger, builder *response.Builder) *Controller {
	return &Controller{
		badgeService: badgeService,
		logger:       logger,
		builder:      builder,
	}
}

// ListCatalog handles GET /api/v1/badges. Hidden badges are only listed
// for administrators.
func (c *Controller) ListCatalog(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r.Context())
	includeHidden := authCtx != nil && authCtx.IsAdmin()

	catalog, err := c.badgeService.ListCatalog(r.Context(), includeHidden)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteJSON(w, r, http.StatusOK, catalog)
}

// Create handles POST /api/v1/badges (admin).
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteValidationError(w, r, "Invalid request body format")
		return
	}

	badge, err := c.badgeService.CreateBadge(r.Context(), &req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteCreated(w, r, badge)
}

// Update handles PUT /api/v1/badges/{id} (admin).
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	badgeID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || badgeID <= 0 {
		c.builder.WriteValidationError(w, r, "Invalid badge id")
		return
	}

	var req services.UpdateBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteValidationError(w, r, "Invalid request body format")
		return
	}
	req.ID = badgeID

	badge, err := c.badgeService.UpdateBadge(r.Context(), &req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteJSON(w, r, http.StatusOK, badge)
}
