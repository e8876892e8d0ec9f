package participants

import (
	"encoding/json"
	"net/http"
	"strconv"

	"konfihub/internal/middleware"
	"konfihub/internal/response"
	"konfihub/internal/services"

	"go.uber.org/zap"
)

// Controller handles the participant-scoped endpoints: history, earned
// badges, direct assignments and bonus grants.
type Controller struct {
	ledgerService services.LedgerService
	badgeService  services.BadgeService
	logger        *zap.Logger
	builder       *response.Builder
}

// NewController creates a new participant controller.
func NewController(
	ledgerService services.LedgerService,
	badgeService services.BadgeService,
	logger *zap.Logger,
	builder *response.Builder,
) *Controller {
	return &Controller{
		ledgerService: ledgerService,
		badgeService:  badgeService,
		logger:        logger,
		builder:       builder,
	}
}

// participantID extracts and authorizes the participant id from the
// path. Participants may only read their own data; admins may read any.
func (c *Controller) participantID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		c.builder.WriteValidationError(w, r, "Invalid participant id")
		return 0, false
	}

	authCtx := middleware.GetAuthContext(r.Context())
	if !authCtx.IsAdmin() && authCtx.ParticipantID != id {
		c.builder.WriteError(w, r, &services.ServiceError{
			Type:       "FORBIDDEN",
			Message:    "Access to another participant's data is not allowed",
			StatusCode: http.StatusForbidden,
		})
		return 0, false
	}
	return id, true
}

// GetHistory handles GET /api/v1/participants/{id}/history.
func (c *Controller) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := c.participantID(w, r)
	if !ok {
		return
	}

	history, err := c.ledgerService.GetHistory(r.Context(), id)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteJSON(w, r, http.StatusOK, history)
}

// GetBadges handles GET /api/v1/participants/{id}/badges.
func (c *Controller) GetBadges(w http.ResponseWriter, r *http.Request) {
	id, ok := c.participantID(w, r)
	if !ok {
		return
	}

	earned, err := c.badgeService.ListEarnedBadges(r.Context(), id)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteJSON(w, r, http.StatusOK, earned)
}

// AssignActivity handles POST /api/v1/participants/{id}/activities (admin).
func (c *Controller) AssignActivity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		c.builder.WriteValidationError(w, r, "Invalid participant id")
		return
	}

	var req services.AssignActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteValidationError(w, r, "Invalid request body format")
		return
	}
	req.ParticipantID = id

	result, err := c.ledgerService.AssignActivity(r.Context(), &req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteCreated(w, r, result)
}

// GrantBonus handles POST /api/v1/participants/{id}/bonus (admin).
func (c *Controller) GrantBonus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		c.builder.WriteValidationError(w, r, "Invalid participant id")
		return
	}

	var req services.GrantBonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteValidationError(w, r, "Invalid request body format")
		return
	}
	req.ParticipantID = id

	result, err := c.ledgerService.GrantBonus(r.Context(), &req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteCreated(w, r, result)
}

// Evaluate handles POST /api/v1/participants/{id}/badges/evaluate
// (admin). Forces a re-evaluation pass, e.g. after fixing a badge
// definition.
func (c *Controller) Evaluate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		c.builder.WriteValidationError(w, r, "Invalid participant id")
		return
	}

	newlyAwarded, err := c.badgeService.AwardEligibleBadges(r.Context(), id)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Manual badge evaluation completed",
		zap.Int64("participant_id", id),
		zap.Int("newly_awarded", len(newlyAwarded)),
	)
	c.builder.WriteJSON(w, r, http.StatusOK, newlyAwarded)
}
