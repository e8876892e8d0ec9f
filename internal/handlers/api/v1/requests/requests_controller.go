package requests

import (
	"encoding/json"
	"net/http"
	"strconv"

	"konfihub/internal/middleware"
	"konfihub/internal/models"
	"konfihub/internal/response"
	"konfihub/internal/services"

	"go.uber.org/zap"
)

// Controller handles the activity request endpoints.
type Controller struct {
	requestService services.RequestService
	logger         *zap.Logger
	builder        *response.Builder
}

// NewController creates a new request controller.
func NewController(requestService services.RequestService, logger *zap.Logger, builder *response.Builder) *Controller {
	return &Controller{
		requestService: requestService,
		logger:         logger,
		builder:        builder,
	}
}

// Create handles POST /api/v1/requests.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r.Context())

	var req services.CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteValidationError(w, r, "Invalid request body format")
		return
	}

	// The claim is always filed for the authenticated participant.
	req.ParticipantID = authCtx.ParticipantID

	request, err := c.requestService.CreateRequest(r.Context(), &req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteCreated(w, r, request)
}

// ListMine handles GET /api/v1/requests.
func (c *Controller) ListMine(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r.Context())

	requests, err := c.requestService.ListByParticipant(r.Context(), authCtx.ParticipantID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteJSON(w, r, http.StatusOK, requests)
}

// ListPending handles GET /api/v1/requests/pending (admin).
func (c *Controller) ListPending(w http.ResponseWriter, r *http.Request) {
	requests, err := c.requestService.ListPending(r.Context())
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteJSON(w, r, http.StatusOK, requests)
}

// updateStatusBody is the admin transition payload.
type updateStatusBody struct {
	NewStatus    models.RequestStatus `json:"new_status"`
	AdminComment string               `json:"admin_comment"`
}

// UpdateStatus handles PUT /api/v1/requests/{id}/status (admin).
func (c *Controller) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r.Context())

	requestID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || requestID <= 0 {
		c.builder.WriteValidationError(w, r, "Invalid request id")
		return
	}

	var body updateStatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		c.builder.WriteValidationError(w, r, "Invalid request body format")
		return
	}

	result, err := c.requestService.UpdateRequestStatus(r.Context(), &services.UpdateRequestStatusRequest{
		RequestID:    requestID,
		ApproverID:   authCtx.ParticipantID,
		NewStatus:    body.NewStatus,
		AdminComment: body.AdminComment,
	})
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Request status updated via API",
		zap.Int64("request_id", requestID),
		zap.String("new_status", string(body.NewStatus)),
		zap.Int("newly_awarded", len(result.NewlyAwardedBadges)),
	)
	c.builder.WriteJSON(w, r, http.StatusOK, result)
}
