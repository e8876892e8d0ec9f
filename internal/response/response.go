package response

import (
	"encoding/json"
	"net/http"
	"time"

	"konfihub/internal/middleware"
	"konfihub/internal/services"

	"go.uber.org/zap"
)

// ===============================
// RESPONSE TYPES
// ===============================

// APIResponse represents a standardized API response envelope.
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// ErrorDetail represents error information in API responses.
type ErrorDetail struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ===============================
// BUILDER
// ===============================

// Builder writes uniform JSON envelopes.
type Builder struct {
	logger        *zap.Logger
	maskInternals bool
}

// NewBuilder creates a response builder. In production internal error
// messages are masked.
func NewBuilder(logger *zap.Logger, maskInternals bool) *Builder {
	return &Builder{
		logger:        logger,
		maskInternals: maskInternals,
	}
}

// WriteJSON writes a success envelope.
func (b *Builder) WriteJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	b.write(w, r, status, &APIResponse{
		Success: true,
		Data:    data,
	})
}

// WriteCreated writes a 201 success envelope.
func (b *Builder) WriteCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, http.StatusCreated, data)
}

// WriteError maps a service error onto the envelope and its HTTP status.
func (b *Builder) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := services.GetServiceError(err)

	message := serviceErr.Message
	if b.maskInternals && serviceErr.GetStatusCode() >= http.StatusInternalServerError {
		message = "An unexpected error occurred"
	}

	if serviceErr.GetStatusCode() >= http.StatusInternalServerError {
		b.logger.Error("Request failed with internal error",
			zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)
	}

	b.write(w, r, serviceErr.GetStatusCode(), &APIResponse{
		Success: false,
		Error: &ErrorDetail{
			Type:    serviceErr.Type,
			Message: message,
			Code:    serviceErr.Code,
			Details: serviceErr.Details,
		},
	})
}

// WriteValidationError writes a 400 envelope for malformed input that
// never reached the service layer.
func (b *Builder) WriteValidationError(w http.ResponseWriter, r *http.Request, message string) {
	b.WriteError(w, r, services.NewValidationError(message, nil))
}

func (b *Builder) write(w http.ResponseWriter, r *http.Request, status int, resp *APIResponse) {
	resp.RequestID = middleware.GetRequestID(r.Context())
	resp.Timestamp = time.Now().Unix()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		b.logger.Error("Failed to encode response", zap.Error(err))
	}
}
