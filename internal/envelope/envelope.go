// Package envelope writes the uniform JSON response envelope used by every endpoint.
package envelope

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/streamhub/backend/internal/apperrors"
	"github.com/streamhub/backend/internal/logging"
)

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// JSON writes a success envelope carrying data.
func JSON(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	write(ctx, w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Error writes the failure envelope for err. Causes of internal errors are logged and never
// sent to the client.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperrors.StatusOf(err)
	message := apperrors.MessageOf(err)

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", slog.Int("status", status), slog.Any("error", err))
	default:
		logger.Warn("request returned client error", slog.Int("status", status), slog.String("message", message))
	}

	write(ctx, w, status, ErrorResponse{StatusCode: status, Message: message, Success: false})
}

func write(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", slog.Int("status", status), slog.Any("error", err))
	}
}
