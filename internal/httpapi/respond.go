package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/forPelevin/gifcut/internal/types"
)

type errorResponse struct {
	Error   string             `json:"error"`
	Message string             `json:"message"`
	Hint    string             `json:"hint,omitempty"`
	Details []types.FieldError `json:"details,omitempty"`
}

// StatusFor maps an error category to its HTTP status.
func StatusFor(c types.Category) int {
	switch c {
	case types.CategoryInvalidRequest:
		return http.StatusBadRequest
	case types.CategorySourceInvalid:
		return http.StatusUnprocessableEntity
	case types.CategorySourceBlocked:
		return http.StatusBadGateway
	case types.CategoryTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	e := types.AsError(err)
	writeJSONStatus(w, StatusFor(e.Category), errorResponse{
		Error:   string(e.Category),
		Message: e.Message,
		Hint:    e.Hint,
		Details: e.Fields,
	})
}

func writeJSONError(w http.ResponseWriter, status int, category, message string) {
	writeJSONStatus(w, status, errorResponse{Error: category, Message: message})
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("encode JSON response failed", "error", err)
	}
}
