// Package handlers is the JSON surface over the catalog, the resolvers and
// the shopping assistant.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
	"github.com/NguyenVanDuc36/AffiliHub/pkg/logging"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status and code apperr assigns to err.
// Unclassified errors are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logging.L(r.Context()).Error("request failed", zap.Int("status", status), zap.Error(err))
		if apperr.Code(err) == "internal" {
			msg = "internal server error"
		}
	}
	writeJSON(w, status, ErrorResponse{Error: apperr.Code(err), Message: msg})
}

// decodeJSON reads one JSON object from the request body. Oversized and
// malformed bodies become invalid arguments.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body too large", apperr.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", apperr.ErrInvalidArgument, err)
	}
	return nil
}
