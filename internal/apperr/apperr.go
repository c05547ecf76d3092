// Package apperr holds the failure kinds surfaced by the resolvers and
// their mapping onto HTTP responses.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrNotFound means a referenced product does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument means the request cannot be served as given.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpstreamFormat means the generator answered with unusable JSON.
	ErrUpstreamFormat = errors.New("upstream format error")
	// ErrStorage marks cache backend failures. Resolvers absorb it.
	ErrStorage = errors.New("storage error")
	// ErrGeneration means the generator call itself failed.
	ErrGeneration = errors.New("generation failed")
)

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrUpstreamFormat):
		return "upstream_format"
	case errors.Is(err, ErrGeneration):
		if errors.Is(err, context.DeadlineExceeded) {
			return "generation_timeout"
		}
		return "generation_failed"
	default:
		return "internal"
	}
}

// HTTPStatus maps err onto a response status.
func HTTPStatus(err error) int {
	switch Code(err) {
	case "":
		return http.StatusOK
	case "not_found":
		return http.StatusNotFound
	case "invalid_argument":
		return http.StatusBadRequest
	case "upstream_format", "generation_failed":
		return http.StatusBadGateway
	case "generation_timeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
