package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
	"github.com/NguyenVanDuc36/AffiliHub/internal/comparison"
)

type Comparer interface {
	Compare(ctx context.Context, productIDs []int64, preference string) (comparison.Result, error)
}

type ComparisonRequest struct {
	ProductIDs     []int64 `json:"productIds" validate:"required,min=2,max=10"`
	UserPreference string  `json:"userPreference" validate:"max=500"`
}

type ComparisonHandler struct {
	Comparer  Comparer
	validator *validator.Validate
}

func NewComparisonHandler(c Comparer) *ComparisonHandler {
	return &ComparisonHandler{Comparer: c, validator: validator.New()}
}

// Compare handles POST /api/products/detailed-comparison.
func (h *ComparisonHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req ComparisonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %s", apperr.ErrInvalidArgument, describeValidation(err)))
		return
	}

	res, err := h.Comparer.Compare(r.Context(), req.ProductIDs, req.UserPreference)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "ProductIDs":
			parts = append(parts, "productIds must hold between 2 and 10 ids")
		case "UserPreference":
			parts = append(parts, "userPreference must be at most 500 characters")
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
