package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
	"github.com/NguyenVanDuc36/AffiliHub/internal/catalog"
)

// maxSimilarResults bounds ?max= so one request cannot ask the model to
// rank the whole catalog.
const maxSimilarResults = 20

type SimilarFinder interface {
	FindSimilar(ctx context.Context, sourceID int64, maxResults int) ([]catalog.Product, error)
}

type SimilarHandler struct {
	Finder SimilarFinder
}

func NewSimilarHandler(f SimilarFinder) *SimilarHandler {
	return &SimilarHandler{Finder: f}
}

// FindSimilar handles GET /api/products/{id}/similar?max=N. A missing max
// leaves the resolver default in place.
func (h *SimilarHandler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	maxResults := 0
	if raw := r.URL.Query().Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSimilarResults {
			writeError(w, r, fmt.Errorf("%w: max must be between 1 and %d", apperr.ErrInvalidArgument, maxSimilarResults))
			return
		}
		maxResults = n
	}

	products, err := h.Finder.FindSimilar(r.Context(), id, maxResults)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}
