package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/NguyenVanDuc36/AffiliHub/internal/handlers"
	"github.com/NguyenVanDuc36/AffiliHub/internal/metrics"
	"github.com/NguyenVanDuc36/AffiliHub/internal/middleware"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 512 * 1024

type Handlers struct {
	Products   *handlers.ProductHandler
	Similar    *handlers.SimilarHandler
	Comparison *handlers.ComparisonHandler
	Chat       *handlers.ChatHandler
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, requestTimeout time.Duration, h Handlers) {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.MaxBodySize(MaxBodyBytes))

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.Products.Categories)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.List)
			r.Get("/trending", h.Products.Trending)
			r.Get("/flash-sale", h.Products.FlashSale)
			r.Post("/detailed-comparison", h.Comparison.Compare)
			r.Get("/{id}", h.Products.Get)
			r.Get("/{id}/similar", h.Similar.FindSimilar)
		})

		r.Post("/ai/chat", h.Chat.Chat)
		r.Get("/ai/chat/{sessionId}", h.Chat.History)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}
