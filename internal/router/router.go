package router

import (
	"phonedeck/internal/handler"
	"phonedeck/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	SyncHandler      *handler.SyncHandler
	InventoryHandler *handler.InventoryHandler
	ExportHandler    *handler.ExportHandler
	EbayHandler      *handler.EbayHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
			r.Get("/status", cfg.Handler.Status)
		}

		if cfg.SyncHandler != nil {
			r.Post("/sync", cfg.SyncHandler.Trigger)
			r.Get("/sync/status", cfg.SyncHandler.Status)
		}

		if cfg.InventoryHandler != nil {
			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", cfg.InventoryHandler.List)
				r.Post("/", cfg.InventoryHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.InventoryHandler.Get)
					r.Patch("/", cfg.InventoryHandler.Update)
					r.Delete("/", cfg.InventoryHandler.Delete)
					r.Post("/listing/generate", cfg.InventoryHandler.GenerateListing)
				})
			})
		}

		if cfg.ExportHandler != nil {
			r.Get("/export/csv", cfg.ExportHandler.CSV)
		}

		if cfg.EbayHandler != nil {
			r.Route("/ebay", func(r chi.Router) {
				r.Get("/connect", cfg.EbayHandler.Connect)
				r.Get("/callback", cfg.EbayHandler.Callback)
				r.Get("/status", cfg.EbayHandler.Status)
				r.Post("/disconnect", cfg.EbayHandler.Disconnect)
				r.Post("/publish/{id}", cfg.EbayHandler.Publish)
			})
		}
	})

	return r
}
