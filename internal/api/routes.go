package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harvestguard/fieldsync/internal/reconcile"
	"github.com/harvestguard/fieldsync/internal/store"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler, st *store.SQLiteStore) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api", func(r chi.Router) {
		// Public routes (no auth required)
		r.Get("/health", h.Health)
		r.Post("/auth/register/", h.Register)
		r.Post("/auth/login/", h.Login)

		// Protected routes (token auth required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(st))

			r.Post("/auth/logout/", h.Logout)

			r.Post("/sync/", h.SyncAll)

			r.Route("/farms", func(r chi.Router) {
				r.Get("/", h.ListFarms)
				r.Post("/", h.CreateFarm)
				r.Post("/sync/", h.SyncKind(reconcile.KindFarms))
				r.Get("/pending_sync/", h.PendingSync(reconcile.KindFarms))
				r.Get("/{id}/", h.GetFarm)
				r.Put("/{id}/", h.UpdateFarm)
				r.Delete("/{id}/", h.DeleteFarm)
			})

			r.Route("/boundary-points", func(r chi.Router) {
				r.Get("/", h.ListBoundaryPoints)
				r.Post("/", h.CreateBoundaryPoint)
				r.Post("/sync/", h.SyncKind(reconcile.KindBoundaryPoints))
				r.Get("/pending_sync/", h.PendingSync(reconcile.KindBoundaryPoints))
				r.Get("/{id}/", h.GetBoundaryPoint)
				r.Put("/{id}/", h.UpdateBoundaryPoint)
				r.Delete("/{id}/", h.DeleteBoundaryPoint)
			})

			r.Route("/observation-points", func(r chi.Router) {
				r.Get("/", h.ListObservationPoints)
				r.Post("/", h.CreateObservationPoint)
				r.Post("/sync/", h.SyncKind(reconcile.KindObservationPoints))
				r.Get("/pending_sync/", h.PendingSync(reconcile.KindObservationPoints))
				r.Get("/{id}/", h.GetObservationPoint)
				r.Put("/{id}/", h.UpdateObservationPoint)
				r.Delete("/{id}/", h.DeleteObservationPoint)
			})

			r.Route("/inspection-suggestions", func(r chi.Router) {
				r.Get("/", h.ListSuggestions)
				r.Post("/", h.CreateSuggestion)
				r.Post("/sync/", h.SyncKind(reconcile.KindInspectionSuggestions))
				r.Get("/pending_sync/", h.PendingSync(reconcile.KindInspectionSuggestions))
				r.Get("/{id}/", h.GetSuggestion)
				r.Put("/{id}/", h.UpdateSuggestion)
				r.Delete("/{id}/", h.DeleteSuggestion)
			})

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", h.GetProfile)
				r.Put("/update_profile/", h.UpdateProfile)
				r.Post("/change_password/", h.ChangePassword)
				r.Post("/upload_picture/", h.UploadPicture)
				r.Get("/sync/", h.SyncProfile)
			})
		})
	})

	return r
}
