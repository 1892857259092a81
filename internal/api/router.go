package api

import (
	"net/http"
	"time"

	"progresstracker/internal/api/handler"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(
	studentHandler *handler.StudentHandler,
	settingsHandler *handler.SettingsHandler,
	syncHandler *handler.SyncHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/students", studentHandler.RegisterRoutes)
		v1.Route("/settings", settingsHandler.RegisterRoutes)
		syncHandler.RegisterRoutes(v1)
	})

	return r
}
