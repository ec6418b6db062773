package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", apiHandler.RegisterHandler)
		r.Post("/auth/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Profile
			r.Get("/profile", apiHandler.GetProfileHandler)
			r.Put("/profile", apiHandler.UpdateProfileHandler)
			r.Put("/profile/password", apiHandler.ChangePasswordHandler)

			// Chat sessions
			r.Post("/sessions", apiHandler.CreateSessionHandler)
			r.Get("/sessions", apiHandler.ListSessionsHandler)
			r.Get("/sessions/{sessionID}", apiHandler.GetSessionDetailsHandler)
			r.Delete("/sessions/{sessionID}", apiHandler.DeleteSessionHandler)
			r.Post("/sessions/{sessionID}/messages", apiHandler.PostMessageHandler)

			// Message ratings
			r.Put("/messages/{messageID}/rating", apiHandler.RateMessageHandler)
			r.Delete("/messages/{messageID}/rating", apiHandler.UnrateMessageHandler)

			// Admin console
			r.Group(func(r chi.Router) {
				r.Use(apiHandler.AdminOnlyMiddleware)

				r.Get("/admin/users", apiHandler.AdminListUsersHandler)
				r.Post("/admin/users", apiHandler.AdminCreateUserHandler)
				r.Put("/admin/users/{userID}", apiHandler.AdminUpdateUserHandler)
				r.Delete("/admin/users/{userID}", apiHandler.AdminDeleteUserHandler)

				r.Get("/admin/settings", apiHandler.AdminListSettingsHandler)
				r.Put("/admin/settings", apiHandler.AdminUpdateSettingHandler)

				r.Get("/admin/llm-configs", apiHandler.AdminListLLMConfigsHandler)
				r.Post("/admin/llm-configs", apiHandler.AdminCreateLLMConfigHandler)
				r.Put("/admin/llm-configs/{configID}", apiHandler.AdminUpdateLLMConfigHandler)
				r.Post("/admin/llm-configs/{configID}/activate", apiHandler.AdminActivateLLMConfigHandler)
				r.Delete("/admin/llm-configs/{configID}", apiHandler.AdminDeleteLLMConfigHandler)

				r.Get("/admin/stats", apiHandler.AdminStatsHandler)

				r.Get("/admin/export/messages", apiHandler.ExportMessagesHandler)
				r.Get("/admin/export/sessions", apiHandler.ExportSessionsHandler)
			})
		})
	})

	return r
}
