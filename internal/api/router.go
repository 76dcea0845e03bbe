// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novatune/backend/internal/auth"
	"github.com/novatune/backend/internal/domain"
)

// Router assembles the NovaTune HTTP surface from its per-domain handler
// groups and the shared auth/rate-limit/CORS middleware stack.
type Router struct {
	authMW *auth.Middleware
	chiMW  *ChiMiddleware

	auth      *AuthHandlers
	tracks    *TrackHandlers
	playlists *PlaylistHandlers
	uploads   *UploadHandlers
	telemetry *TelemetryHandlers
	admin     *AdminHandlers
	health    *HealthHandlers
}

// NewRouter wires a Router from its middleware and handler groups.
func NewRouter(
	authMW *auth.Middleware,
	chiMW *ChiMiddleware,
	authHandlers *AuthHandlers,
	tracks *TrackHandlers,
	playlists *PlaylistHandlers,
	uploads *UploadHandlers,
	telemetry *TelemetryHandlers,
	adminHandlers *AdminHandlers,
	health *HealthHandlers,
) *Router {
	return &Router{
		authMW:    authMW,
		chiMW:     chiMW,
		auth:      authHandlers,
		tracks:    tracks,
		playlists: playlists,
		uploads:   uploads,
		telemetry: telemetry,
		admin:     adminHandlers,
		health:    health,
	}
}

// chiAuthenticate adapts auth.Middleware.Authenticate (an
// http.HandlerFunc-wrapping middleware) to chi's func(http.Handler)
// http.Handler middleware shape, so it can sit in an r.Use() chain.
func chiAuthenticate(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Handler builds the complete chi.Router for the API process.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(E2EDebugLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMW.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMW.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", router.health.Live)
		r.Get("/ready", router.health.Ready)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.With(router.chiMW.RateLimitCustom(RateLimitLogin)).Post("/register", router.auth.Register)
		r.With(router.chiMW.RateLimitCustom(RateLimitLogin)).Post("/login", router.auth.Login)
		r.With(router.chiMW.RateLimitCustom(RateLimitLogin)).Post("/refresh", router.auth.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(chiAuthenticate(router.authMW.Authenticate))
			r.Use(router.chiMW.RateLimitCustom(RateLimitWrite))
			r.Post("/logout", router.auth.Logout)
			r.Post("/logout-all", router.auth.LogoutAll)
		})
	})

	r.Route("/api/v1/tracks", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiAuthenticate(router.authMW.Authenticate))

		r.Group(func(r chi.Router) {
			r.Use(router.chiMW.RateLimitCustom(RateLimitRead))
			r.Get("/", router.tracks.List)
			r.Get("/{trackID}", router.tracks.Get)
			r.Get("/{trackID}/stream", router.tracks.Stream)
		})
		r.Group(func(r chi.Router) {
			r.Use(router.chiMW.RateLimitCustom(RateLimitWrite))
			r.Put("/{trackID}", router.tracks.Update)
			r.Delete("/{trackID}", router.tracks.Delete)
			r.Post("/{trackID}/restore", router.tracks.Restore)
		})
	})

	r.Route("/api/v1/playlists", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiAuthenticate(router.authMW.Authenticate))

		r.Group(func(r chi.Router) {
			r.Use(router.chiMW.RateLimitCustom(RateLimitRead))
			r.Get("/", router.playlists.List)
			r.Get("/{playlistID}", router.playlists.Get)
		})
		r.Group(func(r chi.Router) {
			r.Use(router.chiMW.RateLimitCustom(RateLimitWrite))
			r.Post("/", router.playlists.Create)
			r.Put("/{playlistID}", router.playlists.Update)
			r.Delete("/{playlistID}", router.playlists.Delete)
			r.Post("/{playlistID}/tracks", router.playlists.AddTracks)
			r.Delete("/{playlistID}/tracks", router.playlists.RemoveAt)
			r.Post("/{playlistID}/reorder", router.playlists.Reorder)
		})
	})

	r.Route("/api/v1/uploads", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiAuthenticate(router.authMW.Authenticate))
		r.Use(router.chiMW.RateLimitCustom(RateLimitUpload))
		r.Post("/", router.uploads.Initiate)
	})

	r.Route("/api/v1/telemetry", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiAuthenticate(router.authMW.Authenticate))
		r.Use(router.chiMW.RateLimitCustom(RateLimitTelemetry))
		r.Post("/playback", router.telemetry.Record)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(router.chiMW.RateLimitCustom(RateLimitWrite))

		requireAdmin := func(next http.HandlerFunc) http.HandlerFunc {
			return router.authMW.RequireRole(domain.RoleAdmin, next)
		}

		r.Get("/audit", requireAdmin(router.admin.ListAudit))
		r.Get("/audit/verify", requireAdmin(router.admin.VerifyAudit))

		r.Get("/users", requireAdmin(router.admin.ListUsers))
		r.Get("/users/{userID}", requireAdmin(router.admin.GetUser))
		r.Put("/users/{userID}/status", requireAdmin(router.admin.UpdateUserStatus))

		r.Get("/tracks", requireAdmin(router.admin.ListTracks))
		r.Get("/tracks/{trackID}", requireAdmin(router.admin.GetTrack))
		r.Put("/tracks/{trackID}/moderate", requireAdmin(router.admin.ModerateTrack))
		r.Delete("/tracks/{trackID}", requireAdmin(router.admin.DeleteTrack))
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
