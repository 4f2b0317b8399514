package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ligamaster/livematch/handlers"
	"github.com/ligamaster/livematch/middleware"
	"github.com/ligamaster/livematch/models"
)

type Handlers struct {
	Match     *handlers.MatchHandler
	Incident  *handlers.IncidentHandler
	Standings *handlers.StandingsHandler
	Live      *handlers.LiveHandler
}

// SetupRoutes wires the public read surface and the authenticated command
// surface. Every command, suspension included, requires a planillero or admin
// token; the services check the planillero is the one assigned to the match.
func SetupRoutes(h Handlers, jwtSecret string, allowedOrigins []string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/matches/{matchID}", func(r chi.Router) {
		// Public live views.
		r.Get("/", h.Match.GetMatchSnapshotHandler)
		r.Get("/clock", h.Match.GetMatchClockHandler)
		r.Get("/live", h.Live.ServeMatchStream)

		// Scorekeeper commands.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(models.RolePlanillero, models.RoleAdmin))

			r.Post("/start", h.Match.StartMatchHandler)
			r.Post("/end-first-half", h.Match.EndFirstHalfHandler)
			r.Post("/start-second-half", h.Match.StartSecondHalfHandler)
			r.Post("/end", h.Match.EndMatchHandler)
			r.Post("/finalize", h.Match.FinalizeMatchHandler)

			r.Post("/suspend", h.Match.SuspendMatchHandler)

			r.Post("/incidents", h.Incident.AppendIncidentHandler)
			r.Patch("/incidents/{incidentID}", h.Incident.EditIncidentHandler)
			r.Delete("/incidents/{incidentID}", h.Incident.DeleteIncidentHandler)
			r.Post("/mvp", h.Incident.SelectMVPHandler)
		})
	})

	router.Route("/zones/{zoneID}", func(r chi.Router) {
		r.Get("/matches", h.Match.ListZoneMatchesHandler)
		r.Get("/standings", h.Standings.GetZoneTableHandler)
		r.Get("/top-scorers", h.Standings.GetZoneTopScorersHandler)
	})

	return router
}
