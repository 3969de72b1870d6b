package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(rateLimitMiddleware(s.RatePerSec, s.RateBurst))

	r.Route("/tournament", func(r chi.Router) {
		r.Get("/", s.handleTournamentInfo)
		r.Post("/", s.handleTournamentCreate)
		r.Post("/freeze", s.handleTournamentFreeze)
		r.Post("/resume", s.handleTournamentResume)
		r.Post("/reset", s.handleTournamentReset)
		r.Post("/forcewin", s.handleTournamentForceWin)
		r.Get("/status", s.handleTournamentStatus)
		r.Get("/canmatch", s.handleTournamentCanMatch)
		r.Get("/cansearch", s.handleTournamentCanSearch)
		r.Get("/opponent", s.handleTournamentOpponent)
	})

	r.Route("/ladder/{format}", func(r chi.Router) {
		r.Get("/", s.handleLadderTop)
		r.Get("/rating", s.handleLadderRating)
		r.Get("/search", s.handleLadderSearch)
		r.Get("/users/{name}", s.handleLadderUser)
	})

	r.Post("/battles", s.handleBattleReport)
	r.Get("/battles", s.handleBattleHistory)

	return r
}
