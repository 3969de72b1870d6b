package api

import (
	"net/http"

	apperrors "github.com/tt1717/battleserver/internal/errors"
)

type createTournamentRequest struct {
	Format  string   `json:"format"`
	Players []string `json:"players"`
	BestOf  int      `json:"bestOf"`
	Shuffle bool     `json:"shuffle"`
}

func (s *Server) handleTournamentCreate(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Format == "" {
		writeError(w, r, apperrors.NewValidationError("format", "must not be empty"))
		return
	}
	if req.BestOf == 0 {
		req.BestOf = 1
	}

	if err := s.Tournament.Initialize(req.Format, req.Players, req.BestOf, req.Shuffle); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"format":  req.Format,
		"players": len(req.Players),
		"bestOf":  req.BestOf,
	})
}

func (s *Server) handleTournamentInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"initialized": s.Tournament.IsInitialized(),
		"frozen":      s.Tournament.IsFrozen(),
	})
}

func (s *Server) handleTournamentStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.Tournament.Status()))
}

func (s *Server) handleTournamentFreeze(w http.ResponseWriter, r *http.Request) {
	if err := s.Tournament.Freeze(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"frozen": true})
}

func (s *Server) handleTournamentResume(w http.ResponseWriter, r *http.Request) {
	if err := s.Tournament.Resume(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"frozen": false})
}

func (s *Server) handleTournamentReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Tournament.Reset(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"initialized": false})
}

type forceWinRequest struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

// handleTournamentForceWin lets an admin credit a series win directly,
// e.g. for a no-show. It rides the same path as a reported battle.
func (s *Server) handleTournamentForceWin(w http.ResponseWriter, r *http.Request) {
	var req forceWinRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Winner == "" || req.Loser == "" {
		writeError(w, r, apperrors.NewValidationError("winner/loser", "must not be empty"))
		return
	}
	if !s.Tournament.CanMatch(req.Winner, req.Loser) {
		writeError(w, r, apperrors.NewNotFoundError("active series", req.Winner+" vs "+req.Loser))
		return
	}
	s.Tournament.RecordWin(req.Winner, req.Loser)
	writeJSON(w, http.StatusOK, map[string]string{"winner": req.Winner})
}

func (s *Server) handleTournamentCanMatch(w http.ResponseWriter, r *http.Request) {
	a := r.URL.Query().Get("p1")
	b := r.URL.Query().Get("p2")
	writeJSON(w, http.StatusOK, map[string]bool{"canMatch": s.Tournament.CanMatch(a, b)})
}

func (s *Server) handleTournamentCanSearch(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	writeJSON(w, http.StatusOK, map[string]bool{"canSearch": s.Tournament.CanSearch(user)})
}

func (s *Server) handleTournamentOpponent(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	writeJSON(w, http.StatusOK, map[string]string{"opponent": s.Tournament.Opponent(user)})
}
