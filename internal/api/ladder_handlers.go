package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/lithammer/fuzzysearch/fuzzy"

	apperrors "github.com/tt1717/battleserver/internal/errors"
	"github.com/tt1717/battleserver/internal/userid"
)

func (s *Server) handleLadderTop(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	prefix := userid.New(r.URL.Query().Get("prefix"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(s.Ratings.ForFormat(format).Top(prefix)))
}

func (s *Server) handleLadderUser(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	name := chi.URLParam(r, "name")

	row := s.Ratings.ForFormat(format).Visualize(name)
	if row == "" {
		writeError(w, r, apperrors.NewNotFoundError("ladder entry", name))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(row))
}

func (s *Server) handleLadderRating(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, r, apperrors.NewValidationError("user", "must not be empty"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": userid.New(user),
		"elo":  s.Ratings.ForFormat(format).Rating(user, nil),
	})
}

// handleLadderSearch fuzzy-matches usernames on the ladder, for looking
// up players whose exact spelling you don't remember.
func (s *Server) handleLadderSearch(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, r, apperrors.NewValidationError("q", "must not be empty"))
		return
	}

	var names []string
	for _, row := range s.Ratings.ForFormat(format).Ladder() {
		names = append(names, row.Name)
	}

	ranks := fuzzy.RankFindFold(q, names)
	sort.Sort(ranks)
	matches := make([]string, 0, len(ranks))
	for _, rank := range ranks {
		matches = append(matches, rank.Target)
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}
