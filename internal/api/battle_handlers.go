package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/tt1717/battleserver/internal/battlelog"
	apperrors "github.com/tt1717/battleserver/internal/errors"
	"github.com/tt1717/battleserver/internal/userid"
	"github.com/tt1717/battleserver/internal/worker"
)

type battleReportRequest struct {
	Format     string  `json:"format"`
	P1         string  `json:"p1"`
	P2         string  `json:"p2"`
	P1Score    float64 `json:"p1Score"`
	Rated      bool    `json:"rated"`
	Tournament bool    `json:"tournament"`
}

// handleBattleReport is the battle-end hook: it feeds the bracket, the
// ladder, and the history log. Bracket and ladder bookkeeping never fail
// the request; a result that fits no active series is logged and skipped.
func (s *Server) handleBattleReport(w http.ResponseWriter, r *http.Request) {
	var req battleReportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Format == "" || req.P1 == "" || req.P2 == "" {
		writeError(w, r, apperrors.NewValidationError("format/p1/p2", "must not be empty"))
		return
	}

	winner, loser := "", ""
	switch {
	case req.P1Score > 0.6:
		winner, loser = req.P1, req.P2
	case req.P1Score >= 0 && req.P1Score < 0.4:
		winner, loser = req.P2, req.P1
	}

	// Draws don't move a series, so the bracket only hears about wins.
	if req.Tournament && winner != "" {
		s.Tournament.RecordWin(winner, loser)
	}

	resp := map[string]any{"winner": userid.New(winner)}
	if req.Rated {
		var sink strings.Builder
		score, p1Elo, p2Elo := s.Ratings.ForFormat(req.Format).Update(req.P1, req.P2, req.P1Score, &sink)
		resp["p1Score"] = score
		resp["p1Elo"] = p1Elo
		resp["p2Elo"] = p2Elo
		resp["messages"] = strings.Split(strings.TrimRight(sink.String(), "\n"), "\n")
	}

	s.recordBattle(r.Context(), battlelog.Battle{
		Format:  userid.New(req.Format),
		P1:      userid.New(req.P1),
		P2:      userid.New(req.P2),
		P1Score: req.P1Score,
		Winner:  userid.New(winner),
		Rated:   req.Rated,
	})

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recordBattle(ctx context.Context, b battlelog.Battle) {
	if s.Battles == nil {
		return
	}
	if s.Pool == nil {
		_ = s.Battles.Insert(ctx, b) // Insert logs its own failures
		return
	}
	s.Pool.Submit(worker.Func{
		JobName: "battlelog-insert",
		Fn: func(ctx context.Context) error {
			return s.Battles.Insert(ctx, b)
		},
	})
}

func (s *Server) handleBattleHistory(w http.ResponseWriter, r *http.Request) {
	if s.Battles == nil {
		writeError(w, r, apperrors.NewNotFoundError("battle history", "disabled"))
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	battles, err := s.Battles.Recent(r.Context(), battlelog.Filter{
		Format: userid.New(q.Get("format")),
		Player: userid.New(q.Get("player")),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, r, apperrors.NewInternalError(err))
		return
	}

	type battleJSON struct {
		ID       string  `json:"id"`
		Format   string  `json:"format"`
		P1       string  `json:"p1"`
		P2       string  `json:"p2"`
		P1Score  float64 `json:"p1Score"`
		Winner   string  `json:"winner,omitempty"`
		Rated    bool    `json:"rated"`
		PlayedAt string  `json:"playedAt"`
	}
	out := make([]battleJSON, 0, len(battles))
	for _, b := range battles {
		out = append(out, battleJSON{
			ID:       b.ID,
			Format:   b.Format,
			P1:       b.P1,
			P2:       b.P2,
			P1Score:  b.P1Score,
			Winner:   b.Winner,
			Rated:    b.Rated,
			PlayedAt: b.PlayedAt.Format("2006-01-02 15:04:05"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"battles": out})
}
