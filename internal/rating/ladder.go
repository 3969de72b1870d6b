// Package rating maintains per-format player ladders. Each battle updates
// both players' ELO and Glicko-1 numbers, derives the confidence-weighted
// GXE estimate, patches head-to-head records, and keeps the ladder sorted
// by ELO descending.
package rating

import (
	"math"
	"strconv"
)

// Seed values for a player's first appearance on a ladder.
const (
	seedElo    = 1000
	seedGlicko = 1500
	seedRD     = 130
)

// GXE is the expected win chance against a 1500-rated reference opponent,
// as a percentage. It is Unknown while the rating is provisional (RD > 100).
type GXE struct {
	Value   float64
	Unknown bool
}

func (g GXE) String() string {
	if g.Unknown {
		return "Unknown"
	}
	return strconv.FormatFloat(g.Value, 'f', -1, 64)
}

// Record is a head-to-head tally against one opponent.
type Record struct {
	W int `json:"w"`
	L int `json:"l"`
	T int `json:"t"`
}

// Row is one player's entry on one format's ladder.
type Row struct {
	ID         string
	Name       string
	Elo        float64
	W, L, T    int
	Glicko     float64
	RD         float64
	GXE        GXE
	Games      int
	LastUpdate string
	H2H        map[string]*Record
}

func newRow(id, name string) *Row {
	return &Row{
		ID:     id,
		Name:   name,
		Elo:    seedElo,
		Glicko: seedGlicko,
		RD:     seedRD,
		GXE:    GXE{Unknown: true},
		H2H:    map[string]*Record{},
	}
}

// Versus returns the head-to-head record against opp, zero if none.
func (r *Row) Versus(opp string) Record {
	if rec, ok := r.H2H[opp]; ok {
		return *rec
	}
	return Record{}
}

func (r *Row) h2hAgainst(opp string) *Record {
	rec, ok := r.H2H[opp]
	if !ok {
		rec = &Record{}
		r.H2H[opp] = rec
	}
	return rec
}

// recordOutcome bumps the W/L/T counters for a battle scored score for this
// row, both on the row itself and on its head-to-head entry against opp.
// The thresholds predate the 0/0.5/1 score encoding and are kept as-is.
func (r *Row) recordOutcome(opp string, score float64) {
	rec := r.h2hAgainst(opp)
	switch {
	case score > 0.6:
		r.W++
		rec.W++
	case score < 0.4:
		r.L++
		rec.L++
	default:
		r.T++
		rec.T++
	}
	r.Games++
}

func roundTenth(x float64) float64 {
	return math.Round(x*10) / 10
}
