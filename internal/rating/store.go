package rating

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/tt1717/battleserver/internal/fstore"
	"github.com/tt1717/battleserver/internal/logger"
	"github.com/tt1717/battleserver/internal/userid"
)

// Cache is an optional per-user memoization slot for ladder lookups, so a
// live user object can answer repeated rating queries without touching the
// ladder. Implementations are keyed by format.
type Cache interface {
	Rating(format string) (float64, bool)
	SetRating(format string, elo float64)
}

// Store owns one format's ladder. Rows are loaded lazily from disk on
// first access; every update re-sorts and rewrites the file.
type Store struct {
	format string
	files  *fstore.Store
	log    *logger.Logger

	mu     sync.Mutex
	rows   []*Row
	byID   map[string]*Row
	loaded bool
	saving bool
}

// NewStore creates a ladder store for format. Prefer Manager.ForFormat,
// which memoizes stores process-wide; direct construction is for tests.
func NewStore(format string, files *fstore.Store) *Store {
	return &Store{
		format: format,
		files:  files,
		log:    logger.Default().WithPrefix("ladder").WithField("format", format),
		byID:   map[string]*Row{},
	}
}

// Format returns the format identifier this store serves.
func (s *Store) Format() string { return s.format }

func (s *Store) fileName() string {
	return "ladder_" + s.format + ".tsv"
}

// load reads the ladder file. Caller holds mu. Failures are soft: the
// ladder starts empty and a warning is logged.
func (s *Store) load() {
	if s.loaded {
		return
	}
	s.loaded = true

	data, ok, err := s.files.Read(s.fileName())
	if err != nil {
		s.log.Warn("failed to read ladder file: %v", err)
		return
	}
	if !ok {
		s.log.Debug("no ladder file yet")
		return
	}

	s.rows = decodeLadder(data, userid.New, s.log)
	for _, r := range s.rows {
		s.byID[r.ID] = r
	}
	s.log.Info("loaded %d ladder rows", len(s.rows))
}

// save rewrites the ladder file. Caller holds mu. A save issued while one
// is already in flight is dropped; the next update saves again anyway.
func (s *Store) save() {
	if s.saving {
		s.log.Debug("save already in progress, dropping")
		return
	}
	s.saving = true
	defer func() { s.saving = false }()

	if err := s.files.Write(s.fileName(), encodeLadder(s.rows)); err != nil {
		s.log.Error("failed to write ladder file: %v", err)
	}
}

// Ladder returns a snapshot of the rows in ladder order.
func (s *Store) Ladder() []*Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	out := make([]*Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Rating returns a player's current ELO, 1000 if absent. A non-nil cache
// is consulted first and refreshed on miss.
func (s *Store) Rating(name string, cache Cache) float64 {
	if cache != nil {
		if elo, ok := cache.Rating(s.format); ok {
			return elo
		}
	}

	id := userid.New(name)
	s.mu.Lock()
	elo := float64(seedElo)
	s.load()
	if r, ok := s.byID[id]; ok {
		elo = r.Elo
	}
	s.mu.Unlock()

	if cache != nil {
		cache.SetRating(s.format, elo)
	}
	return elo
}

func (s *Store) ensureRow(name string) *Row {
	id := userid.New(name)
	if r, ok := s.byID[id]; ok {
		return r
	}
	r := newRow(id, name)
	s.rows = append(s.rows, r)
	s.byID[id] = r
	return r
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// reposition moves the row at index i to its sorted position: scan upward
// past rows rated at or below it, otherwise scan downward past rows rated
// above it, then splice. Ties keep insertion order on the way down.
func (s *Store) reposition(i int) {
	r := s.rows[i]
	j := i
	for j > 0 && s.rows[j-1].Elo <= r.Elo {
		j--
	}
	if j == i {
		for j < len(s.rows)-1 && s.rows[j+1].Elo > r.Elo {
			j++
		}
	}
	if j == i {
		return
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	s.rows = append(s.rows[:j], append([]*Row{r}, s.rows[j:]...)...)
}

// Update records a finished battle. p1Score is 1 for a p1 win, 0 for a
// loss, 0.5 for a tie; a negative score marks an invalidated battle and
// strips rating credit from both sides. Human-readable change lines are
// appended to sink when it is non-nil. Returns the applied p1 score and
// both players' new ELO. Persistence failures are logged, not returned:
// battle-end hooks are fire-and-forget.
func (s *Store) Update(p1Name, p2Name string, p1Score float64, sink io.Writer) (float64, float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	p1 := s.ensureRow(p1Name)
	p2 := s.ensureRow(p2Name)

	p2Score := 1 - p1Score
	if p1Score < 0 {
		p1Score, p2Score = 0, 0
	}

	// Both updates are computed from the pre-battle snapshot.
	p1Elo, p2Elo := p1.Elo, p2.Elo
	p1Glicko, p1RD := p1.Glicko, p1.RD
	p2Glicko, p2RD := p2.Glicko, p2.RD

	p1.Elo = updateElo(p1Elo, p2Elo, p1.Games, p1Score)
	p2.Elo = updateElo(p2Elo, p1Elo, p2.Games, p2Score)

	p1.Glicko, p1.RD = updateGlicko(p1Glicko, p1RD, p2Glicko, p2RD, p1Score)
	p2.Glicko, p2.RD = updateGlicko(p2Glicko, p2RD, p1Glicko, p1RD, p2Score)
	p1.GXE = glixare(p1.Glicko, p1.RD)
	p2.GXE = glixare(p2.Glicko, p2.RD)

	p1.recordOutcome(p2.ID, p1Score)
	p2.recordOutcome(p1.ID, p2Score)

	now := time.Now().Format("2006-01-02 15:04:05")
	p1.LastUpdate = now
	p2.LastUpdate = now

	s.reposition(s.indexOf(p1.ID))
	s.reposition(s.indexOf(p2.ID))

	s.save()

	if sink != nil {
		writeChange(sink, p1, p1Elo, p1Score)
		writeChange(sink, p2, p2Elo, p2Score)
	}

	s.log.Info("rated battle: %s %.1f - %.1f %s (elo %d, %d)",
		p1.Name, p1Score, p2Score, p2.Name, int(math.Round(p1.Elo)), int(math.Round(p2.Elo)))

	return p1Score, p1.Elo, p2.Elo
}

func writeChange(sink io.Writer, r *Row, oldElo, score float64) {
	verb := "tying"
	switch {
	case score > 0.6:
		verb = "winning"
	case score < 0.4:
		verb = "losing"
	}
	before := int(math.Round(oldElo))
	after := int(math.Round(r.Elo))
	fmt.Fprintf(sink, "%s's rating: %d → %d (%+d for %s)\n", r.Name, before, after, after-before, verb)
}

// Manager memoizes one Store per format identifier. Concurrent first
// accesses observe the same store and therefore the same row sequence.
type Manager struct {
	mu     sync.Mutex
	files  *fstore.Store
	stores map[string]*Store
}

// NewManager creates a Manager backed by the given file store.
func NewManager(files *fstore.Store) *Manager {
	return &Manager{
		files:  files,
		stores: map[string]*Store{},
	}
}

// ForFormat returns the ladder store for format, creating it on first use.
func (m *Manager) ForFormat(format string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	format = userid.New(format)
	if s, ok := m.stores[format]; ok {
		return s
	}
	s := NewStore(format, m.files)
	m.stores[format] = s
	return s
}
