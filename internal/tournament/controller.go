package tournament

import (
	"fmt"
	"strings"
	"sync"

	apperrors "github.com/tt1717/battleserver/internal/errors"
	"github.com/tt1717/battleserver/internal/fstore"
	"github.com/tt1717/battleserver/internal/logger"
	"github.com/tt1717/battleserver/internal/userid"
)

const stateFile = "tournament.csv"

// Defaults supply startup-time tournament parameters: they fill the gaps
// when loading legacy bracket files and, when AutoInit is set, seed a new
// tournament on startup if no persisted one exists.
type Defaults struct {
	Format   string
	BestOf   int
	Players  []string
	Shuffle  bool
	AutoInit bool
}

// Controller owns the state of at most one active tournament. Admin
// mutations persist synchronously so failures reach the caller;
// battle-end bookkeeping persists through a coalescing write queue.
type Controller struct {
	files    *fstore.Store
	log      *logger.Logger
	defaults Defaults
	saver    *saver

	mu           sync.Mutex
	saveSeq      uint64
	initialized  bool
	frozen       bool
	format       string
	bestOf       int
	participants int
	currentRound int
	matches      []*Match
	playerMatch  map[string]*Match
	displayNames map[string]string
}

// NewController creates a bracket controller persisting into files.
func NewController(files *fstore.Store, defaults Defaults) *Controller {
	log := logger.Default().WithPrefix("tournament")
	return &Controller{
		files:        files,
		log:          log,
		defaults:     defaults,
		saver:        newSaver(files, stateFile, log),
		playerMatch:  map[string]*Match{},
		displayNames: map[string]string{},
	}
}

// Close drains any queued bracket write and stops the writer.
func (c *Controller) Close() {
	c.saver.close()
}

// Flush blocks until queued bracket writes have hit disk.
func (c *Controller) Flush() {
	c.saver.drain()
}

// Initialize creates a tournament. Players are display names; their
// canonical identities must be unique and number a power of two.
func (c *Controller) Initialize(format string, players []string, bestOf int, randomize bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initLocked(format, players, bestOf, randomize)
}

func (c *Controller) initLocked(format string, players []string, bestOf int, randomize bool) error {
	if c.initialized {
		return apperrors.NewConflictError("a tournament is already running")
	}
	if bestOf < 1 || bestOf > 999 {
		return apperrors.NewValidationError("bestOf", "must be between 1 and 999")
	}
	if !isPowerOfTwo(len(players)) {
		return apperrors.NewValidationError("players", "count must be a power of two, at least 2")
	}

	names := make([]string, len(players))
	copy(names, players)
	if randomize {
		shuffle(names)
	}

	seen := map[string]bool{}
	for _, name := range names {
		id := userid.New(name)
		if id == "" || seen[id] {
			return apperrors.NewValidationError("players", fmt.Sprintf("duplicate or empty identity %q", name))
		}
		seen[id] = true
	}

	n := len(names)
	c.format = format
	c.bestOf = bestOf
	c.participants = n
	c.currentRound = 1
	c.frozen = false
	c.matches = nil
	c.playerMatch = map[string]*Match{}
	c.displayNames = map[string]string{}

	// Round 1: pair consecutive entries of the seed order.
	seeds := seedOrder(n)
	nextID := 1
	for i := 0; i < n; i += 2 {
		p1 := names[seeds[i]-1]
		p2 := names[seeds[i+1]-1]
		m := &Match{
			Round:     1,
			ID:        nextID,
			P1:        userid.New(p1),
			P2:        userid.New(p2),
			P1Display: p1,
			P2Display: p2,
			Status:    StatusActive,
		}
		nextID++
		c.matches = append(c.matches, m)
		c.playerMatch[m.P1] = m
		c.playerMatch[m.P2] = m
		c.displayNames[m.P1] = p1
		c.displayNames[m.P2] = p2
	}

	// Later rounds are pre-allocated with empty slots.
	for round, count := 2, n/4; count >= 1; round, count = round+1, count/2 {
		for i := 0; i < count; i++ {
			c.matches = append(c.matches, &Match{Round: round, ID: nextID, Status: StatusPending})
			nextID++
		}
	}

	c.initialized = true
	c.log.Info("tournament created: format=%s players=%d bestOf=%d", format, n, bestOf)

	if err := c.saveSyncLocked(); err != nil {
		return err
	}
	return nil
}

// LoadOrInitialize resumes a persisted tournament if one exists, else
// auto-creates one from the configured defaults, else stays idle. It never
// fails; load problems are reduced to warnings.
func (c *Controller) LoadOrInitialize() {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok, err := c.files.Read(stateFile)
	if err != nil {
		c.log.Warn("failed to read bracket file: %v", err)
	}
	if ok && err == nil {
		if err := c.decodeLocked(data); err != nil {
			c.log.Warn("discarding unreadable bracket file: %v", err)
		} else {
			c.log.Info("tournament resumed: format=%s round=%d frozen=%t", c.format, c.currentRound, c.frozen)
			return
		}
	}

	if !c.defaults.AutoInit {
		return
	}
	if err := c.initLocked(c.defaults.Format, c.defaults.Players, c.defaults.BestOf, c.defaults.Shuffle); err != nil {
		c.log.Warn("auto-init skipped: %v", err)
	}
}

// IsInitialized reports whether a tournament is running.
func (c *Controller) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// IsFrozen reports whether advancement is suspended.
func (c *Controller) IsFrozen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frozen
}

// earliestIncompleteRound is the minimum round among active or waiting
// matches, or the current round when none exist. Caller holds mu.
func (c *Controller) earliestIncompleteRound() int {
	round := 0
	for _, m := range c.matches {
		if m.Status != StatusActive && m.Status != StatusWaiting {
			continue
		}
		if round == 0 || m.Round < round {
			round = m.Round
		}
	}
	if round == 0 {
		return c.currentRound
	}
	return round
}

// CanMatch reports whether a and b are each other's opponents in an active
// match. While frozen, the match must also sit in the earliest incomplete
// round.
func (c *Controller) CanMatch(a, b string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return false
	}

	aid, bid := userid.New(a), userid.New(b)
	m := c.playerMatch[aid]
	if m == nil || m.Status != StatusActive || m.opponentOf(aid) != bid {
		return false
	}
	if c.frozen && m.Round != c.earliestIncompleteRound() {
		return false
	}
	return true
}

// CanSearch reports whether id still has a series to play: its match is
// active or waiting, subject to the freeze restriction.
func (c *Controller) CanSearch(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return false
	}

	m := c.playerMatch[userid.New(id)]
	if m == nil || (m.Status != StatusActive && m.Status != StatusWaiting) {
		return false
	}
	if c.frozen && m.Round != c.earliestIncompleteRound() {
		return false
	}
	return true
}

// Opponent returns the identity id is currently paired against, or ""
// when id has no active match.
func (c *Controller) Opponent(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.playerMatch[userid.New(id)]
	if m == nil || m.Status != StatusActive {
		return ""
	}
	return m.opponentOf(userid.New(id))
}

// RecordWin credits one battle win to winner in its shared series with
// loser. Reaching floor(bestOf/2)+1 wins completes the match and advances
// the winner. A battle that does not map onto an active series is logged
// and dropped: battle-end hooks never fail.
func (c *Controller) RecordWin(winner, loser string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return
	}

	wid, lid := userid.New(winner), userid.New(loser)
	m := c.playerMatch[wid]
	if m == nil || m.Status != StatusActive || m.opponentOf(wid) != lid {
		c.log.Warn("no active series for %s vs %s, ignoring result", wid, lid)
		return
	}

	if m.P1 == wid {
		m.P1Wins++
	} else {
		m.P2Wins++
	}

	threshold := c.bestOf/2 + 1
	wins := m.P1Wins
	if m.P2 == wid {
		wins = m.P2Wins
	}
	c.log.Debug("match %d: %s leads %d-%d (first to %d)", m.ID, wid, m.P1Wins, m.P2Wins, threshold)

	if wins >= threshold {
		m.Status = StatusComplete
		m.Winner = wid
		m.WinnerDisplay = c.displayNames[wid]
		delete(c.playerMatch, m.P1)
		delete(c.playerMatch, m.P2)
		c.log.Info("match %d complete: %s defeats %s %d-%d", m.ID, wid, lid, m.P1Wins, m.P2Wins)
		c.advanceWinner(m)
	}

	c.saveAsyncLocked()
}

// advanceWinner places m's winner into its slot in the next round.
// Caller holds mu.
func (c *Controller) advanceWinner(m *Match) {
	if m.Round == totalRounds(c.participants) {
		c.log.Info("tournament won by %s", m.WinnerDisplay)
		return
	}
	if c.frozen {
		c.log.Info("tournament frozen, not advancing winner of match %d", m.ID)
		return
	}

	next := c.nextMatch(m)
	if next == nil {
		return
	}

	switch {
	case next.P1 == "":
		next.P1 = m.Winner
		next.P1Display = m.WinnerDisplay
	case next.P2 == "":
		next.P2 = m.Winner
		next.P2Display = m.WinnerDisplay
	default:
		c.log.Error("integrity: match %d already has both players, cannot place winner of match %d", next.ID, m.ID)
		return
	}

	c.playerMatch[m.Winner] = next
	if next.P1 != "" && next.P2 != "" {
		next.Status = StatusActive
		c.playerMatch[next.P1] = next
		c.playerMatch[next.P2] = next
		if next.Round > c.currentRound {
			c.currentRound = next.Round
		}
		c.log.Info("match %d ready: %s vs %s", next.ID, next.P1, next.P2)
	} else {
		next.Status = StatusWaiting
	}
}

// nextMatch resolves the next-round match fed by m, or nil (with an
// integrity log) when the bracket shape does not contain it.
func (c *Controller) nextMatch(m *Match) *Match {
	firstID := 0
	for _, x := range c.matches {
		if x.Round == m.Round && (firstID == 0 || x.ID < firstID) {
			firstID = x.ID
		}
	}
	nextIndex := (m.ID - firstID) / 2

	i := 0
	for _, x := range c.matches {
		if x.Round != m.Round+1 {
			continue
		}
		if i == nextIndex {
			return x
		}
		i++
	}
	c.log.Error("integrity: no match at index %d of round %d for winner of match %d", nextIndex, m.Round+1, m.ID)
	return nil
}

// Freeze suspends advancement. Completed matches stop feeding the next
// round until Resume.
func (c *Controller) Freeze() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return apperrors.NewConflictError("no tournament is running")
	}
	if c.frozen {
		return apperrors.NewConflictError("tournament is already frozen")
	}
	c.frozen = true
	c.log.Info("tournament frozen")
	return c.saveSyncLocked()
}

// Resume lifts a freeze and places every winner whose advancement was
// blocked, in ascending match order.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return apperrors.NewConflictError("no tournament is running")
	}
	if !c.frozen {
		return apperrors.NewConflictError("tournament is not frozen")
	}
	c.frozen = false

	last := totalRounds(c.participants)
	for _, m := range c.matches {
		if m.Status != StatusComplete || m.Round == last {
			continue
		}
		next := c.nextMatch(m)
		if next == nil || next.P1 == m.Winner || next.P2 == m.Winner {
			continue
		}
		c.advanceWinner(m)
	}

	c.log.Info("tournament resumed")
	return c.saveSyncLocked()
}

// Reset clears all tournament state and deletes the bracket file.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.initialized = false
	c.frozen = false
	c.format = ""
	c.bestOf = 0
	c.participants = 0
	c.currentRound = 0
	c.matches = nil
	c.playerMatch = map[string]*Match{}
	c.displayNames = map[string]string{}

	c.saver.invalidate(c.nextSeq())
	if err := c.files.Remove(stateFile); err != nil {
		c.log.Error("failed to remove bracket file: %v", err)
		return apperrors.NewPersistenceError(err)
	}
	c.log.Info("tournament reset")
	return nil
}

// Matches returns a snapshot of all matches in id order.
func (c *Controller) Matches() []Match {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Match, len(c.matches))
	for i, m := range c.matches {
		out[i] = *m
	}
	return out
}

// Status renders the bracket as a human-readable multi-line string,
// rounds in order with a per-match annotation.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return "No tournament is currently running."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Tournament: %s (best of %d, %d players)", c.format, c.bestOf, c.participants)
	if c.frozen {
		sb.WriteString(" [frozen]")
	}
	sb.WriteString("\n")

	round := 0
	for _, m := range c.matches {
		if m.Round != round {
			round = m.Round
			fmt.Fprintf(&sb, "Round %d\n", round)
		}
		sb.WriteString("  ")
		sb.WriteString(describeMatch(m))
		sb.WriteString("\n")
	}
	return sb.String()
}

func describeMatch(m *Match) string {
	name := func(display string) string {
		if display == "" {
			return "?"
		}
		return display
	}
	switch m.Status {
	case StatusComplete:
		return fmt.Sprintf("Match %d: %s vs %s (%d-%d, winner %s)",
			m.ID, name(m.P1Display), name(m.P2Display), m.P1Wins, m.P2Wins, m.WinnerDisplay)
	case StatusActive:
		return fmt.Sprintf("Match %d: %s vs %s (%d-%d, in progress)",
			m.ID, name(m.P1Display), name(m.P2Display), m.P1Wins, m.P2Wins)
	case StatusWaiting:
		return fmt.Sprintf("Match %d: %s vs %s (waiting)",
			m.ID, name(m.P1Display), name(m.P2Display))
	default:
		return fmt.Sprintf("Match %d: (pending)", m.ID)
	}
}
