package tournament

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	apperrors "github.com/tt1717/battleserver/internal/errors"
	"github.com/tt1717/battleserver/internal/fstore"
	"github.com/tt1717/battleserver/internal/logger"
	"github.com/tt1717/battleserver/internal/userid"
)

// Bracket file layout: a '#' metadata line, a fixed column header, one
// comma-separated record per match. Legacy files without the metadata
// line and legacy 8-column records (no display names) are still readable.

const columnHeader = "round,matchId,player1,player2,player1Display,player2Display,p1wins,p2wins,status,winner,winnerDisplay"

// clean keeps display names from breaking the comma-separated records.
func clean(s string) string {
	return strings.NewReplacer(",", "", "\n", "", "\r", "").Replace(s)
}

func (c *Controller) encodeLocked() []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# format=%s,bestOf=%d,participants=%d,frozen=%t\n",
		c.format, c.bestOf, c.participants, c.frozen)
	sb.WriteString(columnHeader)
	sb.WriteString("\n")
	for _, m := range c.matches {
		fmt.Fprintf(&sb, "%d,%d,%s,%s,%s,%s,%d,%d,%s,%s,%s\n",
			m.Round, m.ID,
			m.P1, m.P2,
			clean(m.P1Display), clean(m.P2Display),
			m.P1Wins, m.P2Wins,
			m.Status,
			m.Winner, clean(m.WinnerDisplay))
	}
	return []byte(sb.String())
}

func (c *Controller) decodeLocked(data []byte) error {
	lines := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return fmt.Errorf("empty bracket file")
	}

	format := c.defaults.Format
	bestOf := c.defaults.BestOf
	frozen := false
	participants := 0

	if strings.HasPrefix(lines[0], "#") {
		for _, pair := range strings.Split(strings.TrimSpace(strings.TrimPrefix(lines[0], "#")), ",") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			switch k {
			case "format":
				format = v
			case "bestOf":
				if n, err := strconv.Atoi(v); err == nil {
					bestOf = n
				}
			case "participants":
				if n, err := strconv.Atoi(v); err == nil {
					participants = n
				}
			case "frozen":
				frozen = v == "true"
			}
		}
		lines = lines[1:]
		if len(lines) == 0 {
			return fmt.Errorf("bracket file has no column header")
		}
	}
	// With or without metadata, the next line is the column header.
	lines = lines[1:]

	var matches []*Match
	for _, line := range lines {
		m, err := decodeMatch(line)
		if err != nil {
			return err
		}
		matches = append(matches, m)
	}
	if len(matches) == 0 {
		return fmt.Errorf("bracket file has no matches")
	}

	if participants == 0 {
		for _, m := range matches {
			if m.Round == 1 {
				participants += 2
			}
		}
	}
	if bestOf < 1 {
		bestOf = 1
	}

	c.format = format
	c.bestOf = bestOf
	c.participants = participants
	c.frozen = frozen
	c.matches = matches
	c.playerMatch = map[string]*Match{}
	c.displayNames = map[string]string{}
	c.currentRound = 1

	for _, m := range matches {
		for id, display := range map[string]string{m.P1: m.P1Display, m.P2: m.P2Display} {
			if id == "" {
				continue
			}
			c.displayNames[id] = display
			if m.Status == StatusActive || m.Status == StatusWaiting {
				c.playerMatch[id] = m
			}
		}
		if (m.Status == StatusActive || m.Status == StatusComplete) && m.Round > c.currentRound {
			c.currentRound = m.Round
		}
	}

	c.initialized = true
	return nil
}

func decodeMatch(line string) (*Match, error) {
	cols := strings.Split(line, ",")
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}

	var m *Match
	switch {
	case len(cols) >= 11:
		m = &Match{
			Round:         atoi(cols[0]),
			ID:            atoi(cols[1]),
			P1:            cols[2],
			P2:            cols[3],
			P1Display:     cols[4],
			P2Display:     cols[5],
			P1Wins:        atoi(cols[6]),
			P2Wins:        atoi(cols[7]),
			Status:        Status(cols[8]),
			Winner:        cols[9],
			WinnerDisplay: cols[10],
		}
	case len(cols) == 8:
		// Legacy record without display columns: identity doubles as display.
		m = &Match{
			Round:         atoi(cols[0]),
			ID:            atoi(cols[1]),
			P1:            cols[2],
			P2:            cols[3],
			P1Display:     cols[2],
			P2Display:     cols[3],
			P1Wins:        atoi(cols[4]),
			P2Wins:        atoi(cols[5]),
			Status:        Status(cols[6]),
			Winner:        cols[7],
			WinnerDisplay: cols[7],
		}
	default:
		return nil, fmt.Errorf("malformed match record: %q", line)
	}

	switch m.Status {
	case StatusPending, StatusWaiting, StatusActive, StatusComplete:
	default:
		return nil, fmt.Errorf("unknown match status %q", m.Status)
	}
	if m.Round < 1 || m.ID < 1 {
		return nil, fmt.Errorf("malformed match record: %q", line)
	}
	m.P1 = userid.New(m.P1)
	m.P2 = userid.New(m.P2)
	m.Winner = userid.New(m.Winner)
	return m, nil
}

func (c *Controller) nextSeq() uint64 {
	c.saveSeq++
	return c.saveSeq
}

// saveSyncLocked persists immediately so the calling admin sees failures.
func (c *Controller) saveSyncLocked() error {
	if err := c.saver.writeSync(c.nextSeq(), c.encodeLocked()); err != nil {
		c.log.Error("failed to write bracket file: %v", err)
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

// saveAsyncLocked queues a snapshot for the writer; the latest snapshot
// wins, so a burst of battle results collapses into one write.
func (c *Controller) saveAsyncLocked() {
	c.saver.enqueue(c.nextSeq(), c.encodeLocked())
}

// saver serializes bracket writes. Snapshots carry a sequence number so a
// stale queued snapshot can never overwrite a newer synchronous write.
type saver struct {
	files *fstore.Store
	name  string
	log   *logger.Logger

	mu      sync.Mutex
	pending *snapshot

	kick    chan struct{}
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once

	wmu     sync.Mutex
	written uint64
}

type snapshot struct {
	seq  uint64
	data []byte
}

func newSaver(files *fstore.Store, name string, log *logger.Logger) *saver {
	s := &saver{
		files:   files,
		name:    name,
		log:     log,
		kick:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *saver) run() {
	for {
		select {
		case <-s.kick:
			s.flush()
		case <-s.quit:
			s.flush()
			close(s.stopped)
			return
		}
	}
}

func (s *saver) enqueue(seq uint64, data []byte) {
	s.mu.Lock()
	s.pending = &snapshot{seq: seq, data: data}
	s.mu.Unlock()
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *saver) flush() {
	// Hold the writer lock while taking the snapshot so a concurrent flush
	// returns only after an in-progress write has finished.
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()
	if snap == nil || snap.seq <= s.written {
		return
	}
	if err := s.files.Write(s.name, snap.data); err != nil {
		s.log.Error("failed to write bracket file: %v", err)
		return
	}
	s.written = snap.seq
}

func (s *saver) write(snap *snapshot) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if snap.seq <= s.written {
		return nil
	}
	if err := s.files.Write(s.name, snap.data); err != nil {
		return err
	}
	s.written = snap.seq
	return nil
}

// writeSync persists data immediately, bypassing the queue.
func (s *saver) writeSync(seq uint64, data []byte) error {
	return s.write(&snapshot{seq: seq, data: data})
}

// invalidate discards queued snapshots at or below seq.
func (s *saver) invalidate(seq uint64) {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	s.wmu.Lock()
	if seq > s.written {
		s.written = seq
	}
	s.wmu.Unlock()
}

// drain flushes any queued snapshot from the caller's goroutine.
func (s *saver) drain() {
	s.flush()
}

func (s *saver) close() {
	s.once.Do(func() { close(s.quit) })
	<-s.stopped
}
