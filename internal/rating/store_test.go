package rating_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tt1717/battleserver/internal/fstore"
	"github.com/tt1717/battleserver/internal/rating"
)

func newTestStore(t *testing.T) (*rating.Store, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := fstore.New(dir)
	require.NoError(t, err)
	return rating.NewStore("gen1ou", files), dir
}

func TestUpdate_FirstWin(t *testing.T) {
	s, _ := newTestStore(t)

	var sink strings.Builder
	score, p1Elo, p2Elo := s.Update("Alice", "Bob", 1, &sink)

	assert.Equal(t, 1.0, score)
	assert.InDelta(t, 1016, p1Elo, 1e-9)
	assert.Equal(t, 1000.0, p2Elo, "loser stays on the floor")

	rows := s.Ladder()
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].ID)
	assert.Equal(t, "bob", rows[1].ID)

	alice, bob := rows[0], rows[1]
	assert.Equal(t, 1, alice.W)
	assert.Equal(t, 0, alice.L)
	assert.Equal(t, 1, alice.Games)
	assert.Equal(t, 1, bob.L)
	assert.Equal(t, 1, bob.Games)

	assert.Equal(t, rating.Record{W: 1}, alice.Versus("bob"))
	assert.Equal(t, rating.Record{L: 1}, bob.Versus("alice"))

	out := sink.String()
	assert.Contains(t, out, "Alice's rating: 1000 → 1016")
	assert.Contains(t, out, "winning")
	assert.Contains(t, out, "Bob's rating: 1000 → 1000")
}

func TestUpdate_Tie(t *testing.T) {
	s, _ := newTestStore(t)

	score, _, _ := s.Update("Alice", "Bob", 0.5, nil)
	assert.Equal(t, 0.5, score)

	rows := s.Ladder()
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, 1, r.T)
		assert.Equal(t, 0, r.W)
		assert.Equal(t, 0, r.L)
		assert.Equal(t, 1, r.Games)
	}
	assert.Equal(t, rating.Record{T: 1}, rows[0].Versus(rows[1].ID))
}

func TestUpdate_InvalidatedBattle(t *testing.T) {
	s, _ := newTestStore(t)

	score, p1Elo, p2Elo := s.Update("Alice", "Bob", -1, nil)

	assert.Equal(t, 0.0, score, "invalidated battles score zero for both")
	assert.Equal(t, 1000.0, p1Elo)
	assert.Equal(t, 1000.0, p2Elo)

	for _, r := range s.Ladder() {
		assert.Equal(t, 1, r.L, "both sides take the loss")
	}
}

func TestUpdate_Invariants(t *testing.T) {
	s, _ := newTestStore(t)

	players := []string{"Alice", "Bob", "Carol", "Dave"}
	scores := []float64{1, 0, 0.5, 1, 1, 0, 0.5, 0, 1, 1}
	k := 0
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			s.Update(players[i], players[j], scores[k%len(scores)], nil)
			s.Update(players[j], players[i], scores[(k+3)%len(scores)], nil)
			k++
		}
	}

	rows := s.Ladder()
	wins, losses := 0, 0
	for i, r := range rows {
		assert.GreaterOrEqual(t, r.Elo, 1000.0)
		assert.GreaterOrEqual(t, r.RD, 10.0)
		assert.LessOrEqual(t, r.RD, 350.0)
		assert.Equal(t, r.Games, r.W+r.L+r.T)
		assert.Equal(t, r.GXE.Unknown, r.RD > 100, "GXE is Unknown iff RD > 100")
		if i > 0 {
			assert.LessOrEqual(t, r.Elo, rows[i-1].Elo, "ladder sorted by elo descending")
		}
		wins += r.W
		losses += r.L
	}
	assert.Equal(t, wins, losses, "every win is someone's loss")

	// H2H symmetry across every pair.
	byID := map[string]*rating.Row{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	for _, a := range rows {
		for oppID, rec := range a.H2H {
			b := byID[oppID]
			require.NotNil(t, b)
			back := b.Versus(a.ID)
			assert.Equal(t, rec.W, back.L)
			assert.Equal(t, rec.L, back.W)
			assert.Equal(t, rec.T, back.T)
		}
	}
}

func TestUpdate_PersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	files, err := fstore.New(dir)
	require.NoError(t, err)

	s := rating.NewStore("gen1ou", files)
	s.Update("Alice", "Bob", 1, nil)
	s.Update("Carol", "Alice", 0.5, nil)

	want := s.Ladder()

	// A fresh store over the same directory reads the same ladder back.
	s2 := rating.NewStore("gen1ou", files)
	got := s2.Ladder()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.InDelta(t, want[i].Elo, got[i].Elo, 1e-9)
		assert.Equal(t, want[i].W, got[i].W)
		assert.Equal(t, want[i].L, got[i].L)
		assert.Equal(t, want[i].T, got[i].T)
		assert.InDelta(t, want[i].Glicko, got[i].Glicko, 1e-9)
		assert.InDelta(t, want[i].RD, got[i].RD, 1e-9)
		assert.Equal(t, want[i].Games, got[i].Games)
		assert.Equal(t, want[i].GXE.Unknown, got[i].GXE.Unknown)
		for opp, rec := range want[i].H2H {
			assert.Equal(t, *rec, got[i].Versus(opp))
		}
	}
}

func TestLadderFileFormat(t *testing.T) {
	dir := t.TempDir()
	files, err := fstore.New(dir)
	require.NoError(t, err)

	s := rating.NewStore("gen1ou", files)
	s.Update("Alice", "Bob", 1, nil)

	raw, err := os.ReadFile(filepath.Join(dir, "ladder_gen1ou.tsv"))
	require.NoError(t, err)

	lines := strings.Split(string(raw), "\r\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t,
		"Elo\tUsername\tW\tL\tT\tGlicko\tRating_Deviation\tGXE\tGames_Played\tLast_update\tH2H_Data",
		lines[0])

	cols := strings.Split(lines[1], "\t")
	require.Len(t, cols, 11)
	assert.Equal(t, "1016", cols[0])
	assert.Equal(t, "Alice", cols[1])
	assert.Equal(t, "Unknown", cols[7], "fresh RD is provisional")
	assert.Contains(t, cols[10], `"bob"`)
}

func TestLoad_LegacyFiveColumnRows(t *testing.T) {
	dir := t.TempDir()
	files, err := fstore.New(dir)
	require.NoError(t, err)

	legacy := "1240\tAlice\t30\t10\t0\r\n" +
		"1100\tBob\t5\t5\t0\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ladder_gen1ou.tsv"), []byte(legacy), 0o644))

	s := rating.NewStore("gen1ou", files)
	rows := s.Ladder()
	require.Len(t, rows, 2)

	alice := rows[0]
	assert.Equal(t, "alice", alice.ID)
	assert.Equal(t, 1240.0, alice.Elo)
	assert.Equal(t, 40, alice.Games)
	assert.Equal(t, 50.0, alice.RD, "rd = 130 - 2*games")
	assert.False(t, alice.GXE.Unknown)

	bob := rows[1]
	assert.Equal(t, 10, bob.Games)
	assert.Equal(t, 110.0, bob.RD)
	assert.True(t, bob.GXE.Unknown)
}

func TestLoad_LegacyRDFloor(t *testing.T) {
	dir := t.TempDir()
	files, err := fstore.New(dir)
	require.NoError(t, err)

	legacy := "1400\tVet\t60\t40\t0\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ladder_gen1ou.tsv"), []byte(legacy), 0o644))

	s := rating.NewStore("gen1ou", files)
	rows := s.Ladder()
	require.Len(t, rows, 1)
	assert.Equal(t, 30.0, rows[0].RD, "synthesized rd floors at 30")
}

func TestLoad_BadH2HResets(t *testing.T) {
	dir := t.TempDir()
	files, err := fstore.New(dir)
	require.NoError(t, err)

	row := "1016\tAlice\t1\t0\t0\t1540.2\t122.9\tUnknown\t1\t2026-01-01 00:00:00\tnot-json\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ladder_gen1ou.tsv"), []byte(row), 0o644))

	s := rating.NewStore("gen1ou", files)
	rows := s.Ladder()
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].H2H)
	assert.Equal(t, rating.Record{}, rows[0].Versus("bob"))
}

type memoCache struct {
	vals map[string]float64
	hits int
}

func (c *memoCache) Rating(format string) (float64, bool) {
	v, ok := c.vals[format]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *memoCache) SetRating(format string, elo float64) {
	if c.vals == nil {
		c.vals = map[string]float64{}
	}
	c.vals[format] = elo
}

func TestRating(t *testing.T) {
	s, _ := newTestStore(t)
	s.Update("Alice", "Bob", 1, nil)

	assert.InDelta(t, 1016, s.Rating("Alice", nil), 1e-9)
	assert.InDelta(t, 1016, s.Rating("A L I C E!", nil), 1e-9, "lookup is by identity")
	assert.Equal(t, 1000.0, s.Rating("stranger", nil), "absent players default to 1000")

	cache := &memoCache{}
	assert.InDelta(t, 1016, s.Rating("Alice", cache), 1e-9)
	assert.InDelta(t, 1016, s.Rating("Alice", cache), 1e-9)
	assert.Equal(t, 1, cache.hits, "second lookup served from the cache")
}

func TestTopAndVisualize(t *testing.T) {
	s, _ := newTestStore(t)
	s.Update("Alice", "Bob", 1, nil)
	s.Update("Alice", "Amber", 1, nil)

	top := s.Top("")
	assert.Contains(t, top, "Alice")
	assert.Contains(t, top, "Bob")
	assert.Contains(t, top, "Amber")
	assert.True(t, strings.HasPrefix(top, "<tr><th>Rank</th>"))

	filtered := s.Top("a")
	assert.Contains(t, filtered, "Alice")
	assert.Contains(t, filtered, "Amber")
	assert.NotContains(t, filtered, "Bob")

	vis := s.Visualize("alice")
	assert.Contains(t, vis, "gen1ou")
	assert.Contains(t, vis, "<strong>")
	assert.Empty(t, s.Visualize("nobody"))
}

func TestTopEscapesNames(t *testing.T) {
	s, _ := newTestStore(t)
	s.Update("<script>x", "Bob", 1, nil)

	assert.NotContains(t, s.Top(""), "<script>")
}

func TestManagerMemoizes(t *testing.T) {
	files, err := fstore.New(t.TempDir())
	require.NoError(t, err)

	m := rating.NewManager(files)
	a := m.ForFormat("gen1ou")
	b := m.ForFormat("gen1ou")
	c := m.ForFormat("Gen 1 OU")
	d := m.ForFormat("gen2ou")

	assert.Same(t, a, b)
	assert.Same(t, a, c, "format keys are canonicalized")
	assert.NotSame(t, a, d)
}
