package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tt1717/battleserver/internal/battlelog"
	"github.com/tt1717/battleserver/internal/fstore"
)

// NewTestBattleLog creates an in-memory battle history store.
func NewTestBattleLog(t *testing.T) *battlelog.Store {
	s, err := battlelog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

// NewTestFiles creates a file store over a fresh temporary directory.
func NewTestFiles(t *testing.T) *fstore.Store {
	s, err := fstore.New(t.TempDir())
	require.NoError(t, err)
	return s
}
