package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), ".matrix", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AddAndRecent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i, env := range []string{"py38", "py39", "lint"} {
		_, err := s.Add(ctx, Record{
			Env:        env,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 5*time.Second),
			Failed:     env == "lint",
			Commands: []CommandRecord{
				{Argv: []string{"pytest"}, ExitCode: 0},
			},
		})
		require.NoError(t, err)
	}

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Newest first.
	assert.Equal(t, "lint", runs[0].Env)
	assert.True(t, runs[0].Failed)
	assert.Equal(t, "py38", runs[2].Env)
	assert.False(t, runs[2].Failed)

	assert.Equal(t, []string{"pytest"}, runs[0].Commands[0].Argv)
	assert.Equal(t, base.Add(2*time.Minute).UnixMilli(), runs[0].StartedAt.UnixMilli())
}

func TestStore_RecentLimit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Add(ctx, Record{
			Env:        "py38",
			StartedAt:  time.Now().Add(time.Duration(i) * time.Second),
			FinishedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStore_AssignsID(t *testing.T) {
	s := openStore(t)

	id, err := s.Add(context.Background(), Record{
		Env: "py38", StartedAt: time.Now(), FinishedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestStore_EmptyLedger(t *testing.T) {
	s := openStore(t)

	runs, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
