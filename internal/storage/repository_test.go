package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return NewRepository(db)
}

func TestSaveAndListQueryLogs(t *testing.T) {
	repo := newRepo(t)

	base := time.Now().Add(-time.Hour)
	entries := []QueryLog{
		{CreatedAt: base, View: "positions", Input: "BTC", Outcome: "ok", Rows: 4},
		{CreatedAt: base.Add(time.Minute), View: "trades", Input: "0xabc", Outcome: "transport_error", ErrorKind: "transport", Error: "boom"},
		{CreatedAt: base.Add(2 * time.Minute), View: "positions", Input: "ETH", Outcome: "domain_error", ErrorKind: "domain", Error: "No whale addresses found"},
	}
	for i := range entries {
		require.NoError(t, repo.SaveQueryLog(&entries[i]))
		assert.NotZero(t, entries[i].ID)
	}

	all, err := repo.RecentQueryLogs("", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ETH", all[0].Input)
	assert.Equal(t, "BTC", all[2].Input)

	positions, err := repo.RecentQueryLogs("positions", 1)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "domain_error", positions[0].Outcome)

	n, err := repo.CountSince("positions", base.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPrune(t *testing.T) {
	repo := newRepo(t)

	old := QueryLog{CreatedAt: time.Now().Add(-48 * time.Hour), View: "recent", Outcome: "ok"}
	fresh := QueryLog{CreatedAt: time.Now(), View: "recent", Outcome: "ok"}
	require.NoError(t, repo.SaveQueryLog(&old))
	require.NoError(t, repo.SaveQueryLog(&fresh))

	removed, err := repo.Prune(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	left, err := repo.RecentQueryLogs("recent", 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, fresh.ID, left[0].ID)
}
