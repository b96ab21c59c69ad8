package sqlrepo_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/fm-metrics/members"
	"github.com/jrsteele09/fm-metrics/members/sqlrepo"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *sqlrepo.Repo {
	t.Helper()

	database, err := sqlrepo.OpenSQLite(filepath.Join(t.TempDir(), "data", "members.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return sqlrepo.New(database, members.NewHasher([]byte("test-secret")))
}

func TestRepo_RecordAndCount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	first := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	require.NoError(t, repo.Record(ctx, "user-1", first))
	require.NoError(t, repo.Record(ctx, "user-2", first))
	require.NoError(t, repo.Record(ctx, "user-1", later))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	m, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, m.Logins)
	require.True(t, m.FirstSeenAt.Equal(first))
	require.True(t, m.LastSeenAt.Equal(later))
	require.NotEqual(t, "user-1", m.IDHash)
}

func TestRepo_RecordRequiresUserID(t *testing.T) {
	repo := newTestRepo(t)
	require.Error(t, repo.Record(context.Background(), "", time.Now()))
}

func TestRepo_GetUnknown(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Get(context.Background(), "nobody")
	require.Error(t, err)
}
