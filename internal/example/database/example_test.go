package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/bandsense/internal/database"
	"github.com/go-sod/bandsense/internal/example/model"
	"github.com/go-sod/bandsense/pkg/math/vector"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewFromEnv(ctx, &database.Config{FileName: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close(ctx)
	})
	return New(db)
}

func TestDBAppendFind(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	batch := []model.Example{
		model.NewExample("s1", 2, vector.V{3, 4}, now.Add(2*time.Second)),
		model.NewExample("s1", 1, vector.V{1, 2}, now),
		model.NewExample("s2", 1, vector.V{5, 6}, now),
	}
	require.NoError(t, db.AppendMany(ctx, batch))

	got, err := db.FindBySession(ctx, "s1", nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Label)
	assert.Equal(t, vector.V{1, 2}, got[0].Features)
	assert.Equal(t, 2, got[1].Label)

	filtered, err := db.FindBySession(ctx, "s1", func(e model.Example) bool { return e.Label == 2 })
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	count, err := db.CountBySession("s2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	sessions, err := db.Sessions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, sessions)
}

func TestDBDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	batch := []model.Example{
		model.NewExample("s1", 1, vector.V{1}, time.Now()),
		model.NewExample("s1", 2, vector.V{2}, time.Now()),
	}
	require.NoError(t, db.AppendMany(ctx, batch))

	require.NoError(t, db.DeleteMany(ctx, batch[:1]))
	count, err := db.CountBySession("s1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, db.DeleteSession(ctx, "s1"))
	count, err = db.CountBySession("s1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	sessions, err := db.Sessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// unknown session is not an error
	require.NoError(t, db.DeleteSession(ctx, "missing"))
	got, err := db.FindBySession(ctx, "missing", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
