package main

import (
	"context"
	"testing"

	"github.com/pubshare/internal/db"
	"github.com/pubshare/internal/service"
	"github.com/pubshare/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupSeedDemoLibrary(t *testing.T) *service.Library {
	t.Helper()

	gdb, err := db.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	backend, err := store.NewBackend(gdb, store.Options{UploadDir: t.TempDir(), TokenSecret: "test-secret"})
	require.NoError(t, err)
	_, err = db.EnsureUser(gdb, "demo@example.com", "password123", "Demo")
	require.NoError(t, err)

	lib := service.New(backend.Client(nil), service.Options{})
	_, err = lib.Auth.Login(context.Background(), "demo@example.com", "password123")
	require.NoError(t, err)
	return lib
}

func TestSeedDemo(t *testing.T) {
	lib := setupSeedDemoLibrary(t)
	ctx := context.Background()

	created, err := seedDemo(ctx, lib, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, len(demoPublications), created)

	// 私有示例不会出现在公开列表中
	feed, err := lib.Publications.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, feed.Items, 2)

	hits, err := lib.Publications.Search(ctx, "consensus", 1, 10)
	require.NoError(t, err)
	require.Len(t, hits.Items, 1)

	coAuthors, err := lib.CoAuthors.List(ctx, hits.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, coAuthors, 1)
	assert.Equal(t, "Leslie Lamport", coAuthors[0].Name)
}

func TestSeedDemoRequiresSignIn(t *testing.T) {
	lib := setupSeedDemoLibrary(t)
	lib.Auth.Logout()

	created, err := seedDemo(context.Background(), lib, zap.NewNop())
	assert.Error(t, err)
	assert.Zero(t, created)
}
