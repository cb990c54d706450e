package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shopsync/internal/domain/auth"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	s := NewFileStore(path)
	ctx := context.Background()

	pair := &auth.TokenPair{AccessToken: "acc", RefreshToken: "ref"}
	require.NoError(t, s.Save(ctx, pair))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, pair, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_LoadMissing(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))

	_, err := s.Load(context.Background())
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestFileStore_LoadIncompletePair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"accessToken":"acc"}`), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &auth.TokenPair{AccessToken: "acc-1", RefreshToken: "ref-1"}))
	require.NoError(t, s.Save(ctx, &auth.TokenPair{AccessToken: "acc-2", RefreshToken: "ref-2"}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acc-2", got.AccessToken)
	assert.Equal(t, "ref-2", got.RefreshToken)
}

func TestFileStore_ClearIdempotent(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	ctx := context.Background()

	require.NoError(t, s.Clear(ctx), "clearing before any save")

	require.NoError(t, s.Save(ctx, &auth.TokenPair{AccessToken: "acc", RefreshToken: "ref"}))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNoCredentials)
}
