package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"catalog-sync-service/internal/auth"
	"catalog-sync-service/internal/catalog"
	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/remote"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (h *harness) remoteUser(t *testing.T, id int64) *catalog.User {
	t.Helper()
	items, err := h.userTable.MemoryTable.Scan(context.Background())
	require.NoError(t, err)
	for _, item := range items {
		if u := remote.DecodeUser(item); u.ID == id {
			return u
		}
	}
	return nil
}

func TestRunOnce_RegisteredUserKeepsMobileCredential(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.ResolutionRemoteWins)
	svc := auth.NewService(
		h.users,
		auth.NewPasswordHasher(bcrypt.MinCost),
		auth.NewTokenManager(config.AuthConfig{JWTSecret: "secret", Issuer: "test"}),
	)

	ruth, err := svc.Register(ctx, "Ruth", "Rosero", "secret")
	require.NoError(t, err)

	_, err = h.manager.RunOnce(ctx)
	require.NoError(t, err)

	// The uploaded password is the digest the mobile login compares against.
	uploaded := h.remoteUser(t, ruth.ID)
	require.NotNil(t, uploaded)
	assert.Equal(t, sha256Hex("secret"), uploaded.Password)

	// Pulling the same row back keeps the local bcrypt hash.
	local, err := h.users.Get(ctx, ruth.ID)
	require.NoError(t, err)
	assert.True(t, local.Synced)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(local.LocalHash), []byte("secret")))
	_, err = svc.Login(ctx, "Ruth", "secret")
	require.NoError(t, err)

	// A password changed on a phone replaces the digest and drops the stale hash.
	changed := *uploaded
	changed.Password = sha256Hex("nueva")
	require.NoError(t, h.userTable.Put(ctx, remote.EncodeUser(&changed)))

	res := h.manager.pullUsers(ctx, "test")
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.ok)

	local, err = h.users.Get(ctx, ruth.ID)
	require.NoError(t, err)
	assert.Empty(t, local.LocalHash)
	_, err = svc.Login(ctx, "Ruth", "nueva")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "Ruth", "secret")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}
