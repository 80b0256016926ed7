package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"catalog-sync-service/internal/catalog"
	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/database"
)

func testTokens(ttl string) *TokenManager {
	return NewTokenManager(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: ttl, Issuer: "catalog-sync-service"})
}

func setupService(t *testing.T) (*Service, *catalog.UserRepository) {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewDatabase(config.DatabaseConnection{Driver: database.DriverSQLite, FilePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, catalog.Migrate(ctx, db))

	users := catalog.NewUserRepository(db)
	return NewService(users, NewPasswordHasher(bcrypt.MinCost), testTokens("5m")), users
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, h.Verify("s3cret", hash))
	assert.False(t, h.Verify("wrong", hash))
}

func TestPasswordHasher_LegacyDigest(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	sum := sha256.Sum256([]byte("1234"))
	legacy := hex.EncodeToString(sum[:])

	assert.Equal(t, legacy, h.Digest("1234"))
	assert.True(t, h.Verify("1234", strings.ToUpper(legacy)))

	assert.True(t, h.Verify("1234", legacy))
	assert.False(t, h.Verify("12345", legacy))
	assert.False(t, h.Verify("1234", "not-a-hash"))
}

func TestTokenManager(t *testing.T) {
	m := testTokens("1m")

	token, err := m.Generate(42, "Ruth")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "Ruth", claims.FirstName)
	assert.Equal(t, "42", claims.Subject)

	_, err = m.Validate(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenManager(config.AuthConfig{JWTSecret: "other", Issuer: "catalog-sync-service"})
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Expired(t *testing.T) {
	m := testTokens("1m")
	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "catalog-sync-service",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, users := setupService(t)

	u, err := svc.Register(ctx, " Ruth ", "Rosero", "s3cret")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	stored, err := users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ruth", stored.FirstName)
	assert.False(t, stored.Synced)
	sum := sha256.Sum256([]byte("s3cret"))
	assert.Equal(t, hex.EncodeToString(sum[:]), stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.LocalHash), []byte("s3cret")))

	_, err = svc.Register(ctx, "Ruth", "Other", "x")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Register(ctx, "Ana", "", "x")
	assert.ErrorIs(t, err, catalog.ErrInvalid)

	session, err := svc.Login(ctx, "Ruth", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(300), session.ExpiresIn)

	claims, err := svc.Authenticate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, err = svc.Login(ctx, "Ruth", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "Nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_LoginWithPulledLegacyUser(t *testing.T) {
	ctx := context.Background()
	svc, users := setupService(t)

	sum := sha256.Sum256([]byte("clave"))
	require.NoError(t, users.Upsert(ctx, &catalog.User{
		ID:        9,
		FirstName: "Dennis",
		LastName:  "Trujillo",
		Password:  hex.EncodeToString(sum[:]),
		Synced:    true,
	}))

	session, err := svc.Login(ctx, "Dennis", "clave")
	require.NoError(t, err)
	assert.Equal(t, int64(9), session.User.ID)
}
