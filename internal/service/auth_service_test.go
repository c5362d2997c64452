package service

import (
	"testing"
	"time"

	"comparte/config"
	"comparte/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(f *fixture) *AuthService {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "test-access",
			RefreshSecret: "test-refresh",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "comparte",
		},
	}
	return NewAuthService(cfg, f.userRepo)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)

	u, access, refresh, err := svc.Register("Dora", "dora@example.com", "secret-pass", "591-700", "Av. Heroínas 123")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.NotEqual(t, "secret-pass", u.PasswordHash)

	claims, err := auth.ParseAccessToken(&svc.cfg.JWT, access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, _, _, err = svc.Register("Dora 2", "dora@example.com", "other-pass", "", "")
	assert.ErrorIs(t, err, ErrEmailExists)

	logged, _, _, err := svc.Login("dora@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	_, _, _, err = svc.Login("dora@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, _, _, err = svc.Login("nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestLoginWithGoogleLinksExistingEmail(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)

	u, _, _, err := svc.Register("Dora", "dora@example.com", "secret-pass", "", "")
	require.NoError(t, err)

	linked, _, _, isNew, err := svc.LoginWithGoogle("google-123", "dora@example.com", "Dora G", "https://pic")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, u.ID, linked.ID)
	require.NotNil(t, linked.GoogleID)
	assert.Equal(t, "google-123", *linked.GoogleID)
	assert.Equal(t, "https://pic", linked.PhotoURL)

	// Second sign-in hits the Google id directly.
	again, _, _, isNew, err := svc.LoginWithGoogle("google-123", "dora@example.com", "", "")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, u.ID, again.ID)
}

func TestLoginWithGoogleCreatesUser(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)

	u, access, _, isNew, err := svc.LoginWithGoogle("google-999", "new@example.com", "", "")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "new", u.Name) // derived from the email local part
	assert.NotEmpty(t, access)
}

func TestRefreshToken(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)

	u, _, refresh, err := svc.Register("Dora", "dora@example.com", "secret-pass", "", "")
	require.NoError(t, err)

	access2, refresh2, err := svc.RefreshToken(refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, refresh2)
	claims, err := auth.ParseAccessToken(&svc.cfg.JWT, access2)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, _, err = svc.RefreshToken("junk")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
