package utils

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/forumfeed/identity"
)

func TestGenerateAndParseToken(t *testing.T) {
	v := identity.Viewer{ID: "u-1", DisplayName: "Linh", AvatarURL: "https://img.example/linh.png"}
	token, err := GenerateToken(v, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, v, claims.Viewer())
}

func TestParseTokenRejects(t *testing.T) {
	expired, err := GenerateToken(identity.Viewer{ID: "u-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	noViewer, err := GenerateToken(identity.Viewer{}, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(noViewer)
	assert.Error(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{ViewerID: "u-1"})
	signed, err := foreign.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = ParseToken(signed)
	assert.Error(t, err)

	_, err = ParseToken("not-a-jwt")
	assert.Error(t, err)
}

func TestBlacklistInMemory(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsTokenBlacklisted(ctx, "tok-a"))

	BlacklistToken(ctx, "tok-a", time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted(ctx, "tok-a"))

	// already expired tokens are not stored
	BlacklistToken(ctx, "tok-b", time.Now().Add(-time.Second))
	assert.False(t, IsTokenBlacklisted(ctx, "tok-b"))
}
