package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cppla/forumfeed/config"
	"github.com/cppla/forumfeed/identity"
)

// Claims defines JWT claims issued by the identity provider.
type Claims struct {
	ViewerID    string `json:"viewer_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

// Viewer converts claims to the viewer they describe.
func (c *Claims) Viewer() identity.Viewer {
	return identity.Viewer{ID: c.ViewerID, DisplayName: c.DisplayName, AvatarURL: c.AvatarURL}
}

// GenerateToken issues a JWT for the specified viewer. Production tokens come
// from the identity provider; this exists for tests and the forumcli token command.
func GenerateToken(v identity.Viewer, duration time.Duration) (string, error) {
	cfg := config.Get()

	claims := Claims{
		ViewerID:    v.ID,
		DisplayName: v.DisplayName,
		AvatarURL:   v.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken validates a JWT and returns its claims.
func ParseToken(tokenStr string) (*Claims, error) {
	cfg := config.Get()
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.ViewerID == "" {
		return nil, errors.New("token has no viewer id")
	}

	return claims, nil
}
