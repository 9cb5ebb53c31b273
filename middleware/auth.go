package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/forumfeed/identity"
	"github.com/cppla/forumfeed/utils"
)

const (
	// ContextViewerKey stores the authenticated identity.Viewer in Gin context.
	ContextViewerKey = "viewer"
	// ContextClaimsKey stores the parsed *utils.Claims.
	ContextClaimsKey = "claims"
	// ContextTokenKey stores the raw bearer token, needed for logout.
	ContextTokenKey = "token"
)

type authFailure struct {
	code    int
	message string
}

// authenticate resolves the bearer token. A nil failure with nil claims means
// no Authorization header was sent.
func authenticate(ctx *gin.Context) (*utils.Claims, string, *authFailure) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "", nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, "", &authFailure{40102, "invalid authorization header format"}
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, "", &authFailure{40103, "empty bearer token"}
	}

	if utils.IsTokenBlacklisted(ctx.Request.Context(), tokenString) {
		return nil, "", &authFailure{40104, "token revoked"}
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, "", &authFailure{40105, "invalid token"}
	}
	return claims, tokenString, nil
}

func setViewer(ctx *gin.Context, claims *utils.Claims, token string) {
	ctx.Set(ContextViewerKey, claims.Viewer())
	ctx.Set(ContextClaimsKey, claims)
	ctx.Set(ContextTokenKey, token)
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, token, fail := authenticate(ctx)
		if fail != nil {
			utils.Abort(ctx, http.StatusUnauthorized, fail.code, fail.message)
			return
		}
		if claims == nil {
			utils.Abort(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}
		setViewer(ctx, claims, token)
		ctx.Next()
	}
}

// OptionalAuth attaches the viewer when a token is present. Requests without
// one continue anonymously; a present but bad token is still rejected.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, token, fail := authenticate(ctx)
		if fail != nil {
			utils.Abort(ctx, http.StatusUnauthorized, fail.code, fail.message)
			return
		}
		if claims != nil {
			setViewer(ctx, claims, token)
		}
		ctx.Next()
	}
}

// ViewerFrom returns the viewer set by the auth middlewares, or the zero
// Viewer for anonymous requests.
func ViewerFrom(ctx *gin.Context) identity.Viewer {
	if v, ok := ctx.Get(ContextViewerKey); ok {
		if viewer, ok := v.(identity.Viewer); ok {
			return viewer
		}
	}
	return identity.Viewer{}
}
