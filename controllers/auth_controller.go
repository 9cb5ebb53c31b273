package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/forumfeed/middleware"
	"github.com/cppla/forumfeed/utils"
)

// AuthController exposes the caller's identity and token revocation. Tokens
// themselves are issued by the external identity provider.
type AuthController struct{}

// NewAuthController creates a new AuthController instance.
func NewAuthController() *AuthController {
	return &AuthController{}
}

// Me returns the viewer carried by the bearer token.
func (a *AuthController) Me(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"viewer": middleware.ViewerFrom(ctx)})
}

// Logout revokes the bearer token until it would have expired anyway.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claimsVal, _ := ctx.Get(middleware.ContextClaimsKey)
	claims, ok := claimsVal.(*utils.Claims)
	if token == "" || !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	if claims.ExpiresAt != nil {
		utils.BlacklistToken(ctx.Request.Context(), token, claims.ExpiresAt.Time)
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}
