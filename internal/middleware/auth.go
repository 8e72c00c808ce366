package middleware

import (
	"strings"

	"mou-dashboard/internal/auth"
	"mou-dashboard/internal/errors"

	"github.com/gin-gonic/gin"
)

// RequireScope verifies the bearer token and checks that it carries at least
// one of the given scopes.
func RequireScope(allowed ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		parsedToken, err := auth.VerifyJWT(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		username, scopes, err := auth.GetDataFromToken(parsedToken)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		if !scopeAllowed(scopes, allowed) {
			ctx.Error(errors.Forbidden("Insufficient scope!", nil))
			ctx.Abort()
			return
		}

		ctx.Set("username", username)
		ctx.Set("jwt_token", token)
		ctx.Next()
	}
}

func scopeAllowed(have, allowed []string) bool {
	for _, h := range have {
		for _, a := range allowed {
			if h == a {
				return true
			}
		}
	}
	return false
}
