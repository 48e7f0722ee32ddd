package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vitrinelive/storefront/errors"
	"github.com/vitrinelive/storefront/identity"
)

// UserKey is the gin context key holding the authenticated *identity.User.
const UserKey = "user"

// Session returns a Gin middleware that resolves the signed-in user from the
// Authorization bearer token. Requests without a token pass through
// anonymous; storefront paths stay browsable without an account, the guard
// and cart handlers decide for themselves what anonymity means. A token that
// is present but invalid is rejected.
func Session(verifier *identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			err := errors.Unauthorized("Invalid authorization header format.")
			c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
			return
		}

		user, err := verifier.Parse(parts[1])
		if err != nil {
			appErr, ok := errors.AsAppError(err)
			if !ok {
				appErr = errors.Unauthorized("")
			}
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}

		c.Set(UserKey, &user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user from the Gin context, or nil
// for anonymous requests.
func CurrentUser(c *gin.Context) *identity.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*identity.User)
	if !ok {
		return nil
	}
	return user
}
