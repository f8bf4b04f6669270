package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/itemhub/internal/domain"
	"github.com/simp-lee/itemhub/internal/pkg"
	"github.com/simp-lee/itemhub/internal/token"
)

const currentUserContextKey = "current_user"

// AccessTokenDecoder verifies a bearer token of the expected kind.
type AccessTokenDecoder interface {
	DecodeAs(tokenStr string, kind token.Kind) (*token.Claims, error)
}

// UserFinder resolves the token subject to a stored user.
type UserFinder interface {
	GetByID(ctx context.Context, id uint) (*domain.User, error)
}

var errUserInactive = domain.NewAppError(domain.CodeUnauthorized, "User not found or inactive", nil)

// RequireAuth admits only requests carrying a valid access token for an
// existing, active user. The user is available to handlers via CurrentUser.
func RequireAuth(tokens AccessTokenDecoder, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			pkg.Fail(c, domain.ErrUnauthorized)
			return
		}

		claims, err := tokens.DecodeAs(raw, token.Access)
		if err != nil {
			pkg.Fail(c, domain.ErrInvalidToken)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			pkg.Fail(c, domain.ErrInvalidToken)
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if domain.IsNotFound(err) {
				pkg.Fail(c, errUserInactive)
				return
			}
			pkg.Fail(c, err)
			return
		}
		if !user.IsActive {
			pkg.Fail(c, errUserInactive)
			return
		}

		c.Set(currentUserContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the user bound by RequireAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(currentUserContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, credentials, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	credentials = strings.TrimSpace(credentials)
	return credentials, credentials != ""
}
