package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/recykl/fleet-registry/internal/utils"
)

// Context keys under which the authenticated identity is stored.  Handlers
// and downstream middleware read these via c.Get(); the values are always
// the typed fields of utils.Identity, never a raw claims map.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "token"

// SessionAuth returns an Echo middleware that validates the session token
// carried by the HTTP-only cookie and injects the decoded identity into
// the request context.  The provided secret must match the one used when
// issuing tokens.
//
// The two failure modes map to different status codes on purpose, and the
// asymmetry is part of the API contract: a request with no cookie at all
// is 401 (unauthenticated), while a request presenting a cookie that does
// not verify is 403 (forbidden).
func SessionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Read the session cookie.  Absence means the client never
			// logged in (or the cookie expired client-side): 401.
			ck, err := c.Cookie(SessionCookieName)
			if err != nil || ck.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}

			// A cookie is present but its token must still verify: the
			// signature, algorithm and expiry are all checked by the token
			// service.  Any failure is a 403 with a uniform message.
			id, err := utils.ParseSessionToken(secret, ck.Value)
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid token"})
			}

			// Attach the identity for the role gate and handlers.
			c.Set(ContextUserID, id.UserID)
			c.Set(ContextRole, id.Role)
			return next(c)
		}
	}
}

// CurrentIdentity returns the identity attached by SessionAuth, if any.
func CurrentIdentity(c echo.Context) (utils.Identity, bool) {
	uid, ok := c.Get(ContextUserID).(uint64)
	if !ok {
		return utils.Identity{}, false
	}
	role, ok := c.Get(ContextRole).(string)
	if !ok {
		return utils.Identity{}, false
	}
	return utils.Identity{UserID: uid, Role: role}, true
}
