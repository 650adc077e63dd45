package middleware

import (
	"crypto/subtle"
	"net/http"

	applogger "FusionRisk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HeaderInternalToken carries the shared secret between internal services.
const HeaderInternalToken = "X-Internal-Token"

// RequestAuthenticator decides whether an inbound request may run a pipeline function.
type RequestAuthenticator interface {
	Authenticate(r *http.Request) bool
}

// SharedSecretAuthenticator accepts requests whose X-Internal-Token equals the
// configured secret. An empty secret accepts nothing.
type SharedSecretAuthenticator struct {
	secret []byte
}

func NewSharedSecretAuthenticator(secret string) *SharedSecretAuthenticator {
	return &SharedSecretAuthenticator{secret: []byte(secret)}
}

func (a *SharedSecretAuthenticator) Authenticate(r *http.Request) bool {
	if len(a.secret) == 0 {
		return false
	}
	got := r.Header.Get(HeaderInternalToken)
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), a.secret) == 1
}

// Auth rejects unauthenticated requests with 403 {"error":"Unauthorized"}.
func Auth(authn RequestAuthenticator, l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !authn.Authenticate(c.Request()) {
				if l != nil {
					l.Warn("unauthorized request",
						applogger.String("route", c.Path()),
						applogger.String("remote_ip", c.RealIP()),
					)
				}
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Unauthorized"})
			}
			return next(c)
		}
	}
}
