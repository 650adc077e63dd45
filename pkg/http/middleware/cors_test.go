package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	e := echo.New()
	e.Use(CORS(echo.HeaderAuthorization, HeaderInternalToken))
	reached := 0
	e.POST("/run", func(c echo.Context) error {
		reached++
		return c.String(http.StatusAccepted, "ok")
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/run", nil)
		req.Header.Set(echo.HeaderOrigin, "https://console.example")
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
		assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
		assert.Equal(t, "Authorization, "+HeaderInternalToken, rec.Header().Get(echo.HeaderAccessControlAllowHeaders))
		assert.Zero(t, reached)
	})

	t.Run("regular request carries headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
		assert.Equal(t, 1, reached)
	})
}
