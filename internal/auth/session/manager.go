package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/quoteflow/internal/config"
)

const DefaultCookieName = "_sid"

// Manager reads and writes session tokens on HTTP requests.
// Tokens arrive either as a bearer header or as the session cookie.
type Manager struct {
	cookieName string
	secure     bool
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     cfg.AuthCookieSecure,
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// ReadToken prefers the Authorization header over the cookie.
func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), true
		}
		return "", false
	}

	token, err := c.Cookie(m.cookieName)
	if err != nil || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

func (m *Manager) Set(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}
