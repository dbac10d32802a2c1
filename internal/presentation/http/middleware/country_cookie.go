package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/domain/locale"
)

// CookieCountryStore keeps the country code in the visitor's user_country cookie.
type CookieCountryStore struct {
	c      *gin.Context
	maxAge int
	secure bool
}

// NewCookieCountryStore binds a country store to one request.
func NewCookieCountryStore(c *gin.Context, ttl time.Duration, secure bool) *CookieCountryStore {
	return &CookieCountryStore{c: c, maxAge: int(ttl.Seconds()), secure: secure}
}

func (s *CookieCountryStore) Load(_ context.Context) (string, bool) {
	value, err := s.c.Cookie(locale.CountryKey)
	if err != nil {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (s *CookieCountryStore) Save(_ context.Context, countryCode string) error {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(locale.CountryKey, countryCode, s.maxAge, "/", "", s.secure, false)
	return nil
}
