package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wlwcreche/creche-api/internal/middleware"
	"github.com/wlwcreche/creche-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func scopeFromContext(c *gin.Context) *models.AccessScope {
	value, exists := c.Get(middleware.ContextScopeKey)
	if !exists {
		return nil
	}
	scope, ok := value.(*models.AccessScope)
	if !ok {
		return nil
	}
	return scope
}

// dateQuery reads a YYYY-MM-DD query parameter, defaulting to today.
func dateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// rangeQuery reads from/to query parameters, defaulting to the current
// week starting Monday.
func rangeQuery(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(today.Weekday()) + 6) % 7
	from := today.AddDate(0, 0, -offset)
	to := from.AddDate(0, 0, 6)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
