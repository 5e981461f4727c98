package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type ctxKey int

const claimsKey ctxKey = 1

// UserHeader names the acting user when bearer auth is disabled (local dev, tests).
const UserHeader = "X-User-ID"

// RoleHeader carries the role alongside UserHeader when bearer auth is disabled.
const RoleHeader = "X-User-Role"

func WithClaims(ctx context.Context, c Claims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	if ctx == nil {
		return Claims{}, false
	}
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}

func ClaimsFromGin(c *gin.Context) (Claims, bool) {
	if c == nil || c.Request == nil {
		return Claims{}, false
	}
	return ClaimsFromContext(c.Request.Context())
}

// Middleware verifies bearer tokens. Health and swagger endpoints stay open.
// When verifier is nil the caller identity is read from UserHeader and
// RoleHeader instead.
func Middleware(verifier *JWT) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isOpenPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		if verifier == nil {
			if claims, ok := headerClaims(c); ok {
				c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
			}
			c.Next()
			return
		}
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			// Browsers cannot set headers on websocket upgrades.
			tok = strings.TrimSpace(c.Query("access_token"))
		}
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing bearer token"})
			return
		}
		claims, err := verifier.Verify(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
			return
		}
		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func isOpenPath(p string) bool {
	return p == "/healthz" || p == "/readyz" || strings.HasPrefix(p, "/swagger")
}

func headerClaims(c *gin.Context) (Claims, bool) {
	raw := strings.TrimSpace(c.GetHeader(UserHeader))
	if raw == "" {
		return Claims{}, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return Claims{}, false
	}
	return Claims{UserID: id, Role: strings.ToLower(strings.TrimSpace(c.GetHeader(RoleHeader)))}, true
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
