package api

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// claims is the payload of every bearer token this service issues or
// accepts: {sub, exp, permissions}.
type claims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates HS256 bearer tokens signed with secret. A
// development bypass is honored only when devBypass is true, which the
// caller should only set from an explicit dev env marker, never a default.
func AuthMiddleware(secret string, devBypass bool) gin.HandlerFunc {
	if secret == "" && !devBypass {
		// Fail loudly rather than silently accepting every request.
		panic("api: AuthMiddleware requires a signing secret unless dev bypass is enabled")
	}

	return func(c *gin.Context) {
		if devBypass {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "missing Authorization header",
				"hint":  "use: Authorization: Bearer <token>",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header format"})
			c.Abort()
			return
		}

		if _, err := parseToken(parts[1], secret); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// parseToken validates signature and expiration and returns the decoded
// claims.
func parseToken(raw, secret string) (*claims, error) {
	token, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("api: token claims invalid")
	}
	return c, nil
}

// IssueToken mints a signed bearer token for subject sub with the given
// permissions, valid for ttl. No HTTP handler and no CLI subcommand calls
// it; the package's tests use it to mint tokens.
func IssueToken(secret, sub string, permissions []string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(secret))
}

// authenticateQueryToken validates the raw bearer token supplied via a query
// string, as used by /ws/whale where an Authorization header cannot be set
// by a browser WebSocket client.
func authenticateQueryToken(raw, secret string, devBypass bool) bool {
	if devBypass {
		return true
	}
	if raw == "" {
		return false
	}
	_, err := parseToken(raw, secret)
	return err == nil
}

// devBypassEnabled reports whether the process was started with the
// explicit dev env marker that permits skipping bearer auth entirely.
func devBypassEnabled() bool {
	return os.Getenv("UTXORACLE_DEV_MODE") == "true"
}
