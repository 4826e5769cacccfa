package app

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware guards the organizer routes. A Bearer credential passes when
// it is an HS256 JWT with an expiry signed by jwtSecret, or equals one of
// staticTokens. With neither configured every request is rejected.
func AuthMiddleware(staticTokens []string, jwtSecret string) gin.HandlerFunc {
	secret := []byte(strings.TrimSpace(jwtSecret))
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)

	return func(c *gin.Context) {
		scheme, credential, found := strings.Cut(c.GetHeader("Authorization"), " ")
		switch {
		case scheme == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		case !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(credential) == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		credential = strings.TrimSpace(credential)

		if len(secret) > 0 {
			_, err := parser.ParseWithClaims(credential, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
				return secret, nil
			})
			if err == nil {
				c.Next()
				return
			}
		}

		for _, t := range staticTokens {
			if t != "" && subtle.ConstantTimeCompare([]byte(credential), []byte(t)) == 1 {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}
