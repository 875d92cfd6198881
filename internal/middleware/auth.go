package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityKey is the gin context key holding the verified token subject.
const IdentityKey = "identity"

// JWTAuth verifies the HMAC-signed bearer token and stores its subject (the
// identity-provider user id) in the context. Requests without a valid token
// are aborted with 401.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// CORS preflight carries no credentials
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, "missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, "invalid Authorization header")
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			abort(c, "invalid token")
			return
		}

		if claims.Subject == "" {
			abort(c, "invalid sub in token")
			return
		}

		c.Set(IdentityKey, claims.Subject)
		c.Next()
	}
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// IdentityFromContext returns the subject set by JWTAuth.
func IdentityFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(IdentityKey)
	return id, id != ""
}
