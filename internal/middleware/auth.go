package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
)

const (
	RoleAdmin      = "ADMIN"
	RoleDispatcher = "DISPATCHER"
)

// AuthMiddleware checks an HS256 bearer token issued elsewhere and passes the
// caller's id downstream in X-UserId.
type AuthMiddleware struct {
	accessSecret string
	roles        map[string]bool
}

func NewAuthMiddleware(accessSecret string, roles ...string) *AuthMiddleware {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return &AuthMiddleware{
		accessSecret: accessSecret,
		roles:        allowed,
	}
}

func (am *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// an empty HMAC key would accept tokens anyone can sign
		if am.accessSecret == "" {
			jsonError(w, http.StatusInternalServerError, fmt.Errorf("authentication is not configured"))
			return
		}

		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			// browsers cannot set headers on a websocket handshake
			tokenString = r.URL.Query().Get("access_token")
		}
		if tokenString == "" {
			jsonError(w, http.StatusUnauthorized, fmt.Errorf("empty JWT token"))
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(am.accessSecret), nil
		})
		if err != nil || !token.Valid {
			jsonError(w, http.StatusUnauthorized, fmt.Errorf("invalid JWT token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			jsonError(w, http.StatusUnauthorized, fmt.Errorf("invalid claims"))
			return
		}

		userId, ok := claims["user_id"].(string)
		if !ok || userId == "" {
			jsonError(w, http.StatusUnauthorized, fmt.Errorf("user_id not found in token"))
			return
		}

		role, ok := claims["role"].(string)
		if !ok {
			jsonError(w, http.StatusUnauthorized, fmt.Errorf("role not found in token"))
			return
		}

		if !am.roles[role] {
			jsonError(w, http.StatusForbidden, fmt.Errorf("role %s is not allowed here", role))
			return
		}

		r.Header.Set("X-UserId", userId)
		r.Header.Set("X-Role", role)

		next.ServeHTTP(w, r)
	})
}

func jsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}
