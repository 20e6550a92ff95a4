package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid capability token")

// Claims carries a capability set inside an HS256 token issued by the admin
// side.
type Claims struct {
	Caps Set `json:"caps"`
	jwt.RegisteredClaims
}

// Issue signs set into a token valid for ttl.
func Issue(set Set, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Caps: set,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates tokenString and returns its capability set.
func Parse(tokenString string, secret []byte) (Set, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Set{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Set{}, ErrInvalidToken
	}
	return claims.Caps, nil
}

type contextKey string

const setKey contextKey = "capabilities"

// Middleware resolves the capability set of a request from a Bearer token or
// a "caps" query parameter. Requests without a token get fallback.
func Middleware(secret []byte, fallback Set) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("caps")
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || parts[0] != "Bearer" {
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
					return
				}
				token = parts[1]
			}

			set := fallback
			if token != "" {
				var err error
				set, err = Parse(token, secret)
				if err != nil {
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
					return
				}
			}

			ctx := context.WithValue(r.Context(), setKey, set)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the set stored by Middleware, or Unrestricted.
func FromContext(ctx context.Context) Set {
	if set, ok := ctx.Value(setKey).(Set); ok {
		return set
	}
	return Unrestricted()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
