package handlers

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// UserContextKey is the key used to store the user object in the request context.
	UserContextKey ContextKey = "user"
)

// User is the authenticated caller as established from a bearer token.
// Identity lives with the external identity provider; only the token
// subject matters here.
type User struct {
	ID    string
	Admin bool
}

// UserFromContext extracts the authenticated user placed by AuthMiddleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(UserContextKey).(*User)
	return user, ok
}

// AuthMiddleware verifies RS256 bearer tokens against the identity
// provider's public key and adds the resulting user to the request
// context. Subjects listed in adminSubjects get admin rights.
func AuthMiddleware(publicKey *rsa.PublicKey, adminSubjects []string) func(http.Handler) http.Handler {
	admins := make(map[string]bool, len(adminSubjects))
	for _, subject := range adminSubjects {
		admins[subject] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authorization header format must be Bearer {token}")
				return
			}
			tokenString := parts[1]

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return publicKey, nil
			})

			if err != nil || !token.Valid {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
				return
			}

			if claims.Subject == "" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Token has no subject")
				return
			}

			user := &User{ID: claims.Subject, Admin: admins[claims.Subject]}
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DisabledAuth treats every request as an anonymous admin. Intended for
// local development when no identity provider is configured.
func DisabledAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), UserContextKey, &User{ID: "local", Admin: true})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin callers. It must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || user == nil {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "User not found in context")
			return
		}
		if !user.Admin {
			WriteAPIError(w, http.StatusForbidden, "forbidden", "Admin rights required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoadAuthPublicKey reads the identity provider's PEM-encoded RSA
// public key used for bearer-token validation.
func LoadAuthPublicKey(pemData []byte) (*rsa.PublicKey, error) {
	return jwt.ParseRSAPublicKeyFromPEM(pemData)
}
