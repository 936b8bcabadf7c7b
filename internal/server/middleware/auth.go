// Package middleware provides HTTP middleware for applicant authentication.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const applicantIDKey ContextKey = "applicantID"

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (SubjectGetter, error)
}

// SubjectGetter exposes the applicant a token was issued to.
type SubjectGetter interface {
	GetApplicantID() string
}

// AuthMiddleware validates the bearer token and stores the applicant id in the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil || claims.GetApplicantID() == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := WithApplicantID(r.Context(), claims.GetApplicantID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// WithApplicantID returns a context carrying the authenticated applicant.
func WithApplicantID(ctx context.Context, applicantID string) context.Context {
	return context.WithValue(ctx, applicantIDKey, applicantID)
}

// ApplicantID returns the authenticated applicant of the request.
func ApplicantID(r *http.Request) (string, error) {
	id, ok := r.Context().Value(applicantIDKey).(string)
	if !ok || id == "" {
		return "", fmt.Errorf("applicant ID not found in request context")
	}
	return id, nil
}
