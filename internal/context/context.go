package context

import (
	"context"
	"net/http"
)

type contextKey string

const authenticatedUserContextKey = contextKey("authenticatedUser")

// AuthenticatedUser is what the identity provider gives us: an opaque
// user id (the JWT subject) plus an optional email claim for receipts.
// No user record is stored in this service.
type AuthenticatedUser struct {
	ID    string
	Email string
}

func ContextSetAuthenticatedUser(r *http.Request, user *AuthenticatedUser) *http.Request {
	ctx := context.WithValue(r.Context(), authenticatedUserContextKey, user)
	return r.WithContext(ctx)
}

func ContextGetAuthenticatedUser(r *http.Request) *AuthenticatedUser {
	user, ok := r.Context().Value(authenticatedUserContextKey).(*AuthenticatedUser)
	if !ok {
		return nil
	}

	return user
}
