package server

import (
	"errors"
	"net/http"
	"strings"
)

var errNoSession = errors.New("no valid session")

// bearerToken extracts the session token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return "", errNoSession
	}
	return token, nil
}

// sessionUser resolves the request's bearer token to its user.
func sessionUser(r *http.Request, store Store) (userDoc, error) {
	token, err := bearerToken(r)
	if err != nil {
		return userDoc{}, err
	}
	u, err := store.SessionUser(r.Context(), token)
	if err != nil {
		return userDoc{}, errNoSession
	}
	return u, nil
}
