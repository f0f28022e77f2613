package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/napoleonhq/scorekeeper/internal/napoleon"
)

// UserUpdateRequest is the admin body for PUT /api/users/{userID}.
// Empty fields are left unchanged.
type UserUpdateRequest struct {
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func handleListUsers(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.ListUsers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		infos := []UserInfo{}
		for _, u := range users {
			infos = append(infos, toUserInfo(u))
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

func handleUpdateUser(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UserUpdateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.DisplayName = strings.TrimSpace(req.DisplayName)
		req.Role = strings.TrimSpace(req.Role)
		if req.Role != "" && req.Role != "user" && req.Role != roleAdmin {
			writeError(w, http.StatusBadRequest, "role must be user or admin")
			return
		}

		u, err := store.GetUser(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if req.DisplayName != "" {
			u.DisplayName = req.DisplayName
		}
		if req.Role != "" {
			u.Role = req.Role
		}

		if err := store.UpdateUser(r.Context(), u); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserInfo(u))
	}
}

// handleDeleteUser removes a user from the directory. Their games and
// round records are kept; a user inside an ongoing game cannot be
// deleted.
func handleDeleteUser(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		ongoing, err := store.QueryGames(r.Context(), GameQuery{
			PlayerID: userID,
			Status:   napoleon.GameOngoing,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if len(ongoing) > 0 {
			writeError(w, http.StatusConflict, "user is in an ongoing game")
			return
		}

		if err := store.DeleteUser(r.Context(), userID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
