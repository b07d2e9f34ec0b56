package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/devconnect/realtime/pkg/auth"
	"github.com/devconnect/realtime/pkg/model"
	"github.com/devconnect/realtime/pkg/store"
)

type loginRequest struct {
	UserID string `json:"user_id"`
}

type loginResponse struct {
	Token string             `json:"token"`
	User  model.UserIdentity `json:"user"`
}

// loginHandler mints a token for a known user id. Demo-grade: credential
// checks belong to an identity service outside this repo.
func loginHandler(st store.Store, verifier *auth.Verifier, ttl time.Duration, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}

		user, err := st.FindUserByID(r.Context(), req.UserID)
		if errors.Is(err, store.ErrUserNotFound) {
			http.Error(w, "Unknown user", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("resolve user", "user", req.UserID, "error", err)
			http.Error(w, "Failed to resolve user", http.StatusInternalServerError)
			return
		}

		token, err := verifier.GenerateToken(user.ID, ttl)
		if err != nil {
			log.Error("generate token", "user", user.ID, "error", err)
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(loginResponse{Token: token, User: user})
	}
}
