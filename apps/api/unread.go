package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/devconnect/realtime/pkg/auth"
	"github.com/devconnect/realtime/pkg/store"
)

// Unread counters are maintained by the archiver from the relay stream.

func unreadHandler(st *store.Scylla, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		counts, err := st.UnreadCounts(r.Context(), userID)
		if err != nil {
			log.Error("fetch unread counts", "user", userID, "error", err)
			http.Error(w, "Failed to fetch unread counts", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(counts)
	}
}

type markReadRequest struct {
	ChannelID string `json:"channel_id"`
}

func markReadHandler(st *store.Scylla, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req markReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
			http.Error(w, "channel_id is required", http.StatusBadRequest)
			return
		}

		if err := st.ResetUnread(r.Context(), userID, req.ChannelID); err != nil {
			log.Error("reset unread count", "user", userID, "channel", req.ChannelID, "error", err)
			http.Error(w, "Failed to reset unread count", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
