package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/devconnect/realtime/pkg/store"
)

// historyHandler serves a channel's recent messages oldest-first. This is the
// durable read path that complements the gateway's live fan-out.
func historyHandler(st store.Store, defaultLimit int, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID := r.URL.Query().Get("channel_id")
		if channelID == "" {
			http.Error(w, "channel_id is required", http.StatusBadRequest)
			return
		}

		limit := defaultLimit
		maxLimit := 10 * defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			if parsed > maxLimit {
				parsed = maxLimit
			}
			limit = parsed
		}

		messages, err := st.ListRecentMessages(r.Context(), channelID, limit)
		if err != nil {
			log.Error("list messages", "channel", channelID, "error", err)
			http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
			return
		}

		// Store order is newest-first; clients render chronologically.
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messages)
	}
}
