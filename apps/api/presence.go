package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// Presence is read from the sets the gateway mirrors into redis: the global
// online set and one set of user ids per channel.

func onlineUsersHandler(rdb *redis.Client, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := rdb.SMembers(r.Context(), "presence:online").Result()
		if err != nil {
			log.Error("fetch online users", "error", err)
			http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(users)
	}
}

func channelUsersHandler(rdb *redis.Client, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID := r.PathValue("channel")

		users, err := rdb.SMembers(r.Context(), "channel:"+channelID+":users").Result()
		if err != nil {
			log.Error("fetch channel presence", "channel", channelID, "error", err)
			http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(users)
	}
}
