package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/devconnect/realtime/pkg/auth"
	"github.com/devconnect/realtime/pkg/config"
	"github.com/devconnect/realtime/pkg/store"
)

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authMiddleware(verifier *auth.Verifier, log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		userID, err := verifier.Verify(tokenString)
		if err != nil {
			log.Warn("rejected token", "error", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewScylla(cfg.ScyllaHosts, cfg.ScyllaKeyspace, cfg.GeneratorID)
	if err != nil {
		log.Error("connect to scylla", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	verifier := auth.NewVerifier(cfg.JWTSecret)
	protect := func(h http.Handler) http.Handler {
		return corsMiddleware(authMiddleware(verifier, log, h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /login", corsMiddleware(loginHandler(st, verifier, cfg.TokenTTL, log)))
	mux.Handle("GET /history", protect(historyHandler(st, cfg.HistoryLimit, log)))
	mux.Handle("GET /users/online", protect(onlineUsersHandler(rdb, log)))
	mux.Handle("GET /channels/{channel}/users", protect(channelUsersHandler(rdb, log)))
	mux.Handle("GET /unread", protect(unreadHandler(st, log)))
	mux.Handle("POST /unread/read", protect(markReadHandler(st, log)))

	server := &http.Server{Addr: cfg.APIAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.Info("api listening", "addr", cfg.APIAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("api server", "error", err)
		os.Exit(1)
	}
}
