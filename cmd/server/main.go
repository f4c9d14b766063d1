package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jimlee/watchduel/entities"
	"github.com/jimlee/watchduel/gameserver"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on the environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := gameserver.Config{
		Context: ctx,
		Users: entities.Pair{
			User1: envOr("PLAYER1_ID", "user_jim"),
			User2: envOr("PLAYER2_ID", "user_hi"),
		},
		Store: gameserver.StoreConfig{
			InMemory: os.Getenv("STORE_IN_MEMORY") == "true",
			Redis: gameserver.RedisConfig{
				Host:     envOr("REDIS_HOST", "localhost"),
				Port:     envOr("REDIS_PORT", "6379"),
				Password: os.Getenv("REDIS_PASSWORD"),
			},
		},
		Publisher: gameserver.PublisherConfig{
			Redis: gameserver.RedisConfig{
				Host:     envOr("PUBLISHER_REDIS_HOST", envOr("REDIS_HOST", "localhost")),
				Port:     envOr("PUBLISHER_REDIS_PORT", envOr("REDIS_PORT", "6379")),
				Password: os.Getenv("PUBLISHER_REDIS_PASSWORD"),
			},
		},
		Router: gameserver.RouterConfig{
			AllowedOrigins: splitOrigins(os.Getenv("ALLOWED_ORIGINS")),
		},
		LocalMode: os.Getenv("LOCAL_MODE") == "true",
	}

	server := gameserver.NewGameServer(config)

	address := ":" + envOr("PORT", "8080")
	httpServer := &http.Server{Addr: address, Handler: server.GetRouter()}

	// Cancelling the config context closes every observation stream; the
	// server itself is drained with a bounded shutdown.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", address)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitOrigins(value string) []string {
	if value == "" {
		return []string{"*"}
	}
	origins := strings.Split(value, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}
