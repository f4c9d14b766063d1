package gameserver

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/jimlee/watchduel/handlers"
	"github.com/jimlee/watchduel/pkg/docstore"
	"github.com/jimlee/watchduel/pkg/logx"
	"github.com/jimlee/watchduel/services"
)

// GameServer wires the store, the lobby and the game streams behind one
// router.
type GameServer struct {
	router *chi.Mux
	store  docstore.Store
}

// NewGameServer creates a new game server with the provided configuration.
func NewGameServer(config Config) *GameServer {
	logx.NewLogger()

	baseCtx := config.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	var store docstore.Store
	if config.LocalMode || config.Store.InMemory {
		store = docstore.NewMemory()
	} else {
		store = docstore.NewRedis(
			config.Store.Redis.Host,
			config.Store.Redis.Port,
			config.Store.Redis.Password,
		)
	}

	var publisher services.Publisher
	if config.LocalMode {
		publisher = services.NopPublisher{}
	} else {
		publisher = services.NewPublisherService(
			config.Publisher.Redis.Host,
			config.Publisher.Redis.Port,
			config.Publisher.Redis.Password,
		)
	}

	lobbyService := services.NewLobbyService(store, publisher, config.Users)

	timings := config.Timings
	if timings == (services.MukjjippaTimings{}) {
		timings = services.DefaultMukjjippaTimings()
	}

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.Router.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handlers.NewLobbyHandler(router, lobbyService, baseCtx)
	handlers.NewGameHandler(router, store, config.Users, timings, config.LocalMode, baseCtx)

	return &GameServer{
		router: router,
		store:  store,
	}
}

// GetRouter returns the configured router.
func (gs *GameServer) GetRouter() *chi.Mux {
	return gs.router
}

// GetStore returns the shared document store, mainly for seeding local games.
func (gs *GameServer) GetStore() docstore.Store {
	return gs.store
}
