package gameserver

import (
	"context"

	"github.com/jimlee/watchduel/entities"
	"github.com/jimlee/watchduel/services"
)

// Config contains all configuration options for the game server.
type Config struct {
	// Context controls server shutdown. When cancelled, every observation
	// stream and sequencer job winds down.
	Context context.Context

	// Users is the fixed participant pair. Every request and game in the
	// store belongs to these two identities.
	Users entities.Pair

	Store     StoreConfig
	Publisher PublisherConfig
	Router    RouterConfig

	// Timings override the mukjjippa announcement delays. Zero value means
	// the production defaults.
	Timings services.MukjjippaTimings

	// LocalMode runs single-device practice games: in-memory store, no
	// notifications, and a seeded opponent hand after each countdown.
	LocalMode bool
}

// StoreConfig selects the shared document store backend.
type StoreConfig struct {
	// InMemory replaces Redis with the in-process store. Implied by LocalMode.
	InMemory bool
	Redis    RedisConfig
}

// PublisherConfig contains the notification broker configuration.
type PublisherConfig struct {
	Redis RedisConfig
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// RouterConfig contains router configuration.
type RouterConfig struct {
	AllowedOrigins []string
}
