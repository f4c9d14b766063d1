package services

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jimlee/watchduel/pkg/logx"
)

// Publisher emits notification events for the push bridge. Delivery is best
// effort; the lobby protocol's correctness rests on direct store observation.
type Publisher interface {
	Publish(message string) error
}

type PublisherService struct {
	broker *redis.Client
}

func NewPublisherService(host, port, password string) PublisherService {
	broker := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})
	return PublisherService{broker: broker}
}

func (publisherService PublisherService) Publish(message string) error {
	if message == "" {
		return nil
	}

	err := publisherService.broker.Publish(context.Background(), "game-requests", message).Err()

	if err != nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "could not publish message"),
			zap.String("message", message),
		)

		return err
	}

	return nil
}

// NopPublisher drops every event. Used for offline/local mode.
type NopPublisher struct{}

func (NopPublisher) Publish(string) error { return nil }
