package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jimlee/watchduel/pkg/logx"
)

// Redis implements Store on a Redis instance. Each document is a JSON string
// under "doc:<path>", each parent keeps a set of child paths under
// "idx:<parent>", and every mutation is announced on the "changes:<path>" and
// "changes:<parent>" pub/sub channels. Visibility across subscribers is
// whatever pub/sub delivers; there is no cross-key atomicity, which matches
// the contract the game protocol was written against.
type Redis struct {
	client *redis.Client
}

func NewRedis(host, port, password string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})
	return &Redis{client: client}
}

func docKey(path string) string     { return "doc:" + path }
func indexKey(parent string) string { return "idx:" + parent }
func channel(path string) string    { return "changes:" + path }

func (r *Redis) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := r.client.Get(ctx, docKey(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return data, nil
}

func (r *Redis) Set(ctx context.Context, path string, data []byte) error {
	if err := r.client.Set(ctx, docKey(path), data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	if parent := Parent(path); parent != "" {
		if err := r.client.SAdd(ctx, indexKey(parent), path).Err(); err != nil {
			return fmt.Errorf("index %s: %w", path, err)
		}
	}
	r.announce(ctx, path)
	return nil
}

func (r *Redis) Update(ctx context.Context, path string, fields map[string]any) error {
	existing, err := r.Get(ctx, path)
	if err != nil {
		return err
	}
	merged := make(map[string]any)
	if existing != nil {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return fmt.Errorf("update %s: existing document is not an object: %w", path, err)
		}
	}
	for key, value := range fields {
		merged[key] = value
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return r.Set(ctx, path, data)
}

func (r *Redis) Delete(ctx context.Context, path string) error {
	if err := r.client.Del(ctx, docKey(path)).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if parent := Parent(path); parent != "" {
		if err := r.client.SRem(ctx, indexKey(parent), path).Err(); err != nil {
			return fmt.Errorf("unindex %s: %w", path, err)
		}
	}
	r.announce(ctx, path)
	return nil
}

func (r *Redis) Children(ctx context.Context, path string) ([]Snapshot, error) {
	paths, err := r.client.SMembers(ctx, indexKey(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("children %s: %w", path, err)
	}
	children := make([]Snapshot, 0, len(paths))
	for _, childPath := range paths {
		data, err := r.Get(ctx, childPath)
		if err != nil {
			return nil, err
		}
		if data == nil {
			// Stale index entry; the document is already gone.
			continue
		}
		children = append(children, Snapshot{Path: childPath, Data: data})
	}
	return children, nil
}

func (r *Redis) Observe(ctx context.Context, path string) (<-chan Snapshot, error) {
	pubsub := r.client.Subscribe(ctx, channel(path))
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("observe %s: %w", path, err)
	}

	out := make(chan Snapshot, 16)

	initial, err := r.Get(ctx, path)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	out <- Snapshot{Path: path, Data: initial}

	go func() {
		defer close(out)
		defer func() {
			if err := pubsub.Close(); err != nil {
				logx.Logger.Errorw("could not close pubsub", "path", path, "error", err)
			}
		}()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				data, err := r.Get(ctx, path)
				if err != nil {
					logx.Logger.Errorw("could not re-read observed document", "path", path, "error", err)
					continue
				}
				select {
				case out <- Snapshot{Path: path, Data: data}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (r *Redis) ObserveChildren(ctx context.Context, path string) (<-chan []Snapshot, error) {
	pubsub := r.client.Subscribe(ctx, channel(path))
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("observe children %s: %w", path, err)
	}

	out := make(chan []Snapshot, 16)

	initial, err := r.Children(ctx, path)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	out <- initial

	go func() {
		defer close(out)
		defer func() {
			if err := pubsub.Close(); err != nil {
				logx.Logger.Errorw("could not close pubsub", "path", path, "error", err)
			}
		}()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				children, err := r.Children(ctx, path)
				if err != nil {
					logx.Logger.Errorw("could not re-list children", "path", path, "error", err)
					continue
				}
				select {
				case out <- children:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// announce publishes the change on the document's own channel and on the
// parent channel that child observers listen on. Best effort: a failed
// publish only delays observers until the next change.
func (r *Redis) announce(ctx context.Context, path string) {
	if err := r.client.Publish(ctx, channel(path), path).Err(); err != nil {
		logx.Logger.Errorw("could not publish change", "path", path, "error", err)
	}
	if parent := Parent(path); parent != "" {
		if err := r.client.Publish(ctx, channel(parent), path).Err(); err != nil {
			logx.Logger.Errorw("could not publish parent change", "path", path, "error", err)
		}
	}
}
