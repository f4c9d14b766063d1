package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/jimlee/watchduel/entities"
	"github.com/jimlee/watchduel/pkg/docstore"
	"github.com/jimlee/watchduel/pkg/logx"
	"github.com/jimlee/watchduel/schemas"
)

const (
	requestsRoot       = "gameRequests"
	sumoGamesRoot      = "games"
	mukjjippaGamesRoot = "mukjjippaGames"
)

var ErrUnknownUser = errors.New("user is not one of the configured pair")

// LobbyService runs the invitation protocol. Every request record exists
// twice, once under each participant's path, and every mutation touches
// both copies. The store offers no multi-key transaction, so a partial
// failure leaves the mirrors diverged; the second write's error is surfaced
// and nothing is rolled back.
type LobbyService struct {
	store            docstore.Store
	publisherService Publisher
	users            entities.Pair
}

func NewLobbyService(store docstore.Store, publisherService Publisher, users entities.Pair) LobbyService {
	return LobbyService{
		store:            store,
		publisherService: publisherService,
		users:            users,
	}
}

func requestPath(userId, requestId string) string {
	return docstore.Join(requestsRoot, userId, requestId)
}

// SendRequest creates a PENDING invitation from the given user to the other
// participant and announces it on the notification channel.
func (lobbyService LobbyService) SendRequest(ctx context.Context, fromUserId string, gameType entities.GameType) (string, error) {
	if !lobbyService.users.Contains(fromUserId) {
		return "", ErrUnknownUser
	}

	toUserId := lobbyService.users.Other(fromUserId)
	requestId := bson.NewObjectID().Hex()

	request := entities.GameRequest{
		RequestId:  requestId,
		FromUserId: fromUserId,
		ToUserId:   toUserId,
		GameType:   gameType,
		Status:     entities.RequestPending,
		Timestamp:  time.Now().UnixMilli(),
	}

	data, err := schemas.EncodeGameRequest(request)
	if err != nil {
		return "", err
	}

	if err := lobbyService.store.Set(ctx, requestPath(toUserId, requestId), data); err != nil {
		return "", err
	}
	if err := lobbyService.store.Set(ctx, requestPath(fromUserId, requestId), data); err != nil {
		// The recipient copy already landed; the mirrors are now diverged.
		return "", err
	}

	message, err := schemas.RequestCreatedEvent(requestId, fromUserId, gameType)
	if err != nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "could not create RequestCreatedEvent"),
			zap.String("requestId", requestId),
		)
	} else if err := lobbyService.publisherService.Publish(message); err != nil {
		// Best effort: the recipient still sees the request through the store.
		logx.Logger.Info(
			"request notification not delivered",
			zap.String("requestId", requestId),
		)
	}

	return requestId, nil
}

// ReceivedRequests returns the pending invitations currently addressed to the
// user. Malformed sibling records are skipped.
func (lobbyService LobbyService) ReceivedRequests(ctx context.Context, userId string) ([]entities.GameRequest, error) {
	snapshots, err := lobbyService.store.Children(ctx, docstore.Join(requestsRoot, userId))
	if err != nil {
		return nil, err
	}
	return decodePending(snapshots, userId, nil), nil
}

// ObserveReceived streams the user's pending invitations on every change.
func (lobbyService LobbyService) ObserveReceived(ctx context.Context, userId string) (<-chan []entities.GameRequest, error) {
	return lobbyService.observeReceived(ctx, userId, nil)
}

// ObserveReceivedByType is ObserveReceived narrowed to one game's lobby.
func (lobbyService LobbyService) ObserveReceivedByType(ctx context.Context, userId string, gameType entities.GameType) (<-chan []entities.GameRequest, error) {
	return lobbyService.observeReceived(ctx, userId, &gameType)
}

func (lobbyService LobbyService) observeReceived(ctx context.Context, userId string, gameType *entities.GameType) (<-chan []entities.GameRequest, error) {
	lists, err := lobbyService.store.ObserveChildren(ctx, docstore.Join(requestsRoot, userId))
	if err != nil {
		return nil, err
	}

	out := make(chan []entities.GameRequest, 16)
	go func() {
		defer close(out)
		for snapshots := range lists {
			select {
			case out <- decodePending(snapshots, userId, gameType):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// ObserveSent streams the sender's copy of a request: status and gameId as
// they change, nil once the record is gone (rejected or cancelled).
func (lobbyService LobbyService) ObserveSent(ctx context.Context, fromUserId, requestId string) (<-chan *entities.GameRequest, error) {
	snapshots, err := lobbyService.store.Observe(ctx, requestPath(fromUserId, requestId))
	if err != nil {
		return nil, err
	}

	out := make(chan *entities.GameRequest, 16)
	go func() {
		defer close(out)
		for snapshot := range snapshots {
			var request *entities.GameRequest
			if snapshot.Data != nil {
				decoded, err := schemas.DecodeGameRequest(snapshot.Data)
				if err != nil {
					logx.Logger.Info(
						"skipping malformed request record",
						zap.String("path", snapshot.Path),
					)
					continue
				}
				request = &decoded
			}
			select {
			case out <- request:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Respond accepts or rejects an invitation on behalf of userId. Accepting
// creates the game session document and marks BOTH mirror copies ACCEPTED
// with the game id; rejecting (or cancelling, from the sender's side) deletes
// every known mirror. A request that is already gone is a normal race
// outcome: ("", nil).
func (lobbyService LobbyService) Respond(ctx context.Context, userId, requestId string, accept bool) (string, error) {
	if !lobbyService.users.Contains(userId) {
		return "", ErrUnknownUser
	}

	data, err := lobbyService.store.Get(ctx, requestPath(userId, requestId))
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", nil
	}
	request, err := schemas.DecodeGameRequest(data)
	if err != nil {
		logx.Logger.Info(
			"ignoring malformed request record",
			zap.String("requestId", requestId),
		)
		return "", nil
	}

	if !accept {
		return "", lobbyService.removeMirrors(ctx, userId, request)
	}

	gameId, err := lobbyService.createGame(ctx, request)
	if err != nil {
		return "", err
	}

	updates := map[string]any{
		"status": string(entities.RequestAccepted),
		"gameId": gameId,
	}
	if err := lobbyService.store.Update(ctx, requestPath(userId, requestId), updates); err != nil {
		return "", err
	}
	if err := lobbyService.store.Update(ctx, requestPath(request.FromUserId, requestId), updates); err != nil {
		return "", err
	}

	message, err := schemas.RequestAcceptedEvent(requestId, userId)
	if err != nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "could not create RequestAcceptedEvent"),
			zap.String("requestId", requestId),
		)
	} else if err := lobbyService.publisherService.Publish(message); err != nil {
		logx.Logger.Info(
			"acceptance notification not delivered",
			zap.String("requestId", requestId),
		)
	}

	return gameId, nil
}

// removeMirrors deletes the record under the responder's path, the sender's
// path, and the recipient's path. The third delete is defensive: it covers
// the responder being the sender cancelling their own request.
func (lobbyService LobbyService) removeMirrors(ctx context.Context, userId string, request entities.GameRequest) error {
	paths := []string{
		requestPath(userId, request.RequestId),
		requestPath(request.FromUserId, request.RequestId),
		requestPath(request.ToUserId, request.RequestId),
	}
	for _, path := range paths {
		if err := lobbyService.store.Delete(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// createGame writes the initial session document for the request's game type
// and returns its id. The sender plays seat 1.
func (lobbyService LobbyService) createGame(ctx context.Context, request entities.GameRequest) (string, error) {
	gameId := bson.NewObjectID().Hex()
	meta := schemas.SessionMeta{
		GameId:    gameId,
		Player1Id: request.FromUserId,
		Player2Id: request.ToUserId,
	}

	var path string
	var doc any
	if request.GameType == entities.GameTypeMukjjippa {
		path = docstore.Join(mukjjippaGamesRoot, gameId)
		doc = schemas.MukjjippaDocFromState(meta, entities.NewMukjjippaState(), time.Now().UnixMilli())
	} else {
		path = docstore.Join(sumoGamesRoot, gameId)
		doc = schemas.SumoDocFromState(meta, entities.NewSumoState())
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	if err := lobbyService.store.Set(ctx, path, data); err != nil {
		return "", err
	}
	return gameId, nil
}

func decodePending(snapshots []docstore.Snapshot, userId string, gameType *entities.GameType) []entities.GameRequest {
	requests := make([]entities.GameRequest, 0, len(snapshots))
	for _, snapshot := range snapshots {
		if snapshot.Data == nil {
			continue
		}
		request, err := schemas.DecodeGameRequest(snapshot.Data)
		if err != nil {
			logx.Logger.Info(
				"skipping malformed request record",
				zap.String("path", snapshot.Path),
			)
			continue
		}
		if request.Status != entities.RequestPending || request.ToUserId != userId {
			continue
		}
		if gameType != nil && request.GameType != *gameType {
			continue
		}
		requests = append(requests, request)
	}
	return requests
}
