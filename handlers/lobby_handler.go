package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jimlee/watchduel/entities"
	"github.com/jimlee/watchduel/pkg/logx"
	"github.com/jimlee/watchduel/schemas"
	"github.com/jimlee/watchduel/services"
)

// LobbyHandler exposes the invitation protocol: create and answer requests
// over REST, watch them over websockets.
type LobbyHandler struct {
	lobbyService services.LobbyService
	// baseCtx parents every watch stream; server shutdown closes them all.
	baseCtx context.Context
}

func NewLobbyHandler(router *chi.Mux, lobbyService services.LobbyService, baseCtx context.Context) {
	lobbyHandler := LobbyHandler{lobbyService: lobbyService, baseCtx: baseCtx}
	router.Post("/requests", lobbyHandler.create)
	router.Get("/requests", lobbyHandler.list)
	router.Post("/requests/{id}/respond", lobbyHandler.respond)
	router.Get("/requests/watch", lobbyHandler.watchReceived)
	router.Get("/requests/{id}/watch", lobbyHandler.watchSent)
}

func (lobbyHandler LobbyHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload schemas.SendRequestPayload

	err := decode(&payload, r)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		logx.Logger.Info(err.Error(), zap.String("desc", "could not decode payload"))
		return
	}

	gameType, err := entities.ParseGameType(payload.GameType)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		encode(schemas.ErrorResponse{Message: "Unknown game type."}, w)
		return
	}

	requestId, err := lobbyHandler.lobbyService.SendRequest(r.Context(), payload.UserId, gameType)
	if err != nil {
		if errors.Is(err, services.ErrUnknownUser) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			encode(schemas.ErrorResponse{Message: "Unknown user."}, w)
			return
		}

		w.WriteHeader(http.StatusUnprocessableEntity)
		encode(schemas.ErrorResponse{Message: "Something goes wrong!"}, w)
		return
	}

	w.WriteHeader(http.StatusCreated)

	encode(schemas.SendRequestResponse{RequestId: requestId}, w)
}

func (lobbyHandler LobbyHandler) list(w http.ResponseWriter, r *http.Request) {
	userId := r.URL.Query().Get("userId")
	if userId == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		encode(schemas.ErrorResponse{Message: "userId is not provided."}, w)
		return
	}

	requests, err := lobbyHandler.lobbyService.ReceivedRequests(r.Context(), userId)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		encode(schemas.ErrorResponse{Message: "Something goes wrong!"}, w)
		return
	}

	if filter := r.URL.Query().Get("gameType"); filter != "" {
		gameType, err := entities.ParseGameType(filter)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			encode(schemas.ErrorResponse{Message: "Unknown game type."}, w)
			return
		}
		filtered := requests[:0]
		for _, request := range requests {
			if request.GameType == gameType {
				filtered = append(filtered, request)
			}
		}
		requests = filtered
	}

	encode(requestDocs(requests), w)
}

func (lobbyHandler LobbyHandler) respond(w http.ResponseWriter, r *http.Request) {
	requestId := chi.URLParam(r, "id")

	var payload schemas.RespondPayload

	err := decode(&payload, r)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		logx.Logger.Info(err.Error(), zap.String("desc", "could not decode payload"))
		return
	}

	gameId, err := lobbyHandler.lobbyService.Respond(r.Context(), payload.UserId, requestId, payload.Accept)
	if err != nil {
		if errors.Is(err, services.ErrUnknownUser) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			encode(schemas.ErrorResponse{Message: "Unknown user."}, w)
			return
		}

		w.WriteHeader(http.StatusUnprocessableEntity)
		encode(schemas.ErrorResponse{Message: "Something goes wrong!"}, w)
		return
	}

	encode(schemas.RespondResponse{GameId: gameId}, w)
}

// watchReceived streams the pending list to a watch client. The optional
// gameType query narrows the stream to one game's lobby screen.
func (lobbyHandler LobbyHandler) watchReceived(w http.ResponseWriter, r *http.Request) {
	userId := r.URL.Query().Get("userId")
	if userId == "" {
		logx.Logger.Info("userId is not provided")
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	var gameType *entities.GameType
	if filter := r.URL.Query().Get("gameType"); filter != "" {
		parsed, err := entities.ParseGameType(filter)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		gameType = &parsed
	}

	connection, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "could not upgrade http request"),
		)
		return
	}
	defer connection.Close()

	ctx, cancel := streamContext(lobbyHandler.baseCtx, r)
	defer cancel()
	go cancelOnClose(connection, cancel)

	var lists <-chan []entities.GameRequest
	if gameType != nil {
		lists, err = lobbyHandler.lobbyService.ObserveReceivedByType(ctx, userId, *gameType)
	} else {
		lists, err = lobbyHandler.lobbyService.ObserveReceived(ctx, userId)
	}
	if err != nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "could not observe received requests"),
		)
		return
	}

	for requests := range lists {
		message := schemas.RequestListSnapshot{Requests: requestDocs(requests)}
		if err := connection.WriteJSON(message); err != nil {
			return
		}
	}
}

// watchSent streams the sender's copy of one request until the connection or
// the record goes away.
func (lobbyHandler LobbyHandler) watchSent(w http.ResponseWriter, r *http.Request) {
	requestId := chi.URLParam(r, "id")
	userId := r.URL.Query().Get("userId")
	if userId == "" {
		logx.Logger.Info("userId is not provided")
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	connection, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "could not upgrade http request"),
		)
		return
	}
	defer connection.Close()

	ctx, cancel := streamContext(lobbyHandler.baseCtx, r)
	defer cancel()
	go cancelOnClose(connection, cancel)

	updates, err := lobbyHandler.lobbyService.ObserveSent(ctx, userId, requestId)
	if err != nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "could not observe sent request"),
		)
		return
	}

	for request := range updates {
		message := schemas.SentRequestSnapshot{Deleted: request == nil}
		if request != nil {
			doc := schemas.NewGameRequestDoc(*request)
			message.Request = &doc
		}
		if err := connection.WriteJSON(message); err != nil {
			return
		}
		if message.Deleted {
			return
		}
	}
}

func requestDocs(requests []entities.GameRequest) []schemas.GameRequestDoc {
	docs := make([]schemas.GameRequestDoc, 0, len(requests))
	for _, request := range requests {
		docs = append(docs, schemas.NewGameRequestDoc(request))
	}
	return docs
}

// cancelOnClose drains the client side of a watch socket so peer close and
// network errors tear the observation down.
func cancelOnClose(connection *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := connection.ReadMessage(); err != nil {
			return
		}
	}
}
