package handlers

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jimlee/watchduel/entities"
	"github.com/jimlee/watchduel/pkg/docstore"
	"github.com/jimlee/watchduel/pkg/logx"
	"github.com/jimlee/watchduel/pkg/syncx"
	"github.com/jimlee/watchduel/schemas"
	"github.com/jimlee/watchduel/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		allowed := os.Getenv("FRONTEND_URL")
		return allowed == "" || r.Header.Get("Origin") == allowed
	},
}

// GameHandler streams game sessions over websockets: every observed document
// goes out as a snapshot, every inbound message is an action applied through
// the session. One stream per user per game; a second connection for the same
// seat is refused so a single process never runs duplicate sequencers.
type GameHandler struct {
	store     docstore.Store
	users     entities.Pair
	timings   services.MukjjippaTimings
	localMode bool
	// baseCtx parents every game stream; server shutdown closes them all.
	baseCtx context.Context
	streams *syncx.Map[string, struct{}]
}

func NewGameHandler(
	router *chi.Mux,
	store docstore.Store,
	users entities.Pair,
	timings services.MukjjippaTimings,
	localMode bool,
	baseCtx context.Context,
) {
	gameHandler := GameHandler{
		store:     store,
		users:     users,
		timings:   timings,
		localMode: localMode,
		baseCtx:   baseCtx,
		streams:   &syncx.Map[string, struct{}]{},
	}
	router.Get("/games/{id}/join", gameHandler.join)
}

func (gameHandler GameHandler) join(w http.ResponseWriter, r *http.Request) {
	gameId := chi.URLParam(r, "id")

	userId := r.URL.Query().Get("userId")
	if !gameHandler.users.Contains(userId) {
		logx.Logger.Info("unknown userId", zap.String("userId", userId))
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	gameType, err := entities.ParseGameType(r.URL.Query().Get("type"))
	if err != nil {
		logx.Logger.Info(err.Error(), zap.String("desc", "bad game type"))
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	streamKey := gameId + "/" + userId
	if _, loaded := gameHandler.streams.LoadOrStore(streamKey, struct{}{}); loaded {
		w.WriteHeader(http.StatusConflict)
		encode(schemas.ErrorResponse{Message: "Seat already connected."}, w)
		return
	}
	defer gameHandler.streams.Delete(streamKey)

	connection, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "could not upgrade http request"),
		)
		return
	}
	defer connection.Close()

	ctx, cancel := streamContext(gameHandler.baseCtx, r)
	defer cancel()

	if gameType == entities.GameTypeMukjjippa {
		gameHandler.streamMukjjippa(ctx, cancel, connection, gameId, userId)
		return
	}
	gameHandler.streamSumo(ctx, cancel, connection, gameId, userId)
}

// streamSumo runs one sumo stream. The read loop applies actions; only the
// observation loop writes to the socket.
func (gameHandler GameHandler) streamSumo(
	ctx context.Context,
	cancel context.CancelFunc,
	connection *websocket.Conn,
	gameId, userId string,
) {
	session := services.NewSumoSession(gameHandler.store, gameId, userId)

	go func() {
		defer cancel()
		for {
			var action schemas.GameAction
			if err := connection.ReadJSON(&action); err != nil {
				return
			}
			var err error
			switch action.Action {
			case "move":
				err = session.Move(ctx)
			case "nextRound":
				err = session.NextRound(ctx)
			case "resetGame":
				err = session.ResetGame(ctx)
			case "quit":
				err = session.Quit(ctx)
			default:
				logx.Logger.Info("unknown sumo action", zap.String("action", action.Action))
			}
			if err != nil {
				logx.Logger.Error(
					err.Error(),
					zap.String("desc", "could not apply sumo action"),
					zap.String("gameId", gameId),
				)
			}
		}
	}()

	err := session.Run(ctx, func(doc *schemas.SumoGameDoc) {
		snapshot := schemas.GameSnapshot{Deleted: doc == nil, Sumo: doc}
		if err := connection.WriteJSON(snapshot); err != nil {
			cancel()
		}
	})
	if err != nil && ctx.Err() == nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "sumo stream ended with error"),
			zap.String("gameId", gameId),
		)
	}
}

func (gameHandler GameHandler) streamMukjjippa(
	ctx context.Context,
	cancel context.CancelFunc,
	connection *websocket.Conn,
	gameId, userId string,
) {
	var session *services.MukjjippaSession
	if gameHandler.localMode {
		session = services.NewLocalMukjjippaSession(gameHandler.store, gameId, userId, gameHandler.timings)
	} else {
		session = services.NewMukjjippaSession(gameHandler.store, gameId, userId, gameHandler.timings)
	}

	go func() {
		defer cancel()
		for {
			var action schemas.GameAction
			if err := connection.ReadJSON(&action); err != nil {
				return
			}
			var err error
			switch action.Action {
			case "choice":
				choice, parseErr := entities.ParseChoice(action.Choice)
				if parseErr != nil {
					logx.Logger.Info("unknown choice", zap.String("choice", action.Choice))
					continue
				}
				err = session.MakeChoice(ctx, choice)
			case "restart":
				err = session.Restart(ctx)
			case "quit":
				err = session.Quit(ctx)
			default:
				logx.Logger.Info("unknown mukjjippa action", zap.String("action", action.Action))
			}
			if err != nil {
				logx.Logger.Error(
					err.Error(),
					zap.String("desc", "could not apply mukjjippa action"),
					zap.String("gameId", gameId),
				)
			}
		}
	}()

	err := session.Run(ctx, func(doc *schemas.MukjjippaGameDoc) {
		snapshot := schemas.GameSnapshot{Deleted: doc == nil, Mukjjippa: doc}
		if err := connection.WriteJSON(snapshot); err != nil {
			cancel()
		}
	})
	if err != nil && ctx.Err() == nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "mukjjippa stream ended with error"),
			zap.String("gameId", gameId),
		)
	}
}
