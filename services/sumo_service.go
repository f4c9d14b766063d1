package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jimlee/watchduel/engine"
	"github.com/jimlee/watchduel/entities"
	"github.com/jimlee/watchduel/pkg/docstore"
	"github.com/jimlee/watchduel/pkg/logx"
	"github.com/jimlee/watchduel/schemas"
)

// SumoSession synchronizes one sumo game document for one participant:
// it observes the store, caches the latest snapshot, and turns taps into
// full-document overwrites computed by the physics engine.
type SumoSession struct {
	store  docstore.Store
	gameId string
	userId string
	now    func() int64

	mu      sync.Mutex
	current *schemas.SumoGameDoc
}

func NewSumoSession(store docstore.Store, gameId, userId string) *SumoSession {
	return &SumoSession{
		store:  store,
		gameId: gameId,
		userId: userId,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

func (session *SumoSession) path() string {
	return docstore.Join(sumoGamesRoot, session.gameId)
}

// Run observes the game until ctx is cancelled or the session document is
// deleted. Every decoded snapshot is handed to onSnapshot; a nil document
// means the opponent quit and the caller must exit to the lobby.
func (session *SumoSession) Run(ctx context.Context, onSnapshot func(*schemas.SumoGameDoc)) error {
	snapshots, err := session.store.Observe(ctx, session.path())
	if err != nil {
		return err
	}

	for snapshot := range snapshots {
		if snapshot.Data == nil {
			onSnapshot(nil)
			return nil
		}
		doc, err := schemas.DecodeSumoGameDoc(snapshot.Data)
		if err != nil {
			logx.Logger.Info(
				"skipping malformed sumo document",
				zap.String("gameId", session.gameId),
			)
			continue
		}
		session.mu.Lock()
		session.current = doc
		session.mu.Unlock()
		onSnapshot(doc)
	}
	return nil
}

func (session *SumoSession) snapshot() *schemas.SumoGameDoc {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.current
}

// Move applies one tap by this session's user. Moves before the first
// snapshot or outside an active round are dropped.
func (session *SumoSession) Move(ctx context.Context) error {
	current := session.snapshot()
	if current == nil {
		return nil
	}
	state, err := current.State()
	if err != nil {
		return err
	}
	if state.Status != entities.StatusPlaying {
		return nil
	}

	actor := entities.ActorPlayer2
	if session.userId == current.Player1Id {
		actor = entities.ActorPlayer1
	}

	next := engine.ProcessSumoMove(state, actor, session.now())
	return session.writeState(ctx, current, next, session.userId)
}

// NextRound recenters the players, keeping both win counters.
func (session *SumoSession) NextRound(ctx context.Context) error {
	current := session.snapshot()
	if current == nil {
		return nil
	}
	next := engine.ResetSumoRound(current.Player1Score, current.Player2Score)
	return session.writeState(ctx, current, next, "")
}

// ResetGame starts over from zero, scores included.
func (session *SumoSession) ResetGame(ctx context.Context) error {
	current := session.snapshot()
	if current == nil {
		return nil
	}
	return session.writeState(ctx, current, engine.ResetSumoGame(), "")
}

// Quit removes the session document; the opponent observes the deletion.
func (session *SumoSession) Quit(ctx context.Context) error {
	return session.store.Delete(ctx, session.path())
}

func (session *SumoSession) writeState(ctx context.Context, current *schemas.SumoGameDoc, state entities.SumoState, lastMovePlayerId string) error {
	meta := current.Meta()
	meta.LastMovePlayerId = lastMovePlayerId
	doc := schemas.SumoDocFromState(meta, state)

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return session.store.Set(ctx, session.path(), data)
}
