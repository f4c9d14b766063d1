package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimlee/watchduel/entities"
)

func TestProcessSumoMoveIgnoredWhenNotPlaying(t *testing.T) {
	state := entities.NewSumoState()
	state.Status = entities.StatusPlayer1Win

	next := ProcessSumoMove(state, entities.ActorPlayer2, 42)
	assert.Equal(t, state, next)
}

func TestProcessSumoMoveMovesOnlyTheActor(t *testing.T) {
	state := entities.NewSumoState()

	next := ProcessSumoMove(state, entities.ActorPlayer1, 100)
	assert.InDelta(t, -5+SumoStepSize, next.Player1Position, 1e-9)
	assert.InDelta(t, 5, next.Player2Position, 1e-9)
	assert.Nil(t, next.CollisionPosition)
	assert.Equal(t, entities.StatusPlaying, next.Status)
	assert.Equal(t, int64(100), next.LastUpdateTime)
	assert.Zero(t, next.Player1Velocity)
	assert.Zero(t, next.Player2Velocity)

	next = ProcessSumoMove(state, entities.ActorPlayer2, 100)
	assert.InDelta(t, -5, next.Player1Position, 1e-9)
	assert.InDelta(t, 5-SumoStepSize, next.Player2Position, 1e-9)
}

func TestProcessSumoMoveIsDeterministic(t *testing.T) {
	state := entities.NewSumoState()
	state.Player1Position = 0
	state.Player2Position = 4.5

	a := ProcessSumoMove(state, entities.ActorPlayer1, 7)
	b := ProcessSumoMove(state, entities.ActorPlayer1, 7)
	assert.Equal(t, a, b)
}

func TestProcessSumoMoveCollisionPushesAsymmetrically(t *testing.T) {
	state := entities.NewSumoState()
	state.Player1Position = 0
	state.Player2Position = 5

	next := ProcessSumoMove(state, entities.ActorPlayer1, 1234)

	// After the step p1 is at 0.8, distance 4.2 < 5, overlap 0.8.
	assert.InDelta(t, 0.4, next.Player1Position, 1e-9, "mover gives back half the overlap")
	assert.InDelta(t, 6.9, next.Player2Position, 1e-9, "pushed player takes half overlap plus push force")

	// The pushed player always travels strictly further than PushForce.
	assert.Greater(t, next.Player2Position-state.Player2Position, SumoPushForce)
	// Overlap fully resolved: separation restored to at least the threshold.
	assert.GreaterOrEqual(t, next.Player2Position-next.Player1Position, 2*SumoPlayerRadius-1e-9)

	require.NotNil(t, next.CollisionPosition)
	assert.InDelta(t, (0.8+5)/2, *next.CollisionPosition, 1e-9, "collision point is the pre-resolution midpoint")
	assert.Equal(t, int64(1234), next.CollisionTimestamp)
}

func TestProcessSumoMovePlayer1WinsAtBoundary(t *testing.T) {
	state := entities.NewSumoState()
	state.Player1Position = 4.0
	state.Player2Position = 8.6
	state.Player1Score = 2

	next := ProcessSumoMove(state, entities.ActorPlayer1, 1)

	assert.Equal(t, entities.StatusPlayer1Win, next.Status)
	assert.Greater(t, next.Player2Position, SumoBoundary)
	assert.Equal(t, 3, next.Player1Score)
	assert.Equal(t, 0, next.Player2Score)
}

func TestProcessSumoMovePlayer2WinsAtBoundary(t *testing.T) {
	state := entities.NewSumoState()
	state.Player1Position = -8.6
	state.Player2Position = -4.0

	next := ProcessSumoMove(state, entities.ActorPlayer2, 1)

	assert.Equal(t, entities.StatusPlayer2Win, next.Status)
	assert.Less(t, next.Player1Position, -SumoBoundary)
	assert.Equal(t, 1, next.Player2Score)
}

func TestResetSumoRoundKeepsScores(t *testing.T) {
	state := ResetSumoRound(3, 1)
	assert.Equal(t, 3, state.Player1Score)
	assert.Equal(t, 1, state.Player2Score)
	assert.InDelta(t, -5, state.Player1Position, 1e-9)
	assert.InDelta(t, 5, state.Player2Position, 1e-9)
	assert.Equal(t, entities.StatusPlaying, state.Status)
}

func TestResetSumoGameClearsEverything(t *testing.T) {
	state := ResetSumoGame()
	assert.Zero(t, state.Player1Score)
	assert.Zero(t, state.Player2Score)
	assert.InDelta(t, -5, state.Player1Position, 1e-9)
	assert.InDelta(t, 5, state.Player2Position, 1e-9)
}
