// Package engine holds the deterministic rule engines for both minigames.
// Everything here is a pure function over entities state; the services layer
// decides when results get persisted.
package engine

import "github.com/jimlee/watchduel/entities"

// Sumo tuning. These values define the gameplay feel and must not drift:
// notably the asymmetric push, where the mover is only normalized back onto
// the contact line while the pushed player flies an extra PushForce.
const (
	SumoBoundary     = 10.0
	SumoStepSize     = 0.8
	SumoPlayerRadius = 2.5
	SumoPushForce    = 1.5
)

// ProcessSumoMove applies one accepted tap by the given actor. Moves outside
// an active round are ignored. Exactly one position changes from the step
// itself; the opponent only moves as a push reaction to a collision.
func ProcessSumoMove(state entities.SumoState, actor entities.Actor, timestamp int64) entities.SumoState {
	if state.Status != entities.StatusPlaying {
		return state
	}

	p1 := state.Player1Position
	p2 := state.Player2Position

	if actor == entities.ActorPlayer1 {
		p1 += SumoStepSize
	} else {
		p2 -= SumoStepSize
	}

	p1, p2, collisionPoint := resolveCollision(p1, p2, actor)

	status := sumoWinCondition(p1, p2)

	score1 := state.Player1Score
	score2 := state.Player2Score
	if status == entities.StatusPlayer1Win {
		score1++
	}
	if status == entities.StatusPlayer2Win {
		score2++
	}

	collisionTimestamp := int64(0)
	if collisionPoint != nil {
		collisionTimestamp = timestamp
	}

	return entities.SumoState{
		Player1Position:    p1,
		Player2Position:    p2,
		Player1Velocity:    0,
		Player2Velocity:    0,
		Status:             status,
		LastUpdateTime:     timestamp,
		Player1Score:       score1,
		Player2Score:       score2,
		CollisionPosition:  collisionPoint,
		CollisionTimestamp: collisionTimestamp,
	}
}

// resolveCollision separates overlapping players. The mover gives up half the
// overlap; the other player takes the other half plus the push force. The
// returned collision point is the midpoint before separation, nil when the
// players never touched.
func resolveCollision(p1, p2 float64, actor entities.Actor) (float64, float64, *float64) {
	centerDistance := p2 - p1
	threshold := 2 * SumoPlayerRadius
	if centerDistance >= threshold {
		return p1, p2, nil
	}

	overlap := threshold - centerDistance
	collisionPoint := (p1 + p2) / 2

	if actor == entities.ActorPlayer1 {
		p1 -= overlap / 2
		p2 += overlap/2 + SumoPushForce
	} else {
		p1 -= overlap/2 + SumoPushForce
		p2 += overlap / 2
	}
	return p1, p2, &collisionPoint
}

func sumoWinCondition(p1, p2 float64) entities.GameStatus {
	switch {
	case p1 < -SumoBoundary:
		return entities.StatusPlayer2Win
	case p2 > SumoBoundary:
		return entities.StatusPlayer1Win
	default:
		return entities.StatusPlaying
	}
}

// ResetSumoRound recenters the players for the next round, keeping the win
// counters.
func ResetSumoRound(score1, score2 int) entities.SumoState {
	state := entities.NewSumoState()
	state.Player1Score = score1
	state.Player2Score = score2
	return state
}

// ResetSumoGame returns a fully defaulted game, scores included.
func ResetSumoGame() entities.SumoState {
	return entities.NewSumoState()
}
