package entities

import "fmt"

type GameStatus string

const (
	StatusWaiting    GameStatus = "WAITING"
	StatusPlaying    GameStatus = "PLAYING"
	StatusPlayer1Win GameStatus = "PLAYER1_WIN"
	StatusPlayer2Win GameStatus = "PLAYER2_WIN"
)

func ParseGameStatus(s string) (GameStatus, error) {
	switch GameStatus(s) {
	case StatusWaiting, StatusPlaying, StatusPlayer1Win, StatusPlayer2Win:
		return GameStatus(s), nil
	}
	return "", fmt.Errorf("unknown game status %q", s)
}

// Actor identifies which seat made a move, independent of user identity.
// Player 1 pushes rightward from the left side, player 2 leftward.
type Actor int

const (
	ActorPlayer1 Actor = 1
	ActorPlayer2 Actor = 2
)

// SumoState is the in-memory sumo game state. Positions live on a single
// axis, roughly [-10, +10]. The velocity fields are carried for the document
// shape but the engine always reports them as zero: moves stop instantly.
type SumoState struct {
	Player1Position float64
	Player2Position float64
	Player1Velocity float64
	Player2Velocity float64
	Status          GameStatus
	LastUpdateTime  int64
	Player1Score    int
	Player2Score    int
	// CollisionPosition is the midpoint of the two players at the moment of
	// contact, nil when the last move had no collision.
	CollisionPosition  *float64
	CollisionTimestamp int64
}

// NewSumoState returns the default round state: players at -5 and +5, playing.
func NewSumoState() SumoState {
	return SumoState{
		Player1Position: -5,
		Player2Position: 5,
		Status:          StatusPlaying,
	}
}
