// Package schemas holds the wire and persistence shapes: the JSON documents
// written to the shared store, the notification events published for the push
// bridge, and the gateway payloads. Enums are persisted as strings; decoding
// validates them and fails soft so observers can skip a malformed record
// without tearing down the stream.
package schemas

import (
	"encoding/json"
	"fmt"

	"github.com/jimlee/watchduel/entities"
)

// SessionMeta is the per-game envelope shared by both game document shapes.
type SessionMeta struct {
	GameId           string
	Player1Id        string
	Player2Id        string
	LastMovePlayerId string
}

// GameRequestDoc is the persisted invitation record, stored identically under
// both participants' request paths.
type GameRequestDoc struct {
	RequestId  string  `json:"requestId"`
	FromUserId string  `json:"fromUserId"`
	ToUserId   string  `json:"toUserId"`
	GameType   string  `json:"gameType"`
	Status     string  `json:"status"`
	Timestamp  int64   `json:"timestamp"`
	GameId     *string `json:"gameId"`
}

func NewGameRequestDoc(request entities.GameRequest) GameRequestDoc {
	doc := GameRequestDoc{
		RequestId:  request.RequestId,
		FromUserId: request.FromUserId,
		ToUserId:   request.ToUserId,
		GameType:   string(request.GameType),
		Status:     string(request.Status),
		Timestamp:  request.Timestamp,
	}
	if request.GameId != "" {
		gameId := request.GameId
		doc.GameId = &gameId
	}
	return doc
}

func EncodeGameRequest(request entities.GameRequest) ([]byte, error) {
	return json.Marshal(NewGameRequestDoc(request))
}

func DecodeGameRequest(data []byte) (entities.GameRequest, error) {
	var doc GameRequestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return entities.GameRequest{}, fmt.Errorf("decode game request: %w", err)
	}
	gameType, err := entities.ParseGameType(doc.GameType)
	if err != nil {
		return entities.GameRequest{}, err
	}
	status, err := entities.ParseRequestStatus(doc.Status)
	if err != nil {
		return entities.GameRequest{}, err
	}
	if doc.RequestId == "" || doc.FromUserId == "" || doc.ToUserId == "" {
		return entities.GameRequest{}, fmt.Errorf("decode game request: missing identity fields")
	}
	request := entities.GameRequest{
		RequestId:  doc.RequestId,
		FromUserId: doc.FromUserId,
		ToUserId:   doc.ToUserId,
		GameType:   gameType,
		Status:     status,
		Timestamp:  doc.Timestamp,
	}
	if doc.GameId != nil {
		request.GameId = *doc.GameId
	}
	return request, nil
}

// SumoGameDoc is the persisted sumo session document. Velocities are not
// stored: the engine's instantaneous-stop model keeps them at zero.
type SumoGameDoc struct {
	GameId             string   `json:"gameId"`
	Player1Id          string   `json:"player1Id"`
	Player2Id          string   `json:"player2Id"`
	Player1Position    float64  `json:"player1Position"`
	Player2Position    float64  `json:"player2Position"`
	GameStatus         string   `json:"gameStatus"`
	Player1Score       int      `json:"player1Score"`
	Player2Score       int      `json:"player2Score"`
	LastMovePlayerId   string   `json:"lastMovePlayerId"`
	LastMoveTimestamp  int64    `json:"lastMoveTimestamp"`
	CollisionPosition  *float64 `json:"collisionPosition"`
	CollisionTimestamp int64    `json:"collisionTimestamp"`
}

func DecodeSumoGameDoc(data []byte) (*SumoGameDoc, error) {
	var doc SumoGameDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode sumo game: %w", err)
	}
	if doc.GameId == "" || doc.Player1Id == "" || doc.Player2Id == "" {
		return nil, fmt.Errorf("decode sumo game: missing session fields")
	}
	return &doc, nil
}

func (d *SumoGameDoc) Meta() SessionMeta {
	return SessionMeta{
		GameId:           d.GameId,
		Player1Id:        d.Player1Id,
		Player2Id:        d.Player2Id,
		LastMovePlayerId: d.LastMovePlayerId,
	}
}

// State converts the document into the in-memory shape.
func (d *SumoGameDoc) State() (entities.SumoState, error) {
	status, err := entities.ParseGameStatus(d.GameStatus)
	if err != nil {
		return entities.SumoState{}, err
	}
	return entities.SumoState{
		Player1Position:    d.Player1Position,
		Player2Position:    d.Player2Position,
		Status:             status,
		LastUpdateTime:     d.LastMoveTimestamp,
		Player1Score:       d.Player1Score,
		Player2Score:       d.Player2Score,
		CollisionPosition:  d.CollisionPosition,
		CollisionTimestamp: d.CollisionTimestamp,
	}, nil
}

// SumoDocFromState builds the document to overwrite the session with.
func SumoDocFromState(meta SessionMeta, state entities.SumoState) SumoGameDoc {
	return SumoGameDoc{
		GameId:             meta.GameId,
		Player1Id:          meta.Player1Id,
		Player2Id:          meta.Player2Id,
		Player1Position:    state.Player1Position,
		Player2Position:    state.Player2Position,
		GameStatus:         string(state.Status),
		Player1Score:       state.Player1Score,
		Player2Score:       state.Player2Score,
		LastMovePlayerId:   meta.LastMovePlayerId,
		LastMoveTimestamp:  state.LastUpdateTime,
		CollisionPosition:  state.CollisionPosition,
		CollisionTimestamp: state.CollisionTimestamp,
	}
}

// MukjjippaGameDoc is the persisted mukjjippa session document.
type MukjjippaGameDoc struct {
	GameId                 string  `json:"gameId"`
	Player1Id              string  `json:"player1Id"`
	Player2Id              string  `json:"player2Id"`
	GameType               string  `json:"gameType"`
	Phase                  string  `json:"phase"`
	CountdownState         string  `json:"countdownState"`
	CurrentMessage         string  `json:"currentMessage"`
	Player1Score           int     `json:"player1Score"`
	Player2Score           int     `json:"player2Score"`
	Player1Choice          *string `json:"player1Choice"`
	Player2Choice          *string `json:"player2Choice"`
	AttackerId             *string `json:"attackerId"`
	PreviousAttackerChoice *string `json:"previousAttackerChoice"`
	Winner                 *string `json:"winner"`
	IsGameFinished         bool    `json:"isGameFinished"`
	BothPlayersReady       bool    `json:"bothPlayersReady"`
	LastMovePlayerId       string  `json:"lastMovePlayerId"`
	LastMoveTimestamp      int64   `json:"lastMoveTimestamp"`
}

func DecodeMukjjippaGameDoc(data []byte) (*MukjjippaGameDoc, error) {
	var doc MukjjippaGameDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode mukjjippa game: %w", err)
	}
	if doc.GameId == "" || doc.Player1Id == "" || doc.Player2Id == "" {
		return nil, fmt.Errorf("decode mukjjippa game: missing session fields")
	}
	return &doc, nil
}

func (d *MukjjippaGameDoc) Meta() SessionMeta {
	return SessionMeta{
		GameId:           d.GameId,
		Player1Id:        d.Player1Id,
		Player2Id:        d.Player2Id,
		LastMovePlayerId: d.LastMovePlayerId,
	}
}

// State converts the document into the in-memory shape. A GAME_OVER phase
// forces Finished regardless of the stored flag; stale documents written
// mid-transition otherwise leak an unfinished game-over.
func (d *MukjjippaGameDoc) State() (entities.MukjjippaState, error) {
	phase, err := entities.ParseMukjjippaPhase(d.Phase)
	if err != nil {
		return entities.MukjjippaState{}, err
	}
	countdown, err := entities.ParseCountdownState(d.CountdownState)
	if err != nil {
		return entities.MukjjippaState{}, err
	}
	player1Choice, err := parseOptionalChoice(d.Player1Choice)
	if err != nil {
		return entities.MukjjippaState{}, err
	}
	player2Choice, err := parseOptionalChoice(d.Player2Choice)
	if err != nil {
		return entities.MukjjippaState{}, err
	}
	previous, err := parseOptionalChoice(d.PreviousAttackerChoice)
	if err != nil {
		return entities.MukjjippaState{}, err
	}

	return entities.MukjjippaState{
		Phase:                  phase,
		Countdown:              countdown,
		Message:                d.CurrentMessage,
		Player1Score:           d.Player1Score,
		Player2Score:           d.Player2Score,
		Player1Choice:          player1Choice,
		Player2Choice:          player2Choice,
		AttackerId:             stringValue(d.AttackerId),
		PreviousAttackerChoice: previous,
		Winner:                 stringValue(d.Winner),
		Finished:               phase == entities.PhaseGameOver || d.IsGameFinished,
		BothReady:              d.BothPlayersReady,
	}, nil
}

// MukjjippaDocFromState builds the document to overwrite the session with,
// stamping the write time.
func MukjjippaDocFromState(meta SessionMeta, state entities.MukjjippaState, now int64) MukjjippaGameDoc {
	return MukjjippaGameDoc{
		GameId:                 meta.GameId,
		Player1Id:              meta.Player1Id,
		Player2Id:              meta.Player2Id,
		GameType:               string(entities.GameTypeMukjjippa),
		Phase:                  string(state.Phase),
		CountdownState:         string(state.Countdown),
		CurrentMessage:         state.Message,
		Player1Score:           state.Player1Score,
		Player2Score:           state.Player2Score,
		Player1Choice:          optionalChoice(state.Player1Choice),
		Player2Choice:          optionalChoice(state.Player2Choice),
		AttackerId:             optionalString(state.AttackerId),
		PreviousAttackerChoice: optionalChoice(state.PreviousAttackerChoice),
		Winner:                 optionalString(state.Winner),
		IsGameFinished:         state.Finished,
		BothPlayersReady:       state.BothReady,
		LastMovePlayerId:       meta.LastMovePlayerId,
		LastMoveTimestamp:      now,
	}
}

func parseOptionalChoice(s *string) (entities.Choice, error) {
	if s == nil {
		return entities.ChoiceNone, nil
	}
	return entities.ParseChoice(*s)
}

func optionalChoice(c entities.Choice) *string {
	if c == entities.ChoiceNone {
		return nil
	}
	s := string(c)
	return &s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
