package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimlee/watchduel/entities"
)

func TestGameRequestRoundTrip(t *testing.T) {
	request := entities.GameRequest{
		RequestId:  "r1",
		FromUserId: "user_jim",
		ToUserId:   "user_hi",
		GameType:   entities.GameTypeMukjjippa,
		Status:     entities.RequestAccepted,
		Timestamp:  1700000000000,
		GameId:     "g1",
	}

	data, err := EncodeGameRequest(request)
	require.NoError(t, err)

	decoded, err := DecodeGameRequest(data)
	require.NoError(t, err)
	assert.Equal(t, request, decoded)
}

func TestDecodeGameRequestRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"bad status":     `{"requestId":"r","fromUserId":"a","toUserId":"b","gameType":"SUMO","status":"MAYBE"}`,
		"bad game type":  `{"requestId":"r","fromUserId":"a","toUserId":"b","gameType":"CHESS","status":"PENDING"}`,
		"missing sender": `{"requestId":"r","toUserId":"b","gameType":"SUMO","status":"PENDING"}`,
		"not json":       `PENDING`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeGameRequest([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestSumoDocRoundTrip(t *testing.T) {
	collision := 2.9
	state := entities.SumoState{
		Player1Position:    0.4,
		Player2Position:    6.9,
		Status:             entities.StatusPlaying,
		LastUpdateTime:     1234,
		Player1Score:       2,
		Player2Score:       1,
		CollisionPosition:  &collision,
		CollisionTimestamp: 1234,
	}
	meta := SessionMeta{GameId: "g1", Player1Id: "user_jim", Player2Id: "user_hi", LastMovePlayerId: "user_jim"}

	doc := SumoDocFromState(meta, state)
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	decoded, err := DecodeSumoGameDoc(data)
	require.NoError(t, err)
	assert.Equal(t, meta, decoded.Meta())

	roundTripped, err := decoded.State()
	require.NoError(t, err)
	assert.Equal(t, state, roundTripped)
}

func TestMukjjippaDocRoundTrip(t *testing.T) {
	state := entities.MukjjippaState{
		Phase:                  entities.PhaseMukjjippa,
		Countdown:              entities.CountdownResultWait,
		Message:                "",
		Player1Score:           1,
		Player2Score:           3,
		Player1Choice:          entities.ChoiceRock,
		Player2Choice:          entities.ChoiceNone,
		AttackerId:             "user_hi",
		PreviousAttackerChoice: entities.ChoicePaper,
		BothReady:              true,
	}
	meta := SessionMeta{GameId: "g2", Player1Id: "user_jim", Player2Id: "user_hi", LastMovePlayerId: "user_hi"}

	doc := MukjjippaDocFromState(meta, state, 99)
	assert.Equal(t, int64(99), doc.LastMoveTimestamp)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	decoded, err := DecodeMukjjippaGameDoc(data)
	require.NoError(t, err)
	assert.Equal(t, meta, decoded.Meta())

	roundTripped, err := decoded.State()
	require.NoError(t, err)
	assert.Equal(t, state, roundTripped)
}

func TestMukjjippaStateReconstructsFinishedFromPhase(t *testing.T) {
	// A stale write can persist GAME_OVER with the finished flag still false;
	// reads must mask that.
	doc := MukjjippaGameDoc{
		GameId:         "g1",
		Player1Id:      "user_jim",
		Player2Id:      "user_hi",
		Phase:          string(entities.PhaseGameOver),
		CountdownState: string(entities.CountdownWaiting),
		IsGameFinished: false,
	}

	state, err := doc.State()
	require.NoError(t, err)
	assert.True(t, state.Finished)
}

func TestMukjjippaDocRejectsUnknownEnums(t *testing.T) {
	doc := MukjjippaGameDoc{
		GameId:         "g1",
		Player1Id:      "a",
		Player2Id:      "b",
		Phase:          "LIGHTNING_ROUND",
		CountdownState: string(entities.CountdownWaiting),
	}
	_, err := doc.State()
	assert.Error(t, err)

	bad := "LIZARD"
	doc.Phase = string(entities.PhaseMukjjippa)
	doc.Player1Choice = &bad
	_, err = doc.State()
	assert.Error(t, err)
}
