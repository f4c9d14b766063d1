package entities

import "fmt"

type GameType string

const (
	GameTypeSumo      GameType = "SUMO"
	GameTypeMukjjippa GameType = "MUKJJIPPA"
)

func ParseGameType(s string) (GameType, error) {
	switch GameType(s) {
	case GameTypeSumo, GameTypeMukjjippa:
		return GameType(s), nil
	}
	return "", fmt.Errorf("unknown game type %q", s)
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
)

func ParseRequestStatus(s string) (RequestStatus, error) {
	switch RequestStatus(s) {
	case RequestPending, RequestAccepted, RequestRejected:
		return RequestStatus(s), nil
	}
	return "", fmt.Errorf("unknown request status %q", s)
}

// GameRequest is one game invitation. The same record is written under both
// participants' paths (gameRequests/{toUserId}/{id} and
// gameRequests/{fromUserId}/{id}); those are distinct documents in the store
// and every mutation has to touch both.
type GameRequest struct {
	RequestId  string
	FromUserId string
	ToUserId   string
	GameType   GameType
	Status     RequestStatus
	Timestamp  int64
	// GameId is set when the recipient accepts.
	GameId string
}
