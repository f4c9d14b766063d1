package schemas

// Gateway payloads. Clients identify themselves explicitly on every call;
// there are only two valid identities and the handlers reject everything else.

type SendRequestPayload struct {
	UserId   string `json:"userId"`
	GameType string `json:"gameType"`
}

type SendRequestResponse struct {
	RequestId string `json:"requestId"`
}

type RespondPayload struct {
	UserId string `json:"userId"`
	Accept bool   `json:"accept"`
}

type RespondResponse struct {
	GameId string `json:"gameId,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

// GameAction is an inbound websocket message on a game stream.
// Sumo actions: "move", "nextRound", "resetGame", "quit".
// Mukjjippa actions: "choice" (with Choice set), "restart", "quit".
type GameAction struct {
	Action string `json:"action"`
	Choice string `json:"choice,omitempty"`
}

// GameSnapshot is an outbound websocket message: the current document, or a
// deleted marker telling the client to exit to the lobby.
type GameSnapshot struct {
	Deleted   bool              `json:"deleted,omitempty"`
	Sumo      *SumoGameDoc      `json:"sumo,omitempty"`
	Mukjjippa *MukjjippaGameDoc `json:"mukjjippa,omitempty"`
}

// RequestListSnapshot is an outbound websocket message on a lobby watch
// stream: the full pending list after every change.
type RequestListSnapshot struct {
	Requests []GameRequestDoc `json:"requests"`
}

// SentRequestSnapshot tracks the sender's copy of one request. Deleted means
// the recipient rejected it or the sender cancelled from another device.
type SentRequestSnapshot struct {
	Deleted bool            `json:"deleted,omitempty"`
	Request *GameRequestDoc `json:"request,omitempty"`
}
