package schemas

import (
	"encoding/json"
	"fmt"

	"github.com/jimlee/watchduel/entities"
)

// PublisherEvent is the envelope published to the notification channel. A
// relay outside this process turns it into an FCM push; gameplay never
// depends on delivery.
type PublisherEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func gameLabel(gameType entities.GameType) string {
	if gameType == entities.GameTypeMukjjippa {
		return "묵찌빠"
	}
	return "스모"
}

func RequestCreatedEvent(requestId, fromUserId string, gameType entities.GameType) (string, error) {
	type RequestCreatedContent struct {
		Title      string `json:"title"`
		Body       string `json:"body"`
		RequestId  string `json:"requestId"`
		FromUserId string `json:"fromUserId"`
		Type       string `json:"type"`
	}

	content := RequestCreatedContent{
		Title:      "게임 요청",
		Body:       fmt.Sprintf("%s님이 %s 게임을 하자고 했어요!", fromUserId, gameLabel(gameType)),
		RequestId:  requestId,
		FromUserId: fromUserId,
		Type:       "game_request",
	}

	return encode("RequestCreated", content)
}

func RequestAcceptedEvent(requestId, acceptedByUserId string) (string, error) {
	type RequestAcceptedContent struct {
		Title      string `json:"title"`
		Body       string `json:"body"`
		RequestId  string `json:"requestId"`
		FromUserId string `json:"fromUserId"`
		Type       string `json:"type"`
	}

	content := RequestAcceptedContent{
		Title:      "게임 요청 수락됨",
		Body:       fmt.Sprintf("%s님이 게임 요청을 수락했어요!", acceptedByUserId),
		RequestId:  requestId,
		FromUserId: acceptedByUserId,
		Type:       "game_request_accepted",
	}

	return encode("RequestAccepted", content)
}

func encode(eventType string, content any) (string, error) {
	message, err := json.Marshal(content)
	if err != nil {
		return "", err
	}

	event := PublisherEvent{
		Type:    eventType,
		Content: string(message),
	}

	e, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	return string(e), nil
}
