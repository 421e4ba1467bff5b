package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityKey идентифицирует сущность в сообщении: дом или комната внутри дома.
type EntityKey struct {
	HouseID int64  `json:"houseId"`
	RoomID  *int64 `json:"roomId,omitempty"`
}

// InboxKey - ключ дедупликации на стороне консьюмера (per-entity).
func (k EntityKey) InboxKey() string {
	if k.RoomID != nil {
		return fmt.Sprintf("room-%d", *k.RoomID)
	}
	return fmt.Sprintf("house-%d", k.HouseID)
}

// Message - самоописывающееся сообщение шины.
// EventID - это id строки outbox: монотонный в пределах продюсера,
// консьюмер сравнивает его с lastEventId реплики.
type Message struct {
	EventID   int64           `json:"eventId"`
	EventType OutboxEventType `json:"eventType"`
	EntityKey EntityKey       `json:"entityKey"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func (e OutboxEvent) ToMessage() Message {
	return Message{
		EventID:   e.ID,
		EventType: e.EventType,
		EntityKey: EntityKey{HouseID: e.HouseID, RoomID: e.RoomID},
		Payload:   e.Payload,
		Timestamp: e.CreatedAt,
	}
}
