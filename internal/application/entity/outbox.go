package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

type OutboxStatus string

const (
	OutboxNew    OutboxStatus = "NEW"
	OutboxSent   OutboxStatus = "SENT"
	OutboxFailed OutboxStatus = "FAILED"
	OutboxGaveUp OutboxStatus = "GAVE_UP"
)

type OutboxAggregate string

const (
	AggregateHouse OutboxAggregate = "house"
	AggregateRoom  OutboxAggregate = "room"
)

type OutboxEventType string

const (
	HouseCreated OutboxEventType = "house_created"
	HouseUpdated OutboxEventType = "house_updated"
	HouseDeleted OutboxEventType = "house_deleted"
	RoomCreated  OutboxEventType = "room_created"
	RoomUpdated  OutboxEventType = "room_updated"
	RoomDeleted  OutboxEventType = "room_deleted"
)

type OutboxEvent struct {
	ID            int64           `db:"id"`
	AggregateID   string          `db:"aggregate_id"`   // поток упорядочивания: "house-<houseID>"
	AggregateType OutboxAggregate `db:"aggregate_type"` // "house" | "room"
	EventType     OutboxEventType `db:"event_type"`
	HouseID       int64           `db:"house_id"`
	RoomID        *int64          `db:"room_id"`
	Payload       json.RawMessage `db:"payload"` // JSONB снапшот сущности
	Status        OutboxStatus    `db:"status"`  // NEW | SENT | FAILED | GAVE_UP
	Attempts      int             `db:"attempts"`
	NextAttemptAt time.Time       `db:"next_attempt_at"`
	LastError     *string         `db:"last_error"`
	CreatedAt     time.Time       `db:"created_at"`
}

// HouseStream возвращает ключ потока для дома: все события дома и его комнат
// идут через один поток, чтобы room_created не обгонял house_created.
func HouseStream(houseID int64) string {
	return fmt.Sprintf("house-%d", houseID)
}
