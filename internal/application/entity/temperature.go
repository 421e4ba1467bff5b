package entity

import (
	"time"

	"github.com/gofrs/uuid"
)

// TemperatureReading - запрос на запись показания.
// Value - строка, парсится строго в NUMERIC(18,2).
type TemperatureReading struct {
	RoomID     int64  `json:"roomId"`
	Value      string `json:"value" validate:"required"`
	MeasuredAt string `json:"measuredAt" validate:"omitempty,rfc3339_optional"`
}

type TemperatureReadingResponse struct {
	ID         uuid.UUID `json:"id"`
	RoomID     int64     `json:"roomId"`
	Value      string    `json:"value"`
	MeasuredAt time.Time `json:"measuredAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RoomTemperatureSummary - средняя температура по комнате (join по house_id).
type RoomTemperatureSummary struct {
	RoomID   int64  `json:"roomId"`
	RoomName string `json:"roomName"`
	AvgValue string `json:"avgValue"`
	Readings int64  `json:"readings"`
}
