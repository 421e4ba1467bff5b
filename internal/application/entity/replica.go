package entity

import "time"

// HouseReplica - локальная eventually-consistent копия дома на стороне
// temperature-сервиса. LastEventID - id последнего применённого события.
type HouseReplica struct {
	ID           int64     `json:"houseId" db:"id"`
	Name         string    `json:"name" db:"name"`
	Address      string    `json:"address" db:"address"`
	LastEventID  int64     `json:"lastEventId" db:"last_event_id"`
	LastSyncedAt time.Time `json:"lastSyncedAt" db:"last_synced_at"`
}

type RoomReplica struct {
	ID           int64     `json:"roomId" db:"id"`
	HouseID      int64     `json:"houseId" db:"house_id"`
	Name         string    `json:"name" db:"name"`
	Floor        int       `json:"floor" db:"floor"`
	LastEventID  int64     `json:"lastEventId" db:"last_event_id"`
	LastSyncedAt time.Time `json:"lastSyncedAt" db:"last_synced_at"`
}
