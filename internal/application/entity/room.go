package entity

import "time"

type Room struct {
	ID      int64  `json:"roomId"`
	HouseID int64  `json:"houseId"`
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Floor   int    `json:"floor" validate:"omitempty,min=-5,max=200"`
}

type RoomResponse struct {
	ID        int64     `json:"roomId"`
	HouseID   int64     `json:"houseId"`
	Name      string    `json:"name"`
	Floor     int       `json:"floor"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
