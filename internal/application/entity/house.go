package entity

import "time"

type House struct {
	ID      int64  `json:"houseId"`
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Address string `json:"address" validate:"omitempty,max=500"`
}

type HouseResponse struct {
	ID        int64     `json:"houseId"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
