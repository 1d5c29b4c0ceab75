package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateGreetingRequest struct {
	Message   string  `json:"message" binding:"required,max=500"`
	Sender    *string `json:"sender" binding:"omitempty,max=100"`
	Recipient *string `json:"recipient" binding:"omitempty,max=100"`
}

type UpdateGreetingRequest struct {
	Message   string  `json:"message" binding:"required,max=500"`
	Sender    *string `json:"sender" binding:"omitempty,max=100"`
	Recipient *string `json:"recipient" binding:"omitempty,max=100"`
}

type GreetingResponse struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	Sender    *string   `json:"sender"`
	Recipient *string   `json:"recipient"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type HelloResponse struct {
	Message string `json:"message"`
}
