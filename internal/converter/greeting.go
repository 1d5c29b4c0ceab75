// Package converter maps greetings between their stored and wire shapes.
// All functions are pure.
package converter

import (
	"github.com/tazhibayda/greetings-service/internal/domain"
	"github.com/tazhibayda/greetings-service/internal/dto"
)

func ToResponse(g domain.Greeting) dto.GreetingResponse {
	return dto.GreetingResponse{
		ID:        g.ID,
		Message:   g.Message,
		Sender:    g.Sender,
		Recipient: g.Recipient,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

// ToResponseList never returns nil so an empty result encodes as [].
func ToResponseList(gs []domain.Greeting) []dto.GreetingResponse {
	out := make([]dto.GreetingResponse, 0, len(gs))
	for _, g := range gs {
		out = append(out, ToResponse(g))
	}
	return out
}

func ToCountResponse(n int64) dto.CountResponse {
	return dto.CountResponse{Count: n}
}

// FromCreateRequest builds a new, unsaved greeting. ID and timestamps stay
// zero; the store assigns them on insert.
func FromCreateRequest(in dto.CreateGreetingRequest) domain.Greeting {
	return domain.Greeting{
		Message:   in.Message,
		Sender:    in.Sender,
		Recipient: in.Recipient,
	}
}

// FromUpdateRequest returns the field values the service merges into the
// existing greeting.
func FromUpdateRequest(in dto.UpdateGreetingRequest) domain.Fields {
	return domain.Fields{
		Message:   in.Message,
		Sender:    in.Sender,
		Recipient: in.Recipient,
	}
}
