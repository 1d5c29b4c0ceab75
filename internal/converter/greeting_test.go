package converter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tazhibayda/greetings-service/internal/domain"
	"github.com/tazhibayda/greetings-service/internal/dto"
)

func TestToResponseList_EmptyEncodesAsArray(t *testing.T) {
	b, err := json.Marshal(ToResponseList(nil))
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(b))
}

func TestToResponse_WireShape(t *testing.T) {
	id := uuid.MustParse("7d3f1c2e-9a4b-4c3d-8e2f-1a2b3c4d5e6f")
	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	sender := "alice"

	b, err := json.Marshal(ToResponse(domain.Greeting{ID: id, Message: "hi", Sender: &sender, CreatedAt: at, UpdatedAt: at}))
	require.NoError(t, err)
	require.JSONEq(t, `{
		"id":"7d3f1c2e-9a4b-4c3d-8e2f-1a2b3c4d5e6f",
		"message":"hi",
		"sender":"alice",
		"recipient":null,
		"createdAt":"2024-05-01T08:30:00Z",
		"updatedAt":"2024-05-01T08:30:00Z"
	}`, string(b))
}

func TestFromRequests(t *testing.T) {
	r := "bob"
	g := FromCreateRequest(dto.CreateGreetingRequest{Message: "hi", Recipient: &r})
	require.Equal(t, uuid.Nil, g.ID)
	require.True(t, g.CreatedAt.IsZero())
	require.Nil(t, g.Sender)
	require.Equal(t, "bob", *g.Recipient)

	f := FromUpdateRequest(dto.UpdateGreetingRequest{Message: "bye"})
	require.Equal(t, domain.Fields{Message: "bye"}, f)

	require.Equal(t, dto.CountResponse{Count: 3}, ToCountResponse(3))
}
