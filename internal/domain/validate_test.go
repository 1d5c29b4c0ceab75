package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFields_Validate(t *testing.T) {
	long := func(n int) *string {
		s := strings.Repeat("x", n)
		return &s
	}

	cases := []struct {
		name string
		f    Fields
		want error
	}{
		{"ok", Fields{Message: "hi"}, nil},
		{"max lengths", Fields{Message: strings.Repeat("m", MaxMessageLen), Sender: long(MaxPartyLen), Recipient: long(MaxPartyLen)}, nil},
		{"empty", Fields{}, ErrBlankMessage},
		{"whitespace", Fields{Message: " \t\n"}, ErrBlankMessage},
		{"message", Fields{Message: strings.Repeat("m", MaxMessageLen+1)}, ErrMessageTooLong},
		{"sender", Fields{Message: "hi", Sender: long(MaxPartyLen + 1)}, ErrSenderTooLong},
		{"recipient", Fields{Message: "hi", Recipient: long(MaxPartyLen + 1)}, ErrRecipientTooLong},
		{"runes not bytes", Fields{Message: strings.Repeat("é", MaxMessageLen)}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.f.Validate())
		})
	}
}

func TestApply_Overwrites(t *testing.T) {
	s := "alice"
	g := Greeting{Message: "a", Sender: &s, Recipient: &s}
	g.Apply(Fields{Message: "b"})
	require.Equal(t, "b", g.Message)
	require.Nil(t, g.Sender)
	require.Nil(t, g.Recipient)
	require.False(t, g.HasSender("alice"))
}
