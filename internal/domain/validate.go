package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrBlankMessage     = errors.New("Message cannot be blank")
	ErrMessageTooLong   = errors.New("Message cannot exceed 500 characters")
	ErrSenderTooLong    = errors.New("Sender cannot exceed 100 characters")
	ErrRecipientTooLong = errors.New("Recipient cannot exceed 100 characters")
)

// Validate checks f against the column limits. Lengths count runes.
func (f Fields) Validate() error {
	if strings.TrimSpace(f.Message) == "" {
		return ErrBlankMessage
	}
	if utf8.RuneCountInString(f.Message) > MaxMessageLen {
		return ErrMessageTooLong
	}
	if f.Sender != nil && utf8.RuneCountInString(*f.Sender) > MaxPartyLen {
		return ErrSenderTooLong
	}
	if f.Recipient != nil && utf8.RuneCountInString(*f.Recipient) > MaxPartyLen {
		return ErrRecipientTooLong
	}
	return nil
}

// Fields returns the mutable part of g.
func (g Greeting) Fields() Fields {
	return Fields{Message: g.Message, Sender: g.Sender, Recipient: g.Recipient}
}
