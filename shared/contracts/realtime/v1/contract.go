// Package v1 defines the chatpad realtime wire contract.
//
// Outbound frames are a tagged union discriminated by "type". Inbound frames
// carry a single message payload which must be a string.
package v1

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Channel is the name of the single broadcast topic.
const Channel = "message"

// Outbound frame types (wire-stable).
const (
	TypeSubscribed      = "subscribed"
	TypeAnnounceMessage = "announceMessage"
	TypeError           = "error"
)

// Message is the public form of a persisted message.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Contents  string    `json:"contents"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Subscribed is sent only to the connection that was just admitted.
type Subscribed struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	Channel string `json:"channel"`
}

// AnnounceMessage is fanned out to every subscriber, the sender included.
type AnnounceMessage struct {
	Type string  `json:"type"`
	Data Message `json:"data"`
}

// Error is sent to the offending connection only. The connection stays open.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewSubscribed(userID string) Subscribed {
	return Subscribed{Type: TypeSubscribed, UserID: userID, Channel: Channel}
}

func NewAnnounceMessage(m Message) AnnounceMessage {
	return AnnounceMessage{Type: TypeAnnounceMessage, Data: m}
}

func NewError(msg string) Error {
	return Error{Type: TypeError, Message: msg}
}

// Frame is an outbound frame decoded by clients. Only the fields of Type are set.
type Frame struct {
	Type    string   `json:"type"`
	UserID  string   `json:"userId,omitempty"`
	Channel string   `json:"channel,omitempty"`
	Data    *Message `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
}

var (
	ErrNotString = errors.New("message must be a string")
	ErrEmpty     = errors.New("message must not be empty")
	ErrTooLong   = errors.New("message too long")
	ErrNulByte   = errors.New("message must not contain NUL characters")
)

// DecodeInbound extracts the message contents from an inbound frame.
//
// Binary frames are rejected. A text frame holding a JSON string literal is
// unwrapped; any other JSON value, null included, is rejected. Text that is
// not JSON is taken verbatim. maxChars <= 0 disables the length check.
func DecodeInbound(text bool, data []byte, maxChars int) (string, error) {
	if !text || !utf8.Valid(data) {
		return "", ErrNotString
	}

	contents := string(data)
	if json.Valid(data) {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return "", ErrNotString
		}
		s, ok := v.(string)
		if !ok {
			return "", ErrNotString
		}
		contents = s
	}

	if err := ValidateContents(contents, maxChars); err != nil {
		return "", err
	}
	return contents, nil
}

// ValidateContents applies the checks shared by every publish path: not
// blank, no NUL characters, at most maxChars runes (maxChars <= 0 disables
// the length check).
func ValidateContents(contents string, maxChars int) error {
	switch {
	case strings.TrimSpace(contents) == "":
		return ErrEmpty
	case strings.ContainsRune(contents, 0):
		return ErrNulByte
	case maxChars > 0 && utf8.RuneCountInString(contents) > maxChars:
		return ErrTooLong
	}
	return nil
}
