package valueobjects

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxMessageBodyLength caps a single message body, matching the column
// width the profile subsystem uses for long-form text.
const MaxMessageBodyLength = 5000

// MessageBody is the validated text content of a message.
type MessageBody struct {
	value string
}

// NewMessageBody validates and creates a message body. Leading and
// trailing whitespace is preserved; bodies that are empty after trimming
// are rejected.
func NewMessageBody(text string) (MessageBody, error) {
	if strings.TrimSpace(text) == "" {
		return MessageBody{}, errors.New("message body cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxMessageBodyLength {
		return MessageBody{}, errors.New("message body exceeds maximum length")
	}
	return MessageBody{value: text}, nil
}

// String returns the message text.
func (b MessageBody) String() string {
	return b.value
}

// IsZero checks if the body is the zero value.
func (b MessageBody) IsZero() bool {
	return b.value == ""
}

// MarshalJSON implements json.Marshaler
func (b MessageBody) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (b *MessageBody) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &b.value)
}
