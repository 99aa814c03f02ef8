// Package codec converts history and presence records to and from the string
// form they are stored under in Redis.
package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/myansiry/chatrelay/internal/models"
)

// ErrDecode is returned (wrapped) for any stored value that cannot be turned
// back into a record.
var ErrDecode = errors.New("codec: undecodable record")

var null = []byte("null")

// EncodeMessage serializes a message. Field order is fixed by the struct, so
// the output is stable and DecodeMessage followed by EncodeMessage reproduces
// it exactly.
func EncodeMessage(msg models.Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	return string(data), nil
}

// DecodeMessage parses a stored message. It never panics; malformed input
// yields an error wrapping ErrDecode.
func DecodeMessage(raw string) (models.Message, error) {
	var msg models.Message
	if err := decode(raw, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// EncodeUser serializes a presence record.
func EncodeUser(user models.User) (string, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	return string(data), nil
}

// DecodeUser parses a stored presence record.
func DecodeUser(raw string) (models.User, error) {
	var user models.User
	if err := decode(raw, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func decode(raw string, v any) error {
	data := bytes.TrimSpace([]byte(raw))
	// A JSON null unmarshals without error but carries no record.
	if len(data) == 0 || bytes.Equal(data, null) {
		return fmt.Errorf("%w: empty value", ErrDecode)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
