package models

// MessageType distinguishes user-authored messages from ones the service synthesizes.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	return t == MessageTypeText || t == MessageTypeSystem
}

// Message represents a chat message stored in a room's history list.
type Message struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	UserName  string      `json:"userName"`
	Text      string      `json:"text"`
	Timestamp int64       `json:"timestamp"` // Unix ms
	Type      MessageType `json:"type"`
	RoomID    string      `json:"roomId"`
}
