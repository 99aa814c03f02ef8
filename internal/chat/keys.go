package chat

import "fmt"

// MessagesKey returns the key of a room's history list (newest first).
func MessagesKey(roomID string) string {
	return fmt.Sprintf("room:%s:messages", roomID)
}

// UsersKey returns the key of a room's presence hash.
func UsersKey(roomID string) string {
	return fmt.Sprintf("room:%s:users", roomID)
}

// IdentityKey returns the presence hash field for a joiner. Without an explicit
// id the display name is used, so anonymous joiners sharing a name share a slot.
func IdentityKey(userID, userName string) string {
	if userID != "" {
		return "user:" + userID
	}
	return "user:" + userName
}
