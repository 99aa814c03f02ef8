package models

// User is a presence record kept in a room's users hash.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt int64  `json:"joinedAt"` // Unix ms
	IsOnline bool   `json:"isOnline"`
}
