package chat

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewMessageID returns a time-ordered id for a message created at t. Ids are
// unique in practice but uniqueness is not relied on anywhere.
func NewMessageID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

func systemMessageID(t time.Time) string {
	return "system-" + NewMessageID(t)
}

// placeholderUserID is used for joiners that did not send an id.
func placeholderUserID(t time.Time) string {
	return fmt.Sprintf("user-%d", t.UnixMilli())
}
