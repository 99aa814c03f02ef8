// Package chat implements room message history and presence on top of Redis
// lists and hashes.
package chat

import (
	"context"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/myansiry/chatrelay/internal/codec"
	"github.com/myansiry/chatrelay/internal/metrics"
	"github.com/myansiry/chatrelay/internal/models"
)

const (
	DefaultHistoryLimit = 100
	DefaultTTL          = 24 * time.Hour

	defaultUserID = "http-user"
)

// Options tunes the history bound, key expiry and clock.
type Options struct {
	HistoryLimit int
	TTL          time.Duration
	Clock        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// RoomStore owns the bounded, expiring message history of each room.
type RoomStore struct {
	rdb    redis.Cmdable
	logger zerolog.Logger
	opts   Options
}

// NewRoomStore creates a RoomStore on top of a shared Redis handle.
func NewRoomStore(rdb redis.Cmdable, logger zerolog.Logger, opts Options) *RoomStore {
	return &RoomStore{
		rdb:    rdb,
		logger: logger.With().Str("component", "rooms").Logger(),
		opts:   opts.withDefaults(),
	}
}

// HistoryLimit returns the number of entries a history is bounded to.
func (s *RoomStore) HistoryLimit() int {
	return s.opts.HistoryLimit
}

// Append pushes msg to the head of the room's history, trims the list to the
// newest HistoryLimit entries and refreshes its expiry.
//
// The three commands are issued separately. Concurrent appends can leave the
// list briefly above the bound until their own trim runs. Only a failed push
// is reported; trim and expiry failures are logged and fixed by the next
// append to the room.
func (s *RoomStore) Append(ctx context.Context, roomID string, msg models.Message) error {
	data, err := codec.EncodeMessage(msg)
	if err != nil {
		return &StoreError{Op: "encode message", Err: err}
	}

	key := MessagesKey(roomID)

	if err := s.rdb.LPush(ctx, key, data).Err(); err != nil {
		return &StoreError{Op: "lpush", Err: err}
	}
	metrics.MessagesAppended.WithLabelValues(string(msg.Type)).Inc()

	if err := s.rdb.LTrim(ctx, key, 0, int64(s.opts.HistoryLimit)-1).Err(); err != nil {
		metrics.MaintenanceFailures.WithLabelValues("ltrim").Inc()
		s.logger.Warn().Err(err).Str("room", roomID).Msg("failed to bound message history")
	}
	if err := s.rdb.Expire(ctx, key, s.opts.TTL).Err(); err != nil {
		metrics.MaintenanceFailures.WithLabelValues("expire_messages").Inc()
		s.logger.Warn().Err(err).Str("room", roomID).Msg("failed to refresh message history expiry")
	}

	return nil
}

// PostInput carries a client-submitted message. Empty optional fields get
// defaults in Post.
type PostInput struct {
	RoomID    string
	Text      string
	UserName  string
	UserID    string
	Timestamp int64
	Type      models.MessageType
}

// Post validates in, fills defaults, and appends the resulting message.
func (s *RoomStore) Post(ctx context.Context, in PostInput) (models.Message, error) {
	if in.RoomID == "" || in.Text == "" || in.UserName == "" {
		return models.Message{}, missingFields("roomId", "text", "userName")
	}
	if in.Type == "" {
		in.Type = models.MessageTypeText
	}
	if !in.Type.Valid() {
		return models.Message{}, &ValidationError{
			Fields:  []string{"type"},
			Message: "type must be one of: text, system",
		}
	}

	now := s.opts.Clock()
	msg := models.Message{
		ID:        NewMessageID(now),
		UserID:    in.UserID,
		UserName:  in.UserName,
		Text:      in.Text,
		Timestamp: in.Timestamp,
		Type:      in.Type,
		RoomID:    in.RoomID,
	}
	if msg.UserID == "" {
		msg.UserID = defaultUserID
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = now.UnixMilli()
	}

	if err := s.Append(ctx, in.RoomID, msg); err != nil {
		return models.Message{}, err
	}

	s.logger.Info().
		Str("room", in.RoomID).
		Str("user", in.UserName).
		Str("message_id", msg.ID).
		Msg("message saved")

	return msg, nil
}

// List returns up to limit of the room's most recent messages, oldest first.
// Entries that cannot be decoded are skipped rather than failing the read.
func (s *RoomStore) List(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return []models.Message{}, nil
	}

	results, err := s.rdb.LRange(ctx, MessagesKey(roomID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, &StoreError{Op: "lrange", Err: err}
	}

	messages := make([]models.Message, 0, len(results))
	for _, raw := range results {
		msg, err := codec.DecodeMessage(raw)
		if err != nil {
			metrics.DecodeFailures.WithLabelValues("message").Inc()
			s.logger.Debug().Err(err).Str("room", roomID).Msg("skipping undecodable message")
			continue
		}
		messages = append(messages, msg)
	}

	// Stored newest first; callers get chronological order.
	slices.Reverse(messages)

	s.logger.Debug().
		Str("room", roomID).
		Int("count", len(messages)).
		Msg("messages retrieved")

	return messages, nil
}
