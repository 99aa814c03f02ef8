package chat

import (
	"cmp"
	"context"
	"slices"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/myansiry/chatrelay/internal/codec"
	"github.com/myansiry/chatrelay/internal/metrics"
	"github.com/myansiry/chatrelay/internal/models"
)

const (
	systemUserID   = "system"
	systemUserName = "Sistema"
)

// JoinAnnouncement is the text of the system message appended on join.
func JoinAnnouncement(userName string) string {
	return userName + " entrou na sala"
}

// PresenceRegistry owns the per-room users hash.
type PresenceRegistry struct {
	rdb    redis.Cmdable
	rooms  *RoomStore
	logger zerolog.Logger
	opts   Options
}

// NewPresenceRegistry creates a registry that announces joins through rooms.
func NewPresenceRegistry(rdb redis.Cmdable, rooms *RoomStore, logger zerolog.Logger, opts Options) *PresenceRegistry {
	return &PresenceRegistry{
		rdb:    rdb,
		rooms:  rooms,
		logger: logger.With().Str("component", "presence").Logger(),
		opts:   opts.withDefaults(),
	}
}

// Join records userName as present in roomID and appends a system message
// announcing it. userID is optional; without it the user is keyed by name and
// overwrites any earlier anonymous joiner with the same name.
func (p *PresenceRegistry) Join(ctx context.Context, roomID, userID, userName string) (models.User, error) {
	if roomID == "" || userName == "" {
		return models.User{}, missingFields("roomId", "userName")
	}

	now := p.opts.Clock()
	user := models.User{
		ID:       userID,
		Name:     userName,
		JoinedAt: now.UnixMilli(),
		IsOnline: true,
	}
	if user.ID == "" {
		user.ID = placeholderUserID(now)
	}

	data, err := codec.EncodeUser(user)
	if err != nil {
		return models.User{}, &StoreError{Op: "encode user", Err: err}
	}

	key := UsersKey(roomID)
	if err := p.rdb.HSet(ctx, key, IdentityKey(userID, userName), data).Err(); err != nil {
		return models.User{}, &StoreError{Op: "hset", Err: err}
	}
	if err := p.rdb.Expire(ctx, key, p.opts.TTL).Err(); err != nil {
		metrics.MaintenanceFailures.WithLabelValues("expire_users").Inc()
		p.logger.Warn().Err(err).Str("room", roomID).Msg("failed to refresh presence expiry")
	}

	announcement := models.Message{
		ID:        systemMessageID(now),
		UserID:    systemUserID,
		UserName:  systemUserName,
		Text:      JoinAnnouncement(userName),
		Timestamp: now.UnixMilli(),
		Type:      models.MessageTypeSystem,
		RoomID:    roomID,
	}
	if err := p.rooms.Append(ctx, roomID, announcement); err != nil {
		return models.User{}, err
	}

	metrics.Joins.Inc()
	p.logger.Info().
		Str("room", roomID).
		Str("user", userName).
		Str("user_id", user.ID).
		Msg("user joined room")

	return user, nil
}

// Users returns the room's presence records ordered by join time. Records
// that cannot be decoded are skipped.
func (p *PresenceRegistry) Users(ctx context.Context, roomID string) ([]models.User, error) {
	results, err := p.rdb.HGetAll(ctx, UsersKey(roomID)).Result()
	if err != nil {
		return nil, &StoreError{Op: "hgetall", Err: err}
	}

	users := make([]models.User, 0, len(results))
	for field, raw := range results {
		user, err := codec.DecodeUser(raw)
		if err != nil {
			metrics.DecodeFailures.WithLabelValues("user").Inc()
			p.logger.Debug().Err(err).Str("room", roomID).Str("field", field).Msg("skipping undecodable user")
			continue
		}
		users = append(users, user)
	}

	slices.SortFunc(users, func(a, b models.User) int {
		if c := cmp.Compare(a.JoinedAt, b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return users, nil
}
