package api

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/myansiry/chatrelay/internal/chat"
	"github.com/myansiry/chatrelay/internal/config"
	"github.com/myansiry/chatrelay/internal/handlers"
)

// NewHandler builds the room core on top of rdb and returns the handler both
// adapters route to. pathPrefix only affects the endpoints advertised by Root.
func NewHandler(cfg *config.Config, rdb redis.Cmdable, pinger handlers.Pinger, logger zerolog.Logger, pathPrefix string) *handlers.Handler {
	opts := chat.Options{
		HistoryLimit: cfg.HistoryLimit,
		TTL:          cfg.RoomTTL,
	}
	rooms := chat.NewRoomStore(rdb, logger, opts)
	presence := chat.NewPresenceRegistry(rdb, rooms, logger, opts)

	return handlers.NewHandler(rooms, presence, pinger, logger, handlers.Options{
		PathPrefix:      pathPrefix,
		DefaultPageSize: cfg.DefaultPageSize,
	})
}
