package redis

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// flagActive is the value an operator sets to activate a control flag.
// Absence of the key means inactive.
const flagActive = "1"

// ControlPlane implements domain.ControlPlane over plain Redis string keys.
// Flags are written by operator tooling only; this type never sets them.
// Reads fail open: an unreachable Redis is logged and treated as "flag not
// active" so a cache outage cannot halt the fleet by itself.
type ControlPlane struct {
	rdb         *redis.Client
	killKey     string
	pausePrefix string
	logger      *slog.Logger
}

// NewControlPlane creates a ControlPlane reading the given key names.
func NewControlPlane(c *Client, killKey, pausePrefix string, logger *slog.Logger) *ControlPlane {
	return &ControlPlane{
		rdb:         c.Underlying(),
		killKey:     killKey,
		pausePrefix: pausePrefix,
		logger:      logger.With(slog.String("component", "control_plane")),
	}
}

// Killed reports whether the global kill switch is set.
func (cp *ControlPlane) Killed(ctx context.Context) bool {
	return cp.flag(ctx, cp.killKey)
}

// Paused reports whether the named scanner is individually paused.
func (cp *ControlPlane) Paused(ctx context.Context, scanner string) bool {
	return cp.flag(ctx, cp.pausePrefix+scanner)
}

func (cp *ControlPlane) flag(ctx context.Context, key string) bool {
	val, err := cp.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			cp.logger.Warn("control flag read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	return val == flagActive
}

// Compile-time interface check.
var _ domain.ControlPlane = (*ControlPlane)(nil)
