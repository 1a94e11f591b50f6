package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// PairSnapshotStore implements domain.PairSnapshotStore with one Redis hash
// per scanner: field = pair key ("venue:SYM0/SYM1"), value = pool address.
// The hash is an observability side channel; only the owning scanner writes
// it and it never reads it back.
type PairSnapshotStore struct {
	rdb *redis.Client
}

// NewPairSnapshotStore creates a PairSnapshotStore backed by the given
// Client.
func NewPairSnapshotStore(c *Client) *PairSnapshotStore {
	return &PairSnapshotStore{rdb: c.Underlying()}
}

func snapshotKey(scanner string) string {
	return "pairs:" + scanner
}

// SaveSnapshot replaces the scanner's snapshot hash with the given pair map.
// The pair cache is additive within a run, so a plain HSet (no DEL) keeps
// every previously discovered entry visible.
func (ps *PairSnapshotStore) SaveSnapshot(ctx context.Context, scanner string, pairs map[string]string) error {
	if len(pairs) == 0 {
		return nil
	}

	values := make(map[string]interface{}, len(pairs))
	for k, v := range pairs {
		values[k] = v
	}

	if err := ps.rdb.HSet(ctx, snapshotKey(scanner), values).Err(); err != nil {
		return fmt.Errorf("redis: save pair snapshot %s: %w", scanner, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PairSnapshotStore = (*PairSnapshotStore)(nil)
