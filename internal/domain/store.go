package domain

import (
	"context"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader is the read-only view of the blockchain used by discovery,
// pricing, and economics. Every call carries a bounded timeout internally so
// a stalled node degrades a single tick instead of hanging the scan loop.
type ChainReader interface {
	// PairFor resolves the pool address for two tokens on a venue factory.
	// Returns ErrPairNotFound when the factory reports the zero address.
	PairFor(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error)

	// Reserves returns the current pool reserves in token0/token1 order.
	Reserves(ctx context.Context, pool common.Address) (r0, r1 *big.Int, err error)

	// Token0 returns the pool's canonical first token.
	Token0(ctx context.Context, pool common.Address) (common.Address, error)

	// TokenDecimals reads ERC20 decimals for a token.
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)

	// TokenSymbol reads the ERC20 symbol for a token.
	TokenSymbol(ctx context.Context, token common.Address) (string, error)

	// GasPrice returns the current suggested gas price in wei.
	GasPrice(ctx context.Context) (*big.Int, error)

	// NativeUSD returns the native-token/USD price from the configured
	// oracle feed. Returns ErrOracleUnavailable (possibly wrapped) when the
	// feed cannot be read.
	NativeUSD(ctx context.Context) (float64, error)
}

// SignalSink appends serialized signals to a named, length-bounded,
// append-only stream. Delivery is best effort, at most once per detection.
type SignalSink interface {
	Append(ctx context.Context, stream string, payload []byte) error
}

// SignalReader reads entries back from a signal stream. Used by downstream
// consumers and by tests; the scanner itself only writes.
type SignalReader interface {
	Read(ctx context.Context, stream, lastID string, count int) ([]StreamMessage, error)
}

// ControlPlane exposes the externally settable flags every scanner polls at
// the top of each loop iteration. Flags are multiple-reader /
// single-external-writer; scanners never set them.
type ControlPlane interface {
	// Killed reports whether the global kill switch is active.
	Killed(ctx context.Context) bool
	// Paused reports whether the named scanner is individually paused.
	Paused(ctx context.Context, scanner string) bool
}

// PairSnapshotStore persists a read-only observability snapshot of the pair
// registry. The snapshot is a side channel: it is written by exactly one
// scanner and never read back by it.
type PairSnapshotStore interface {
	SaveSnapshot(ctx context.Context, scanner string, pairs map[string]string) error
}

// SignalArchive mirrors published signals into durable storage for reporting
// systems that read SQL rather than the stream. Best effort.
type SignalArchive interface {
	Insert(ctx context.Context, sig Signal) error
	ListBefore(ctx context.Context, before time.Time, limit int) ([]Signal, error)
	ListRecent(ctx context.Context, limit int) ([]Signal, error)
}

// BlobWriter uploads an object to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, key string, body io.Reader) error
}

// LockManager provides a distributed mutex used to enforce the
// single-writer-per-stream discipline when multiple supervisors could race.
type LockManager interface {
	// Acquire obtains the lock for key with the given TTL and returns a
	// release function. Returns ErrLockHeld when another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
	// Refresh extends the TTL of a lock this process holds.
	Refresh(ctx context.Context, key string, ttl time.Duration) error
}
