package domain

import "errors"

// Sentinel errors shared across layers. Callers match with errors.Is.
var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPairNotFound indicates the venue factory has no pool for the
	// requested token pair.
	ErrPairNotFound = errors.New("pair not found")

	// ErrPriceUnavailable indicates an edge could not be priced this tick
	// (zero reserves, missing metadata, or a failed reserve read). It is a
	// per-edge condition, never fatal for a scan pass.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrOracleUnavailable indicates the native/USD price feed could not be
	// read; the economics evaluator substitutes its fallback constant.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrLockHeld indicates another process already holds the scanner lock.
	ErrLockHeld = errors.New("lock already held")
)
