package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// SignalArchiver copies aged signal rows out of Postgres into timestamped
// JSONL objects. Rows are only mirrored, never removed; history retention
// stays a database concern.
type SignalArchiver struct {
	archive domain.SignalArchive
	blob    domain.BlobWriter
	batch   int
	logger  *slog.Logger
}

// NewSignalArchiver wires the archiver. batch caps rows per uploaded object;
// values <= 0 fall back to 500.
func NewSignalArchiver(archive domain.SignalArchive, blob domain.BlobWriter, batch int, logger *slog.Logger) *SignalArchiver {
	if batch <= 0 {
		batch = 500
	}
	return &SignalArchiver{
		archive: archive,
		blob:    blob,
		batch:   batch,
		logger:  logger.With(slog.String("component", "signal_archiver")),
	}
}

// ArchiveBefore uploads all signals detected before cutoff as a single JSONL
// object and returns the number of rows written. Zero rows means no object
// is created.
func (a *SignalArchiver) ArchiveBefore(ctx context.Context, cutoff time.Time) (int, error) {
	signals, err := a.archive.ListBefore(ctx, cutoff, a.batch)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list signals: %w", err)
	}
	if len(signals) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, sig := range signals {
		if err := enc.Encode(sig); err != nil {
			return 0, fmt.Errorf("s3blob: encode signal %s: %w", sig.ID, err)
		}
	}

	key := fmt.Sprintf("archive/signals/%s.jsonl", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	if err := a.blob.Put(ctx, key, &buf); err != nil {
		return 0, err
	}

	a.logger.Info("archived signals",
		slog.String("key", key),
		slog.Int("count", len(signals)),
		slog.Time("cutoff", cutoff))
	return len(signals), nil
}

// RunLoop archives on every tick until ctx is cancelled. Failures are logged
// and retried on the next tick.
func (a *SignalArchiver) RunLoop(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("archiver started",
		slog.Duration("interval", interval),
		slog.Duration("max_age", maxAge))

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-maxAge)
			if _, err := a.ArchiveBefore(ctx, cutoff); err != nil {
				a.logger.Warn("archive pass failed", slog.Any("error", err))
			}
		}
	}
}
