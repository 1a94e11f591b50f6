package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

const (
	// tailBatchSize bounds one stream read; drain loops until a short batch.
	tailBatchSize = 100
	// tailHistoryLimit caps the archive replay at startup.
	tailHistoryLimit = 20
)

// Tailer is a read-only consumer of one scanner's signal stream. It logs
// every published signal, optionally replaying the most recent archived
// signals first so an operator joining late still sees context. The scanner
// keeps the single-writer lock; the tailer never touches it.
type Tailer struct {
	stream   string
	interval time.Duration
	reader   domain.SignalReader
	archive  domain.SignalArchive // nil disables the history replay
	logger   *slog.Logger
}

// NewTailer creates a Tailer for the named stream, polling at the given
// interval. archive may be nil.
func NewTailer(stream string, interval time.Duration, reader domain.SignalReader, archive domain.SignalArchive, logger *slog.Logger) *Tailer {
	return &Tailer{
		stream:   stream,
		interval: interval,
		reader:   reader,
		archive:  archive,
		logger:   logger.With(slog.String("component", "tailer"), slog.String("stream", stream)),
	}
}

// Run replays archive history, then polls the stream until the context is
// cancelled.
func (t *Tailer) Run(ctx context.Context) error {
	t.replayHistory(ctx)

	lastID := "0"
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		t.drain(ctx, &lastID)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// replayHistory logs the most recent archived signals oldest-first. Archive
// failures downgrade the tail to live-only.
func (t *Tailer) replayHistory(ctx context.Context) {
	if t.archive == nil {
		return
	}
	recent, err := t.archive.ListRecent(ctx, tailHistoryLimit)
	if err != nil {
		t.logger.Warn("archive history unavailable", slog.String("error", err.Error()))
		return
	}
	// ListRecent returns newest-first; replay in detection order.
	for i := len(recent) - 1; i >= 0; i-- {
		t.logSignal(recent[i], "archive")
	}
}

// drain reads and logs every entry after *lastID, advancing it past each
// consumed message.
func (t *Tailer) drain(ctx context.Context, lastID *string) {
	for {
		msgs, err := t.reader.Read(ctx, t.stream, *lastID, tailBatchSize)
		if err != nil {
			t.logger.Warn("stream read failed", slog.String("error", err.Error()))
			return
		}
		if len(msgs) == 0 {
			return
		}
		for _, m := range msgs {
			*lastID = m.ID
			var sig domain.Signal
			if err := json.Unmarshal(m.Payload, &sig); err != nil {
				t.logger.Warn("malformed stream entry",
					slog.String("id", m.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			t.logSignal(sig, "stream")
		}
		if len(msgs) < tailBatchSize {
			return
		}
	}
}

func (t *Tailer) logSignal(sig domain.Signal, source string) {
	t.logger.Info("signal",
		slog.String("source", source),
		slog.String("id", sig.ID),
		slog.String("strategy", sig.Strategy),
		slog.String("kind", string(sig.Kind)),
		slog.String("route", strings.Join(sig.Route, " -> ")),
		slog.Int64("spread_bps", sig.SpreadBps),
		slog.Float64("net_profit_usd", sig.NetProfitUSD),
		slog.Time("detected_at", sig.DetectedAt()),
	)
}
