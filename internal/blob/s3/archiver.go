package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xnivek/joe-liquidator/internal/domain"
)

// Archiver copies attempt journal entries to cold storage as JSONL, one
// object per archive run. The journal stays the source of truth; the archive
// is an audit trail that outlives database retention.
type Archiver struct {
	attempts domain.AttemptStore
	writer   domain.BlobWriter
	logger   *slog.Logger
}

// NewArchiver creates an Archiver reading from attempts and writing through
// writer.
func NewArchiver(attempts domain.AttemptStore, writer domain.BlobWriter, logger *slog.Logger) *Archiver {
	return &Archiver{
		attempts: attempts,
		writer:   writer,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// archivedAttempt is the JSONL row format.
type archivedAttempt struct {
	ID           string    `json:"id"`
	Borrower     string    `json:"borrower"`
	RepayMarket  string    `json:"repay_market"`
	SeizeMarket  string    `json:"seize_market"`
	RepaySymbol  string    `json:"repay_symbol"`
	SeizeSymbol  string    `json:"seize_symbol"`
	State        string    `json:"state"`
	RepaidAmount string    `json:"repaid_amount,omitempty"`
	ProfitUSD    float64   `json:"profit_usd"`
	TxHash       string    `json:"tx_hash,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// ArchiveSince uploads every attempt completed at or after since. It returns
// the number of archived rows; zero rows uploads nothing.
func (a *Archiver) ArchiveSince(ctx context.Context, since time.Time) (int, error) {
	results, err := a.attempts.ListSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("archiver: list attempts: %w", err)
	}
	if len(results) == 0 {
		a.logger.Info("nothing to archive", slog.Time("since", since))
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, res := range results {
		row := archivedAttempt{
			ID:          res.ID,
			Borrower:    res.Borrower,
			RepayMarket: res.RepayMarket,
			SeizeMarket: res.SeizeMarket,
			RepaySymbol: res.RepaySymbol,
			SeizeSymbol: res.SeizeSymbol,
			State:       string(res.State),
			ProfitUSD:   res.ProfitUSD,
			TxHash:      res.TxHash,
			Reason:      res.Reason,
			StartedAt:   res.StartedAt,
			CompletedAt: res.CompletedAt,
		}
		if res.RepaidAmount != nil {
			row.RepaidAmount = res.RepaidAmount.String()
		}
		if err := enc.Encode(row); err != nil {
			return 0, fmt.Errorf("archiver: encode attempt %s: %w", res.ID, err)
		}
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("attempts/%s/attempts-%d.jsonl", now.Format("2006/01/02"), now.Unix())

	if err := a.writer.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("archiver: upload %s: %w", key, err)
	}

	a.logger.Info("attempts archived",
		slog.String("key", key),
		slog.Int("count", len(results)),
	)
	return len(results), nil
}

// RunLoop archives on a fixed interval until ctx is cancelled. Each run
// covers the window since the previous successful run.
func (a *Archiver) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	since := time.Now().UTC().Add(-interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runStart := time.Now().UTC()
			if _, err := a.ArchiveSince(ctx, since); err != nil {
				a.logger.Warn("archive run failed", slog.String("error", err.Error()))
				continue
			}
			since = runStart
		}
	}
}
