package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xnivek/joe-liquidator/internal/domain"
)

type fakeAttemptStore struct {
	results []domain.ExecutionResult
	err     error
}

func (s *fakeAttemptStore) Insert(context.Context, domain.ExecutionResult) error { return nil }

func (s *fakeAttemptStore) ListSince(context.Context, time.Time) ([]domain.ExecutionResult, error) {
	return s.results, s.err
}

type fakeBlobWriter struct {
	path        string
	contentType string
	data        []byte
	puts        int
}

func (w *fakeBlobWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	w.puts++
	w.path = path
	w.contentType = contentType
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.data = b
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiveSince_WritesJSONL(t *testing.T) {
	store := &fakeAttemptStore{results: []domain.ExecutionResult{
		{
			ID:           "a1",
			Borrower:     "0xb1",
			RepayMarket:  "0xjusdt",
			SeizeMarket:  "0xjlink",
			State:        domain.StateSucceeded,
			RepaidAmount: big.NewInt(1_000_000_000),
			ProfitUSD:    5,
			TxHash:       "0xtx1",
		},
		{
			ID:       "a2",
			Borrower: "0xb2",
			State:    domain.StateSkipped,
			Reason:   "no route",
		},
	}}
	writer := &fakeBlobWriter{}
	a := NewArchiver(store, writer, testLogger())

	n, err := a.ArchiveSince(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, 1, writer.puts)
	assert.True(t, strings.HasPrefix(writer.path, "attempts/"))
	assert.True(t, strings.HasSuffix(writer.path, ".jsonl"))
	assert.Equal(t, "application/x-ndjson", writer.contentType)

	// One JSON object per line, fields intact.
	scanner := bufio.NewScanner(bytes.NewReader(writer.data))
	var rows []map[string]any
	for scanner.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		rows = append(rows, row)
	}
	require.Len(t, rows, 2)
	assert.Equal(t, "a1", rows[0]["id"])
	assert.Equal(t, "succeeded", rows[0]["state"])
	assert.Equal(t, "1000000000", rows[0]["repaid_amount"])
	assert.Equal(t, "skipped", rows[1]["state"])
	assert.Equal(t, "no route", rows[1]["reason"])
	_, hasRepaid := rows[1]["repaid_amount"]
	assert.False(t, hasRepaid, "zero-value repaid amount should be omitted")
}

func TestArchiveSince_NothingToArchive(t *testing.T) {
	writer := &fakeBlobWriter{}
	a := NewArchiver(&fakeAttemptStore{}, writer, testLogger())

	n, err := a.ArchiveSince(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, writer.puts)
}

func TestArchiveSince_StoreError(t *testing.T) {
	a := NewArchiver(&fakeAttemptStore{err: errors.New("db down")}, &fakeBlobWriter{}, testLogger())

	_, err := a.ArchiveSince(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
