// Package numerator issues human-readable document numbers.
//
// Numbers are per account per UTC day: SO-AB-0109-001, SO-AB-0109-002, ...
// The sequence value comes from an UPSERT ... RETURNING on sys_sequences,
// so numbers are strictly increasing and never reused even under
// concurrent callers. When the querier is transaction-bound the
// allocation commits or rolls back with the owning operation.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Document number prefixes.
const (
	PrefixSupplyOrder    = "SO"
	PrefixRestockRequest = "RS"
	PrefixPaymentRequest = "PR"
	PrefixSale           = "SL"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierProvider resolves the querier for the current context.
// The postgres TxManager provides one that joins the active transaction.
type QuerierProvider func(ctx context.Context) Querier

// Config holds numbering configuration.
type Config struct {
	// PadWidth is the minimum width of the per-day counter (default 3).
	PadWidth int
}

// Service provides document numbering.
type Service struct {
	provider QuerierProvider
	cfg      Config
}

// New creates a numerator backed by a fixed querier.
// Use for tests and tooling.
func New(querier Querier) *Service {
	return NewWithProvider(func(context.Context) Querier { return querier })
}

// NewWithProvider creates a numerator that resolves its querier per call.
func NewWithProvider(provider QuerierProvider) *Service {
	return &Service{provider: provider, cfg: Config{PadWidth: 3}}
}

// Next allocates the next number for the given prefix and account code.
// The day component is derived from at in UTC.
func (s *Service) Next(ctx context.Context, prefix, accountCode string, at time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	at = at.UTC()
	key := buildKey(prefix, accountCode, at)

	var num int64
	err := s.provider(ctx).QueryRow(ctx, `
        INSERT INTO sys_sequences (key, current_val)
        VALUES ($1, 1)
        ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
        RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next number for %s: %w", key, err)
	}

	return s.format(prefix, accountCode, at, num), nil
}

// buildKey creates the sequence key: one counter per prefix+account+day.
func buildKey(prefix, accountCode string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", prefix, accountCode, at.Format("20060102"))
}

// format renders PREFIX-CODE-ddmm-NNN.
func (s *Service) format(prefix, accountCode string, at time.Time, num int64) string {
	padWidth := s.cfg.PadWidth
	if padWidth == 0 {
		padWidth = 3
	}
	return fmt.Sprintf("%s-%s-%s-%0*d", prefix, accountCode, at.Format("0201"), padWidth, num)
}

// ParseSeq extracts the numeric suffix from a formatted number.
// Returns -1 if parsing fails.
func ParseSeq(formatted string) int64 {
	idx := strings.LastIndexByte(formatted, '-')
	if idx < 0 || idx == len(formatted)-1 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[idx+1:], 10, 64)
	if err != nil {
		return -1
	}
	return num
}
