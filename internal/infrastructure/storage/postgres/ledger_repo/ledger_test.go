package ledger_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fructus/internal/core/id"
	"fructus/internal/core/types"
	"fructus/internal/infrastructure/storage/postgres"
)

type scanRow struct {
	vals []any
	err  error
}

func (r *scanRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *types.Quantity:
			*p = r.vals[i].(types.Quantity)
		case *types.MinorUnits:
			*p = r.vals[i].(types.MinorUnits)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		default:
			return fmt.Errorf("unexpected scan target %T", d)
		}
	}
	return nil
}

// upsertQuerier emulates the arithmetic Postgres performs for the
// relative position/balance upserts: every write adds its delta to the
// stored row, as a second writer's ON CONFLICT UPDATE would after the
// first commits.
type upsertQuerier struct {
	sqls      []string
	positions map[string]int64
	debts     map[string]int64
	pendings  map[string]int64
}

func newUpsertQuerier() *upsertQuerier {
	return &upsertQuerier{
		positions: make(map[string]int64),
		debts:     make(map[string]int64),
		pendings:  make(map[string]int64),
	}
}

func (q *upsertQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (q *upsertQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (q *upsertQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.sqls = append(q.sqls, sql)
	switch {
	case strings.Contains(sql, "inventory_positions"):
		key := fmt.Sprint(args[0], args[1])
		q.positions[key] += int64(args[2].(types.Quantity))
		return &scanRow{vals: []any{types.Quantity(q.positions[key])}}
	case strings.Contains(sql, "account_balances"):
		key := fmt.Sprint(args[0])
		q.debts[key] += int64(args[1].(types.MinorUnits))
		q.pendings[key] += int64(args[2].(types.MinorUnits))
		return &scanRow{vals: []any{
			types.MinorUnits(q.debts[key]),
			types.MinorUnits(q.pendings[key]),
			args[3].(time.Time),
		}}
	}
	return &scanRow{err: fmt.Errorf("unexpected sql: %s", sql)}
}

type fixedSource struct {
	q postgres.Querier
}

func (s fixedSource) GetQuerier(context.Context) postgres.Querier { return s.q }

func TestAddPosition_DeltaUpsert(t *testing.T) {
	q := newUpsertQuerier()
	repo := NewLedgerRepo(fixedSource{q})
	ctx := context.Background()

	account := id.New()
	product := id.New()

	got, err := repo.AddPosition(ctx, account, product, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 5, got)

	// A second first-writer's increment lands on top instead of
	// overwriting.
	got, err = repo.AddPosition(ctx, account, product, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 10, got)

	got, err = repo.AddPosition(ctx, account, product, -3)
	require.NoError(t, err)
	assert.EqualValues(t, 7, got)

	// The write must be a single relative statement; an absolute SET
	// from a stale read is exactly the lost-update shape.
	require.NotEmpty(t, q.sqls)
	for _, sql := range q.sqls {
		assert.Contains(t, sql, "ON CONFLICT (account_id, product_id)")
		assert.Contains(t, sql, "quantity = inventory_positions.quantity + EXCLUDED.quantity")
		assert.Contains(t, sql, "RETURNING quantity")
	}
}

func TestAddBalance_DeltaUpsert(t *testing.T) {
	q := newUpsertQuerier()
	repo := NewLedgerRepo(fixedSource{q})
	ctx := context.Background()

	account := id.New()

	bal, err := repo.AddBalance(ctx, account, 1000_00, 0)
	require.NoError(t, err)
	assert.Equal(t, account, bal.AccountID)
	assert.EqualValues(t, 1000_00, bal.Debt)
	assert.EqualValues(t, 0, bal.Pending)

	bal, err = repo.AddBalance(ctx, account, -500_00, 500_00)
	require.NoError(t, err)
	assert.EqualValues(t, 500_00, bal.Debt)
	assert.EqualValues(t, 500_00, bal.Pending)

	require.NotEmpty(t, q.sqls)
	for _, sql := range q.sqls {
		assert.Contains(t, sql, "ON CONFLICT (account_id)")
		assert.Contains(t, sql, "debt = account_balances.debt + EXCLUDED.debt")
		assert.Contains(t, sql, "pending = account_balances.pending + EXCLUDED.pending")
	}
}
