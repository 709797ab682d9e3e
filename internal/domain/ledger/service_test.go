package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/types"
	"fructus/pkg/numerator"
)

// passThroughTx runs fn directly; the in-memory repo needs no real
// transaction scope.
type passThroughTx struct{}

func (passThroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type posKey struct {
	account id.ID
	product id.ID
}

// memRepo is an in-memory ledger.Repository.
type memRepo struct {
	mu        sync.Mutex
	positions map[posKey]types.Quantity
	balances  map[id.ID]Balance
	sales     []Sale
}

func newMemRepo() *memRepo {
	return &memRepo{
		positions: make(map[posKey]types.Quantity),
		balances:  make(map[id.ID]Balance),
	}
}

func (m *memRepo) GetPositionForUpdate(_ context.Context, accountID, productID id.ID) (Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Position{AccountID: accountID, ProductID: productID, Quantity: m.positions[posKey{accountID, productID}]}, nil
}

func (m *memRepo) GetPosition(ctx context.Context, accountID, productID id.ID) (Position, error) {
	return m.GetPositionForUpdate(ctx, accountID, productID)
}

// SetPosition seeds state directly; services mutate through AddPosition.
func (m *memRepo) SetPosition(_ context.Context, accountID, productID id.ID, quantity types.Quantity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[posKey{accountID, productID}] = quantity
	return nil
}

func (m *memRepo) AddPosition(_ context.Context, accountID, productID id.ID, delta types.Quantity) (types.Quantity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := posKey{accountID, productID}
	m.positions[k] += delta
	return m.positions[k], nil
}

func (m *memRepo) ListPositions(_ context.Context, accountID id.ID) ([]Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Position
	for k, q := range m.positions {
		if k.account == accountID && q != 0 {
			out = append(out, Position{AccountID: k.account, ProductID: k.product, Quantity: q})
		}
	}
	return out, nil
}

func (m *memRepo) GetBalanceForUpdate(_ context.Context, accountID id.ID) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[accountID]; ok {
		return b, nil
	}
	return Balance{AccountID: accountID}, nil
}

func (m *memRepo) GetBalance(ctx context.Context, accountID id.ID) (Balance, error) {
	return m.GetBalanceForUpdate(ctx, accountID)
}

// SetBalance seeds state directly; services mutate through AddBalance.
func (m *memRepo) SetBalance(_ context.Context, b Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[b.AccountID] = b
	return nil
}

func (m *memRepo) AddBalance(_ context.Context, accountID id.ID, debtDelta, pendingDelta types.MinorUnits) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[accountID]
	if !ok {
		b = Balance{AccountID: accountID}
	}
	b.Debt += debtDelta
	b.Pending += pendingDelta
	b.UpdatedAt = time.Now().UTC()
	m.balances[accountID] = b
	return b, nil
}

func (m *memRepo) CreateSale(_ context.Context, s *Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales = append(m.sales, *s)
	return nil
}

func (m *memRepo) ListSales(_ context.Context, accountID id.ID, _ SaleFilter) ([]Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Sale
	for _, s := range m.sales {
		if s.AccountID == accountID {
			out = append(out, s)
		}
	}
	return out, nil
}

// seqRow and seqQuerier emulate the sys_sequences upsert.
type seqRow struct{ val int64 }

func (r *seqRow) Scan(dest ...any) error {
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = r.val
		}
	}
	return nil
}

type seqQuerier struct {
	mu   sync.Mutex
	vals map[string]int64
}

func (q *seqQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.vals == nil {
		q.vals = make(map[string]int64)
	}
	key, _ := args[0].(string)
	q.vals[key]++
	return &seqRow{val: q.vals[key]}
}

func newTestService(repo *memRepo) *Service {
	return NewService(repo, passThroughTx{}, numerator.New(&seqQuerier{}), nil, nil)
}

func TestTransfer_MovesStockAndAddsDebt(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	central := id.New()
	seller := id.New()
	mango := id.New()
	require.NoError(t, repo.SetPosition(ctx, central, mango, 10))

	res, err := svc.Transfer(ctx, TransferParams{
		From:      &central,
		To:        seller,
		ProductID: mango,
		Quantity:  4,
		UnitPrice: 250_00,
	})
	require.NoError(t, err)

	require.NotNil(t, res.FromQuantity)
	assert.EqualValues(t, 6, *res.FromQuantity)
	assert.EqualValues(t, 4, res.ToQuantity)
	assert.EqualValues(t, 1000_00, res.DebtDelta)

	bal, err := svc.GetBalance(ctx, seller)
	require.NoError(t, err)
	assert.EqualValues(t, 1000_00, bal.Debt)
	assert.EqualValues(t, 0, bal.Pending)
}

func TestTransfer_ConservesTotalStock(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	central := id.New()
	seller := id.New()
	prod := id.New()
	require.NoError(t, repo.SetPosition(ctx, central, prod, 20))

	for i := 0; i < 3; i++ {
		_, err := svc.Transfer(ctx, TransferParams{
			From: &central, To: seller, ProductID: prod, Quantity: 5, UnitPrice: 100,
		})
		require.NoError(t, err)
	}

	src, _ := svc.GetPosition(ctx, central, prod)
	dst, _ := svc.GetPosition(ctx, seller, prod)
	assert.EqualValues(t, 20, src.Quantity+dst.Quantity)
}

func TestTransfer_InsufficientStock(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	central := id.New()
	seller := id.New()
	prod := id.New()
	require.NoError(t, repo.SetPosition(ctx, central, prod, 3))

	_, err := svc.Transfer(ctx, TransferParams{
		From: &central, To: seller, ProductID: prod, Quantity: 5, UnitPrice: 100,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInsufficientStock, apperror.Code(err))

	// Nothing moved.
	src, _ := svc.GetPosition(ctx, central, prod)
	dst, _ := svc.GetPosition(ctx, seller, prod)
	assert.EqualValues(t, 3, src.Quantity)
	assert.EqualValues(t, 0, dst.Quantity)
}

func TestTransfer_ExternalSourceGrowsCentralDebt(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	central := id.New()
	prod := id.New()

	res, err := svc.Transfer(ctx, TransferParams{
		To: central, ProductID: prod, Quantity: 7, UnitPrice: 200_00,
	})
	require.NoError(t, err)
	assert.Nil(t, res.FromQuantity)
	assert.EqualValues(t, 7, res.ToQuantity)

	bal, _ := svc.GetBalance(ctx, central)
	assert.EqualValues(t, 1400_00, bal.Debt)
}

func TestTransfer_ConcurrentFirstWritesBothLand(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	// Two transfers race to create the same destination rows. Both
	// increments must survive; an absolute write computed from a read
	// of the not-yet-existing row would drop one of them.
	seller := id.New()
	prod := id.New()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, TransferParams{
				To: seller, ProductID: prod, Quantity: 7, UnitPrice: 100_00,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	pos, _ := svc.GetPosition(ctx, seller, prod)
	assert.EqualValues(t, 14, pos.Quantity)

	bal, _ := svc.GetBalance(ctx, seller)
	assert.EqualValues(t, 1400_00, bal.Debt)
}

func TestTransfer_RejectsBadInput(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()
	acc := id.New()

	_, err := svc.Transfer(ctx, TransferParams{To: acc, ProductID: id.New(), Quantity: 0, UnitPrice: 1})
	assert.Equal(t, apperror.CodeValidation, apperror.Code(err))

	_, err = svc.Transfer(ctx, TransferParams{From: &acc, To: acc, ProductID: id.New(), Quantity: 1, UnitPrice: 1})
	assert.Equal(t, apperror.CodeValidation, apperror.Code(err))
}

func TestRecordSale_MovesValueFromDebtToPending(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	seller := id.New()
	mango := id.New()
	require.NoError(t, repo.SetPosition(ctx, seller, mango, 5))
	require.NoError(t, repo.SetBalance(ctx, Balance{AccountID: seller, Debt: 1250_00, UpdatedAt: time.Now()}))

	sale, err := svc.RecordSale(ctx, SaleParams{
		AccountID:   seller,
		AccountCode: "AB",
		ProductID:   mango,
		Quantity:    2,
		UnitPrice:   250_00,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 500_00, sale.Amount)
	assert.NotEmpty(t, sale.Number)

	pos, _ := svc.GetPosition(ctx, seller, mango)
	assert.EqualValues(t, 3, pos.Quantity)

	bal, _ := svc.GetBalance(ctx, seller)
	assert.EqualValues(t, 500_00, bal.Pending)
	assert.EqualValues(t, 750_00, bal.Debt)

	sales, err := svc.ListSales(ctx, seller, SaleFilter{})
	require.NoError(t, err)
	require.Len(t, sales, 1)
}

func TestRecordSale_InsufficientStock(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	seller := id.New()
	prod := id.New()
	require.NoError(t, repo.SetPosition(ctx, seller, prod, 1))

	_, err := svc.RecordSale(ctx, SaleParams{
		AccountID: seller, AccountCode: "AB", ProductID: prod, Quantity: 2, UnitPrice: 100,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInsufficientStock, apperror.Code(err))

	bal, _ := svc.GetBalance(ctx, seller)
	assert.EqualValues(t, 0, bal.Pending)
}

func TestApplyPayout_DeductsPendingAndDebt(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	seller := id.New()
	require.NoError(t, repo.SetBalance(ctx, Balance{AccountID: seller, Debt: 300_00, Pending: 800_00}))

	bal, err := svc.ApplyPayout(ctx, seller, 500_00)
	require.NoError(t, err)
	assert.EqualValues(t, 300_00, bal.Pending)
	assert.EqualValues(t, -200_00, bal.Debt)
}

func TestApplyPayout_RejectsOverPending(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	seller := id.New()
	require.NoError(t, repo.SetBalance(ctx, Balance{AccountID: seller, Pending: 800_00}))

	_, err := svc.ApplyPayout(ctx, seller, 1000_00)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeAmountExceedsPending, apperror.Code(err))

	bal, _ := svc.GetBalance(ctx, seller)
	assert.EqualValues(t, 800_00, bal.Pending)
}
