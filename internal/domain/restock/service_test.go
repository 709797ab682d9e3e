package restock

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/core/types"
	"fructus/internal/domain/account"
	"fructus/internal/domain/ledger"
	"fructus/internal/domain/product"
	"fructus/pkg/numerator"
)

type passThroughTx struct{}

func (passThroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

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

type fakeAccounts struct {
	byID map[id.ID]*account.Account
}

func (f *fakeAccounts) add(a *account.Account) { f.byID[a.ID] = a }

func (f *fakeAccounts) Create(context.Context, *account.Account) error { return nil }
func (f *fakeAccounts) Update(context.Context, *account.Account) error { return nil }

func (f *fakeAccounts) GetByID(_ context.Context, accountID id.ID) (*account.Account, error) {
	if a, ok := f.byID[accountID]; ok {
		return a, nil
	}
	return nil, apperror.NewNotFound("account", accountID)
}

func (f *fakeAccounts) GetByCode(_ context.Context, code string) (*account.Account, error) {
	for _, a := range f.byID {
		if a.Code == code {
			return a, nil
		}
	}
	return nil, apperror.NewNotFound("account", code)
}

func (f *fakeAccounts) GetCentral(_ context.Context) (*account.Account, error) {
	for _, a := range f.byID {
		if a.IsCentral {
			return a, nil
		}
	}
	return nil, apperror.NewNotFound("account", "central")
}

func (f *fakeAccounts) List(context.Context, bool) ([]account.Account, error) { return nil, nil }

type fakeProducts struct {
	byID map[id.ID]*product.Product
}

func (f *fakeProducts) add(p *product.Product) { f.byID[p.ID] = p }

func (f *fakeProducts) Create(context.Context, *product.Product) error { return nil }
func (f *fakeProducts) Update(context.Context, *product.Product) error { return nil }

func (f *fakeProducts) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	if p, ok := f.byID[productID]; ok {
		return p, nil
	}
	return nil, apperror.NewNotFound("product", productID)
}

func (f *fakeProducts) List(context.Context, bool) ([]product.Product, error) { return nil, nil }

type posKey struct {
	account id.ID
	product id.ID
}

type memLedgerRepo struct {
	positions map[posKey]types.Quantity
	balances  map[id.ID]ledger.Balance
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{
		positions: make(map[posKey]types.Quantity),
		balances:  make(map[id.ID]ledger.Balance),
	}
}

func (m *memLedgerRepo) GetPositionForUpdate(_ context.Context, accountID, productID id.ID) (ledger.Position, error) {
	return ledger.Position{AccountID: accountID, ProductID: productID, Quantity: m.positions[posKey{accountID, productID}]}, nil
}

func (m *memLedgerRepo) GetPosition(ctx context.Context, accountID, productID id.ID) (ledger.Position, error) {
	return m.GetPositionForUpdate(ctx, accountID, productID)
}

func (m *memLedgerRepo) SetPosition(_ context.Context, accountID, productID id.ID, quantity types.Quantity) error {
	m.positions[posKey{accountID, productID}] = quantity
	return nil
}

func (m *memLedgerRepo) AddPosition(_ context.Context, accountID, productID id.ID, delta types.Quantity) (types.Quantity, error) {
	k := posKey{accountID, productID}
	m.positions[k] += delta
	return m.positions[k], nil
}

func (m *memLedgerRepo) ListPositions(context.Context, id.ID) ([]ledger.Position, error) {
	return nil, nil
}

func (m *memLedgerRepo) GetBalanceForUpdate(_ context.Context, accountID id.ID) (ledger.Balance, error) {
	if b, ok := m.balances[accountID]; ok {
		return b, nil
	}
	return ledger.Balance{AccountID: accountID}, nil
}

func (m *memLedgerRepo) GetBalance(ctx context.Context, accountID id.ID) (ledger.Balance, error) {
	return m.GetBalanceForUpdate(ctx, accountID)
}

func (m *memLedgerRepo) SetBalance(_ context.Context, b ledger.Balance) error {
	m.balances[b.AccountID] = b
	return nil
}

func (m *memLedgerRepo) AddBalance(_ context.Context, accountID id.ID, debtDelta, pendingDelta types.MinorUnits) (ledger.Balance, error) {
	b, ok := m.balances[accountID]
	if !ok {
		b = ledger.Balance{AccountID: accountID}
	}
	b.Debt += debtDelta
	b.Pending += pendingDelta
	m.balances[accountID] = b
	return b, nil
}

func (m *memLedgerRepo) CreateSale(context.Context, *ledger.Sale) error { return nil }

func (m *memLedgerRepo) ListSales(context.Context, id.ID, ledger.SaleFilter) ([]ledger.Sale, error) {
	return nil, nil
}

// memRequestRepo is an in-memory restock.Repository.
type memRequestRepo struct {
	requests map[id.ID]*Request
	history  []HistoryEntry
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{requests: make(map[id.ID]*Request)}
}

func (m *memRequestRepo) clone(r *Request) *Request {
	cp := *r
	cp.Lines = make([]Line, len(r.Lines))
	copy(cp.Lines, r.Lines)
	return &cp
}

func (m *memRequestRepo) Create(_ context.Context, r *Request) error {
	m.requests[r.ID] = m.clone(r)
	return nil
}

func (m *memRequestRepo) GetByID(_ context.Context, requestID id.ID) (*Request, error) {
	r, ok := m.requests[requestID]
	if !ok {
		return nil, apperror.NewNotFound("restock request", requestID)
	}
	return m.clone(r), nil
}

func (m *memRequestRepo) GetForUpdate(ctx context.Context, requestID id.ID) (*Request, error) {
	return m.GetByID(ctx, requestID)
}

func (m *memRequestRepo) UpdateStatus(_ context.Context, r *Request) error {
	stored, ok := m.requests[r.ID]
	if !ok {
		return apperror.NewNotFound("restock request", r.ID)
	}
	stored.Status = r.Status
	stored.CompletedAt = r.CompletedAt
	return nil
}

func (m *memRequestRepo) List(_ context.Context, f Filter) ([]Request, error) {
	var out []Request
	for _, r := range m.requests {
		if f.AccountID != nil && r.AccountID != *f.AccountID {
			continue
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		out = append(out, *m.clone(r))
	}
	return out, nil
}

func (m *memRequestRepo) ListPendingLinesForUpdate(_ context.Context, productID id.ID) ([]PendingLine, error) {
	var reqs []*Request
	for _, r := range m.requests {
		if r.Status == StatusPending {
			reqs = append(reqs, r)
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.Before(reqs[j].CreatedAt) })

	var out []PendingLine
	for _, r := range reqs {
		for _, l := range r.Lines {
			if l.ProductID != productID || l.QuantityReceived >= l.QuantityRequested {
				continue
			}
			out = append(out, PendingLine{
				LineID:            l.ID,
				RequestID:         r.ID,
				RequestNumber:     r.Number,
				AccountID:         r.AccountID,
				QuantityRequested: l.QuantityRequested,
				QuantityReceived:  l.QuantityReceived,
			})
		}
	}
	return out, nil
}

func (m *memRequestRepo) AddLineReceived(_ context.Context, lineID id.ID, take types.Quantity) error {
	for _, r := range m.requests {
		for i := range r.Lines {
			if r.Lines[i].ID == lineID {
				r.Lines[i].QuantityReceived += take
				return nil
			}
		}
	}
	return apperror.NewNotFound("request line", lineID)
}

func (m *memRequestRepo) CompleteIfFilled(_ context.Context, requestID id.ID, at time.Time) (bool, error) {
	r, ok := m.requests[requestID]
	if !ok {
		return false, apperror.NewNotFound("restock request", requestID)
	}
	if r.Status != StatusPending {
		return false, nil
	}
	for _, l := range r.Lines {
		if l.QuantityReceived < l.QuantityRequested {
			return false, nil
		}
	}
	r.Status = StatusCompleted
	r.CompletedAt = &at
	return true, nil
}

func (m *memRequestRepo) AppendHistory(_ context.Context, e *HistoryEntry) error {
	m.history = append(m.history, *e)
	return nil
}

func (m *memRequestRepo) ListHistory(_ context.Context, productID *id.ID, _ int) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, e := range m.history {
		if productID != nil && e.ProductID != *productID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fixture struct {
	svc      *Service
	ledger   *ledger.Service
	requests *memRequestRepo
	stock    *memLedgerRepo
	products *fakeProducts
	central  *account.Account
	seller   *account.Account
}

func newFixture() *fixture {
	accounts := &fakeAccounts{byID: make(map[id.ID]*account.Account)}
	products := &fakeProducts{byID: make(map[id.ID]*product.Product)}

	central := account.New("CENTRAL", "Central warehouse")
	central.IsCentral = true
	seller := account.New("AB", "Seller AB")
	accounts.add(central)
	accounts.add(seller)

	stock := newMemLedgerRepo()
	num := numerator.New(&seqQuerier{})
	ledgerSvc := ledger.NewService(stock, passThroughTx{}, num, nil, nil)

	requests := newMemRequestRepo()
	svc := NewService(requests, accounts, products, ledgerSvc, passThroughTx{}, num, nil, nil)

	return &fixture{
		svc: svc, ledger: ledgerSvc, requests: requests, stock: stock,
		products: products, central: central, seller: seller,
	}
}

func (f *fixture) newProduct(name string, price types.MinorUnits) *product.Product {
	p := product.New(name, price)
	f.products.add(p)
	return p
}

func TestCreate_NumbersAndPersists(t *testing.T) {
	f := newFixture()
	mango := f.newProduct("Mango", 250_00)

	req, err := f.svc.Create(context.Background(), f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 5}})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.NotEmpty(t, req.Number)
	require.Len(t, req.Lines, 1)
	assert.EqualValues(t, 0, req.Lines[0].QuantityReceived)
}

func TestCreate_EmptyCart(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.seller.ID, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeEmptyCart, apperror.Code(err))
}

func TestFulfill_AllocatesOldestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)

	older, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 5}})
	require.NoError(t, err)
	// Creation times must differ for the allocator's ordering.
	f.requests.requests[older.ID].CreatedAt = time.Now().UTC().Add(-time.Minute)

	newer, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 3}})
	require.NoError(t, err)

	res, err := f.svc.Fulfill(ctx, mango.ID, 6)
	require.NoError(t, err)

	// Older request fully filled and completed; newer got the remainder.
	assert.EqualValues(t, 5, res.Allocated[older.Number])
	assert.EqualValues(t, 1, res.Allocated[newer.Number])
	assert.Equal(t, []string{older.Number}, res.Completed)

	first, err := f.svc.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, first.Status)
	require.NotNil(t, first.CompletedAt)

	second, err := f.svc.Get(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, second.Status)
	assert.EqualValues(t, 1, second.Lines[0].QuantityReceived)

	// The full procured quantity sits on the central shelf and its debt
	// grew at the live price.
	pos, _ := f.ledger.GetPosition(ctx, f.central.ID, mango.ID)
	assert.EqualValues(t, 6, pos.Quantity)
	bal, _ := f.ledger.GetBalance(ctx, f.central.ID)
	assert.EqualValues(t, 1500_00, bal.Debt)
}

func TestFulfill_SurplusStaysCentral(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)

	req, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 2}})
	require.NoError(t, err)

	res, err := f.svc.Fulfill(ctx, mango.ID, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Allocated[req.Number])
	assert.Equal(t, []string{req.Number}, res.Completed)

	pos, _ := f.ledger.GetPosition(ctx, f.central.ID, mango.ID)
	assert.EqualValues(t, 10, pos.Quantity)
}

func TestFulfill_AccumulatesAcrossFulfillments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)

	req, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 5}})
	require.NoError(t, err)

	res, err := f.svc.Fulfill(ctx, mango.ID, 2)
	require.NoError(t, err)
	assert.Empty(t, res.Completed)

	res, err = f.svc.Fulfill(ctx, mango.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{req.Number}, res.Completed)

	done, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.EqualValues(t, 5, done.Lines[0].QuantityReceived)
}

func TestFulfill_IgnoresOtherProducts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)
	papaya := f.newProduct("Papaya", 200_00)

	req, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: papaya.ID, Quantity: 3}})
	require.NoError(t, err)

	res, err := f.svc.Fulfill(ctx, mango.ID, 4)
	require.NoError(t, err)
	assert.Empty(t, res.Allocated)

	untouched, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, untouched.Status)
	assert.EqualValues(t, 0, untouched.Lines[0].QuantityReceived)
}

func TestFulfill_RejectsNonPositive(t *testing.T) {
	f := newFixture()
	mango := f.newProduct("Mango", 250_00)

	_, err := f.svc.Fulfill(context.Background(), mango.ID, 0)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeValidation, apperror.Code(err))
}

func TestFulfill_AppendsHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)

	_, err := f.svc.Fulfill(ctx, mango.ID, 4)
	require.NoError(t, err)
	_, err = f.svc.Fulfill(ctx, mango.ID, 6)
	require.NoError(t, err)

	entries, err := f.svc.History(ctx, &mango.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.EqualValues(t, 4, entries[0].Quantity)
	assert.EqualValues(t, 6, entries[1].Quantity)
}

func TestCancel_OnlyPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)

	req, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 2}})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = f.svc.Cancel(ctx, req.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidStateTransition, apperror.Code(err))
}

func TestFulfill_SkipsCancelledRequests(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)

	req, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 5}})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, req.ID)
	require.NoError(t, err)

	res, err := f.svc.Fulfill(ctx, mango.ID, 5)
	require.NoError(t, err)
	assert.Empty(t, res.Allocated)

	pos, _ := f.ledger.GetPosition(ctx, f.central.ID, mango.ID)
	assert.EqualValues(t, 5, pos.Quantity)
}
