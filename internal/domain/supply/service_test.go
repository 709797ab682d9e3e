package supply

import (
	"context"
	"sync"
	"testing"

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

// fakeAccounts serves the accounts the test registered.
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

// memLedgerRepo backs a real ledger.Service with in-memory state.
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

// memOrderRepo is an in-memory supply.Repository.
type memOrderRepo struct {
	orders map[id.ID]*Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[id.ID]*Order)}
}

func (m *memOrderRepo) clone(o *Order) *Order {
	cp := *o
	cp.Lines = make([]Line, len(o.Lines))
	copy(cp.Lines, o.Lines)
	return &cp
}

func (m *memOrderRepo) Create(_ context.Context, o *Order) error {
	m.orders[o.ID] = m.clone(o)
	return nil
}

func (m *memOrderRepo) GetByID(_ context.Context, orderID id.ID) (*Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("supply order", orderID)
	}
	return m.clone(o), nil
}

func (m *memOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error) {
	return m.GetByID(ctx, orderID)
}

func (m *memOrderRepo) UpdateStatus(_ context.Context, o *Order) error {
	stored, ok := m.orders[o.ID]
	if !ok {
		return apperror.NewNotFound("supply order", o.ID)
	}
	stored.Status = o.Status
	stored.ShippedAt = o.ShippedAt
	stored.CompletedAt = o.CompletedAt
	return nil
}

func (m *memOrderRepo) SetLineReceived(_ context.Context, lineID id.ID, received types.Quantity) error {
	for _, o := range m.orders {
		for i := range o.Lines {
			if o.Lines[i].ID == lineID {
				got := received
				o.Lines[i].QuantityReceived = &got
				return nil
			}
		}
	}
	return apperror.NewNotFound("order line", lineID)
}

func (m *memOrderRepo) List(_ context.Context, f Filter) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if f.AccountID != nil && o.AccountID != *f.AccountID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, *m.clone(o))
	}
	return out, nil
}

type fixture struct {
	svc      *Service
	ledger   *ledger.Service
	orders   *memOrderRepo
	stock    *memLedgerRepo
	accounts *fakeAccounts
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

	orders := newMemOrderRepo()
	svc := NewService(orders, accounts, products, ledgerSvc, passThroughTx{}, num, nil, nil)

	return &fixture{
		svc: svc, ledger: ledgerSvc, orders: orders, stock: stock,
		accounts: accounts, products: products,
		central: central, seller: seller,
	}
}

func (f *fixture) newProduct(name string, price types.MinorUnits) *product.Product {
	p := product.New(name, price)
	f.products.add(p)
	return p
}

func TestCreate_FreezesCatalogPrice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)

	order, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 4}})
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, StatusNew, order.Status)
	assert.NotEmpty(t, order.Number)
	assert.EqualValues(t, 250_00, order.Lines[0].UnitPrice)

	// A later catalog change must not touch the frozen line.
	mango.Price = 300_00
	stored, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 250_00, stored.Lines[0].UnitPrice)
}

func TestCreate_EmptyCart(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.seller.ID, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeEmptyCart, apperror.Code(err))
}

func TestCreate_RejectsBlockedAccount(t *testing.T) {
	f := newFixture()
	mango := f.newProduct("Mango", 250_00)
	f.seller.IsActive = false

	_, err := f.svc.Create(context.Background(), f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.Code(err))
}

func TestCreate_RejectsInactiveProduct(t *testing.T) {
	f := newFixture()
	mango := f.newProduct("Mango", 250_00)
	mango.IsActive = false

	_, err := f.svc.Create(context.Background(), f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeValidation, apperror.Code(err))
}

func TestShip_MovesStockAndDebt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)
	require.NoError(t, f.stock.SetPosition(ctx, f.central.ID, mango.ID, 10))

	order, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 4}})
	require.NoError(t, err)

	shipped, err := f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)

	src, _ := f.ledger.GetPosition(ctx, f.central.ID, mango.ID)
	dst, _ := f.ledger.GetPosition(ctx, f.seller.ID, mango.ID)
	assert.EqualValues(t, 6, src.Quantity)
	assert.EqualValues(t, 4, dst.Quantity)

	bal, _ := f.ledger.GetBalance(ctx, f.seller.ID)
	assert.EqualValues(t, 1000_00, bal.Debt)
}

func TestShip_RejectsShortage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)
	require.NoError(t, f.stock.SetPosition(ctx, f.central.ID, mango.ID, 2))

	order, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 4}})
	require.NoError(t, err)

	_, err = f.svc.Ship(ctx, order.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInsufficientStock, apperror.Code(err))

	stored, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, stored.Status)
}

func TestShip_OnlyFromNew(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)
	require.NoError(t, f.stock.SetPosition(ctx, f.central.ID, mango.ID, 10))

	order, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 2}})
	require.NoError(t, err)
	_, err = f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Ship(ctx, order.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidStateTransition, apperror.Code(err))
}

func TestConfirmReceipt_FullDelivery(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)
	require.NoError(t, f.stock.SetPosition(ctx, f.central.ID, mango.ID, 10))

	order, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 4}})
	require.NoError(t, err)
	_, err = f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)

	done, shortage, err := f.svc.ConfirmReceipt(ctx, order.ID,
		map[id.ID]types.Quantity{order.Lines[0].ID: 4}, true)
	require.NoError(t, err)
	assert.Nil(t, shortage)
	assert.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.Lines[0].QuantityReceived)
	assert.EqualValues(t, 4, *done.Lines[0].QuantityReceived)
}

func TestConfirmReceipt_ShortageReorder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)
	require.NoError(t, f.stock.SetPosition(ctx, f.central.ID, mango.ID, 10))

	order, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 10}})
	require.NoError(t, err)
	_, err = f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)

	// Price changes between ship and receipt; the re-order must keep
	// the original frozen price.
	mango.Price = 999_00

	done, shortage, err := f.svc.ConfirmReceipt(ctx, order.ID,
		map[id.ID]types.Quantity{order.Lines[0].ID: 7}, true)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	require.NotNil(t, shortage)
	assert.Equal(t, StatusNew, shortage.Status)
	assert.NotEmpty(t, shortage.Number)
	require.Len(t, shortage.Lines, 1)
	assert.Equal(t, mango.ID, shortage.Lines[0].ProductID)
	assert.EqualValues(t, 3, shortage.Lines[0].QuantityOrdered)
	assert.EqualValues(t, 250_00, shortage.Lines[0].UnitPrice)

	// The shortage order is persisted and listable.
	stored, err := f.svc.Get(ctx, shortage.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, stored.Status)
}

func TestConfirmReceipt_NoReorderWhenDisabled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)
	require.NoError(t, f.stock.SetPosition(ctx, f.central.ID, mango.ID, 10))

	order, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 5}})
	require.NoError(t, err)
	_, err = f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)

	_, shortage, err := f.svc.ConfirmReceipt(ctx, order.ID,
		map[id.ID]types.Quantity{order.Lines[0].ID: 3}, false)
	require.NoError(t, err)
	assert.Nil(t, shortage)
}

func TestConfirmReceipt_OutOfRange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)
	require.NoError(t, f.stock.SetPosition(ctx, f.central.ID, mango.ID, 10))

	order, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 4}})
	require.NoError(t, err)
	_, err = f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)

	_, _, err = f.svc.ConfirmReceipt(ctx, order.ID,
		map[id.ID]types.Quantity{order.Lines[0].ID: 5}, false)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeValidation, apperror.Code(err))
}

func TestConfirmReceipt_MissingLine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)
	require.NoError(t, f.stock.SetPosition(ctx, f.central.ID, mango.ID, 10))

	order, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 4}})
	require.NoError(t, err)
	_, err = f.svc.Ship(ctx, order.ID)
	require.NoError(t, err)

	_, _, err = f.svc.ConfirmReceipt(ctx, order.ID,
		map[id.ID]types.Quantity{id.New(): 4}, false)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeValidation, apperror.Code(err))
}

func TestCancel_OnlyNew(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mango := f.newProduct("Mango", 250_00)
	require.NoError(t, f.stock.SetPosition(ctx, f.central.ID, mango.ID, 10))

	order, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 2}})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// Cancelling a shipped order is forbidden.
	other, err := f.svc.Create(ctx, f.seller.ID, []NewLine{{ProductID: mango.ID, Quantity: 2}})
	require.NoError(t, err)
	_, err = f.svc.Ship(ctx, other.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, other.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidStateTransition, apperror.Code(err))
}
