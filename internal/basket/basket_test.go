package basket_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/basket"
	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/discount"
	"github.com/noah-isme/toko-checkout/internal/user"
	"github.com/noah-isme/toko-checkout/internal/warehouse"
)

const tenMillion = 10_000_000

type store struct {
	reg    *catalog.Registry
	wh     *warehouse.Warehouse
	basket *basket.Basket
	item1  *catalog.Item
	item2  *catalog.Item
	item3  *catalog.Item
}

func newStore(t *testing.T) *store {
	t.Helper()
	ctx := context.Background()
	s := &store{
		reg: catalog.NewRegistry(),
		wh:  warehouse.New(warehouse.Config{}),
	}
	s.item1 = s.reg.MustNewItem("C0001", decimal.RequireFromString("10.0"))
	s.item2 = s.reg.MustNewItem("C0002", decimal.RequireFromString("20.0"))
	s.item3 = s.reg.MustNewItem("C0003", decimal.NewFromInt(1))
	require.NoError(t, s.wh.AddItem(ctx, s.item1, 10))
	require.NoError(t, s.wh.AddItem(ctx, s.item2, 10))
	require.NoError(t, s.wh.AddItem(ctx, s.item3, 5))

	b, err := basket.New(user.Default(), s.wh)
	require.NoError(t, err)
	s.basket = b
	return s
}

func (s *store) quantity(t *testing.T, id string) int {
	t.Helper()
	qty, err := s.wh.Quantity(context.Background(), id)
	require.NoError(t, err)
	return qty
}

func requireTotal(t *testing.T, b *basket.Basket, want string) {
	t.Helper()
	got := b.Total()
	require.Truef(t, got.Equal(decimal.RequireFromString(want)), "want total %s, got %s", want, got)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := basket.New(user.User{}, warehouse.New(warehouse.Config{}))
	require.ErrorIs(t, err, basket.ErrInvalidParameter)

	_, err = basket.New(user.Default(), nil)
	require.ErrorIs(t, err, basket.ErrInvalidParameter)
}

func TestBuyOneGetOneFreeEvenQuantity(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	bogo, err := discount.NewBuyOneGetOneFree(s.item1)
	require.NoError(t, err)
	require.NoError(t, s.wh.AddDiscountRule(ctx, s.item1.ID(), bogo))

	for i := 0; i < 4; i++ {
		require.NoError(t, s.basket.Scan(ctx, s.item1.ID(), 1))
	}
	requireTotal(t, s.basket, "20.0")
	require.NoError(t, s.basket.Empty(ctx))
}

func TestBuyOneGetOneFreeOddQuantity(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	bogo, err := discount.NewBuyOneGetOneFree(s.item1)
	require.NoError(t, err)
	require.NoError(t, s.wh.AddDiscountRule(ctx, s.item1.ID(), bogo))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.basket.Scan(ctx, s.item1.ID(), 1))
	}
	requireTotal(t, s.basket, "20.0")
}

func TestPercentDiscount(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	pct, err := discount.NewPercent(s.item2, decimal.RequireFromString("0.1"))
	require.NoError(t, err)
	require.NoError(t, s.wh.AddDiscountRule(ctx, s.item2.ID(), pct))

	require.NoError(t, s.basket.Scan(ctx, s.item2.ID(), 1))
	require.NoError(t, s.basket.Scan(ctx, s.item2.ID(), 1))
	requireTotal(t, s.basket, "36.0")
}

func TestScanDecreasesWarehouseStock(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	before := s.quantity(t, "C0001")

	require.NoError(t, s.basket.Scan(ctx, "C0001", 1))
	require.Equal(t, before-1, s.quantity(t, "C0001"))
}

func TestScanUnknownItem(t *testing.T) {
	s := newStore(t)
	err := s.basket.Scan(context.Background(), "XXXXXX", 1)
	require.ErrorIs(t, err, warehouse.ErrNotListed)
	require.True(t, s.basket.IsEmpty())
}

func TestScanOutOfStockLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.basket.Scan(ctx, "C0003", 2))

	err := s.basket.Scan(ctx, "C0003", 60)
	require.ErrorIs(t, err, warehouse.ErrOutOfStock)
	require.Equal(t, 3, s.quantity(t, "C0003"))
	contents := s.basket.Contents()
	require.Len(t, contents, 1)
	require.Equal(t, 2, contents[0].Quantity)
}

func TestScanRejectsNonPositiveQuantity(t *testing.T) {
	s := newStore(t)
	require.ErrorIs(t, s.basket.Scan(context.Background(), "C0001", 0), basket.ErrInvalidParameter)
	require.ErrorIs(t, s.basket.Scan(context.Background(), "C0001", -2), basket.ErrInvalidParameter)
	require.Equal(t, 10, s.quantity(t, "C0001"))
	require.True(t, s.basket.IsEmpty())
}

func TestEmptyRestoresStock(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.basket.Scan(ctx, s.item1.ID(), 1))
	require.NoError(t, s.basket.Scan(ctx, s.item2.ID(), 1))
	require.False(t, s.basket.IsEmpty())

	require.NoError(t, s.basket.Empty(ctx))
	require.True(t, s.basket.IsEmpty())
	require.Equal(t, 10, s.quantity(t, "C0001"))
	require.Equal(t, 10, s.quantity(t, "C0002"))
	requireTotal(t, s.basket, "0")
}

func TestStockConservedAcrossScanAndEmpty(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	before := map[string]int{
		"C0001": s.quantity(t, "C0001"),
		"C0002": s.quantity(t, "C0002"),
		"C0003": s.quantity(t, "C0003"),
	}

	scans := []struct {
		id  string
		qty int
	}{
		{"C0001", 3}, {"C0003", 5}, {"C0002", 1}, {"C0001", 7}, {"C0003", 1}, {"C0002", 9}, {"C0002", 1},
	}
	for _, sc := range scans {
		_ = s.basket.Scan(ctx, sc.id, sc.qty)
	}
	require.Equal(t, 0, s.quantity(t, "C0001"))
	require.Equal(t, 0, s.quantity(t, "C0003"))

	require.NoError(t, s.basket.Empty(ctx))
	for id, qty := range before {
		require.Equalf(t, qty, s.quantity(t, id), "stock for %s", id)
	}
}

func TestEndToEndRuleBoundMidBasket(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.basket.Scan(ctx, "C0001", 1))
	requireTotal(t, s.basket, "10.0")

	bogo, err := discount.NewBuyOneGetOneFree(s.item1)
	require.NoError(t, err)
	require.NoError(t, s.wh.AddDiscountRule(ctx, "C0001", bogo))

	require.NoError(t, s.basket.Scan(ctx, "C0001", 3))
	requireTotal(t, s.basket, "20.0")

	s.wh.RemoveDiscountRule("C0001")
	requireTotal(t, s.basket, "40.0")
}

func TestTotalUsesCurrentPrice(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.basket.Scan(ctx, "C0002", 2))
	requireTotal(t, s.basket, "40")

	require.NoError(t, s.item2.SetPrice(decimal.RequireFromString("19.99")))
	requireTotal(t, s.basket, "39.98")
}

func TestSummaryAndContents(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	bogo, err := discount.NewBuyOneGetOneFree(s.item1)
	require.NoError(t, err)
	require.NoError(t, s.wh.AddDiscountRule(ctx, "C0001", bogo))

	require.NoError(t, s.basket.Scan(ctx, "C0002", 1))
	require.NoError(t, s.basket.Scan(ctx, "C0001", 4))

	summary := s.basket.Summary()
	require.Len(t, summary.Lines, 2)
	require.Equal(t, "C0002", summary.Lines[0].ItemID)
	require.Equal(t, "bogo", summary.Lines[1].Rule)
	require.True(t, summary.Subtotal.Equal(decimal.NewFromInt(60)))
	require.True(t, summary.Discount.Equal(decimal.NewFromInt(20)))
	require.True(t, summary.Total.Equal(decimal.NewFromInt(40)))
	require.Equal(t, "€", summary.Currency)

	var buf bytes.Buffer
	require.NoError(t, s.basket.PrintContents(&buf))
	require.Equal(t, "Item ID: C0002, Price: 20.00, Quantity: 1\nItem ID: C0001, Price: 10.00, Quantity: 4\n", buf.String())
	require.Equal(t, "max.mustermann", s.basket.User().Username)
}

type failingWarehouse struct {
	basket.Warehouse
	fail string
}

func (f failingWarehouse) AddItem(ctx context.Context, item *catalog.Item, qty int) error {
	if item.ID() == f.fail {
		return context.DeadlineExceeded
	}
	return f.Warehouse.AddItem(ctx, item, qty)
}

func TestEmptyKeepsLinesThatFailedToRestock(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	b, err := basket.New(user.Default(), failingWarehouse{Warehouse: s.wh, fail: "C0002"})
	require.NoError(t, err)

	require.NoError(t, b.Scan(ctx, "C0001", 2))
	require.NoError(t, b.Scan(ctx, "C0002", 3))

	err = b.Empty(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 10, s.quantity(t, "C0001"))
	contents := b.Contents()
	require.Len(t, contents, 1)
	require.Equal(t, "C0002", contents[0].Item.ID())
}

func TestLargeBasketThroughput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping throughput scenario in short mode")
	}
	ctx := context.Background()
	s := newStore(t)
	large := s.reg.MustNewItem("LARGE_ITEM", decimal.RequireFromString("10.0"))
	require.NoError(t, s.wh.AddItem(ctx, large, tenMillion))

	b, err := basket.New(user.Default(), s.wh)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < tenMillion; i++ {
		if err := b.Scan(ctx, large.ID(), 1); err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
	}
	total := b.Total()
	elapsed := time.Since(start)

	require.True(t, total.Equal(decimal.NewFromInt(10*tenMillion)), "got %s", total)
	require.LessOrEqual(t, elapsed, 2*time.Minute)
}
