package warehouse_test

import (
	"bytes"
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/discount"
	"github.com/noah-isme/toko-checkout/internal/warehouse"
)

type fixture struct {
	reg *catalog.Registry
	wh  *warehouse.Warehouse
}

func newFixture(t *testing.T, ledger warehouse.Ledger) fixture {
	t.Helper()
	return fixture{
		reg: catalog.NewRegistry(),
		wh:  warehouse.New(warehouse.Config{Ledger: ledger}),
	}
}

func (f fixture) stock(t *testing.T, id, price string, qty int) *catalog.Item {
	t.Helper()
	item := f.reg.MustNewItem(id, decimal.RequireFromString(price))
	require.NoError(t, f.wh.AddItem(context.Background(), item, qty))
	return item
}

func TestAddItemIncrementsAndReplacesReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	item := f.stock(t, "C0001", "10", 3)

	require.NoError(t, f.wh.AddItem(ctx, item, 2))
	qty, err := f.wh.Quantity(ctx, "C0001")
	require.NoError(t, err)
	require.Equal(t, 5, qty)

	err = f.wh.AddItem(ctx, item, -1)
	require.ErrorIs(t, err, warehouse.ErrInvalidParameter)
	qty, _ = f.wh.Quantity(ctx, "C0001")
	require.Equal(t, 5, qty)

	stored, ok := f.wh.Item("C0001")
	require.True(t, ok)
	require.Same(t, item, stored)
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	item := f.stock(t, "C0001", "10", 3)

	require.ErrorIs(t, f.wh.RemoveItem(ctx, item, -1), warehouse.ErrInvalidParameter)
	require.ErrorIs(t, f.wh.RemoveItem(ctx, item, 4), warehouse.ErrOutOfStock)

	require.NoError(t, f.wh.RemoveItem(ctx, item, 2))
	qty, _ := f.wh.Quantity(ctx, "C0001")
	require.Equal(t, 1, qty)

	require.NoError(t, f.wh.RemoveItem(ctx, item, 1))
	_, err := f.wh.TakeItem(ctx, "C0001", 1)
	require.ErrorIs(t, err, warehouse.ErrNotListed, "entries reaching zero are removed")

	require.ErrorIs(t, f.wh.RemoveItem(ctx, item, 1), warehouse.ErrOutOfStock, "absent items are out of stock")
}

func TestZeroQuantityAddListsEmptyEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	item := f.stock(t, "C0009", "2", 0)

	lines, err := f.wh.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Zero(t, lines[0].Quantity)

	_, err = f.wh.Reserve(ctx, "C0009", 1)
	require.ErrorIs(t, err, warehouse.ErrOutOfStock)

	require.NoError(t, f.wh.RemoveItem(ctx, item, 0))
	lines, err = f.wh.ListInventory(ctx)
	require.NoError(t, err)
	require.Empty(t, lines, "a decrement reaching zero drops the entry")
}

func TestTakeItemDoesNotMutateStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	item := f.stock(t, "C0003", "1", 5)

	got, err := f.wh.TakeItem(ctx, "C0003", 5)
	require.NoError(t, err)
	require.Same(t, item, got)
	qty, _ := f.wh.Quantity(ctx, "C0003")
	require.Equal(t, 5, qty)

	_, err = f.wh.TakeItem(ctx, "C0003", 60)
	require.ErrorIs(t, err, warehouse.ErrOutOfStock)

	_, err = f.wh.TakeItem(ctx, "XXXXXX", 1)
	require.ErrorIs(t, err, warehouse.ErrNotListed)
}

func TestReserveIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.stock(t, "C0003", "1", 5)

	_, err := f.wh.Reserve(ctx, "C0003", 6)
	require.ErrorIs(t, err, warehouse.ErrOutOfStock)
	qty, _ := f.wh.Quantity(ctx, "C0003")
	require.Equal(t, 5, qty)

	_, err = f.wh.Reserve(ctx, "nope", 1)
	require.ErrorIs(t, err, warehouse.ErrNotListed)

	item, err := f.wh.Reserve(ctx, "C0003", 5)
	require.NoError(t, err)
	require.Equal(t, "C0003", item.ID())
	qty, _ = f.wh.Quantity(ctx, "C0003")
	require.Equal(t, 0, qty)
}

func TestReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.stock(t, "HOT", "9.99", 100)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if _, err := f.wh.Reserve(ctx, "HOT", 1); err == nil {
					mu.Lock()
					reserved++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 100, reserved)
	qty, _ := f.wh.Quantity(ctx, "HOT")
	require.Zero(t, qty)
}

func TestDiscountRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	item := f.stock(t, "C0001", "10", 10)

	bogo, err := discount.NewBuyOneGetOneFree(item)
	require.NoError(t, err)

	require.False(t, f.wh.DiscountAvailable("C0001"))
	_, ok := f.wh.DiscountRule("C0001")
	require.False(t, ok)

	require.ErrorIs(t, f.wh.AddDiscountRule(ctx, "XXXXXX", bogo), warehouse.ErrNotListed)
	require.NoError(t, f.wh.AddDiscountRule(ctx, "C0001", bogo))
	require.True(t, f.wh.DiscountAvailable("C0001"))

	pct, err := discount.NewPercent(item, decimal.RequireFromString("0.1"))
	require.NoError(t, err)
	require.NoError(t, f.wh.AddDiscountRule(ctx, "C0001", pct))
	rule, ok := f.wh.DiscountRule("C0001")
	require.True(t, ok)
	require.Equal(t, discount.KindPercent, rule.Kind())

	f.wh.RemoveDiscountRule("C0001")
	require.False(t, f.wh.DiscountAvailable("C0001"))
}

func TestListAndPrintInventory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := f.stock(t, "C0001", "10", 10)
	f.stock(t, "C0002", "20", 10)
	f.stock(t, "C0003", "1", 5)

	require.NoError(t, f.wh.RemoveItem(ctx, a, 10))
	require.NoError(t, f.wh.AddItem(ctx, a, 1))

	lines, err := f.wh.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	ids := []string{lines[0].Item.ID(), lines[1].Item.ID(), lines[2].Item.ID()}
	assert.Equal(t, []string{"C0002", "C0003", "C0001"}, ids)

	var buf bytes.Buffer
	require.NoError(t, f.wh.PrintInventory(ctx, &buf))
	assert.Equal(t,
		"Item ID: C0002, Price: 20.00€, Quantity: 10\n"+
			"Item ID: C0003, Price: 1.00€, Quantity: 5\n"+
			"Item ID: C0001, Price: 10.00€, Quantity: 1\n",
		buf.String())
	assert.Equal(t, "€", f.wh.Currency())
}

func TestGenerateAndSeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	seeds, err := warehouse.Generate(f.reg, 10, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.Len(t, seeds, 10)
	require.Equal(t, "A0001", seeds[0].Item.ID())
	require.Equal(t, "A0010", seeds[9].Item.ID())
	for _, s := range seeds {
		price := s.Item.Price()
		require.True(t, price.GreaterThanOrEqual(decimal.NewFromInt(5)), price.String())
		require.True(t, price.LessThanOrEqual(decimal.NewFromInt(100)), price.String())
		require.True(t, price.Equal(price.Round(2)), price.String())
		require.GreaterOrEqual(t, s.Quantity, 1)
		require.LessOrEqual(t, s.Quantity, 50)
	}

	require.NoError(t, f.wh.Seed(ctx, seeds))
	lines, err := f.wh.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 10)

	_, err = warehouse.Generate(f.reg, 1, nil)
	require.ErrorIs(t, err, catalog.ErrDuplicateIdentifier, "ids are scoped to the registry")
}
