package basket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/discount"
	"github.com/noah-isme/toko-checkout/internal/obs"
	"github.com/noah-isme/toko-checkout/internal/pricing"
	"github.com/noah-isme/toko-checkout/internal/user"
	"github.com/noah-isme/toko-checkout/internal/warehouse"
)

// ErrInvalidParameter is returned for non-positive scan quantities or missing collaborators.
var ErrInvalidParameter = catalog.ErrInvalidParameter

// Warehouse is the stock authority a basket scans from.
type Warehouse interface {
	Reserve(ctx context.Context, id string, quantity int) (*catalog.Item, error)
	AddItem(ctx context.Context, item *catalog.Item, quantity int) error
	DiscountRule(id string) (discount.Rule, bool)
	Currency() string
}

// Line is one held item and the number of units scanned.
type Line struct {
	Item     *catalog.Item
	Quantity int
}

// Option configures a Basket.
type Option func(*Basket)

// WithLogger attaches a logger for scan and empty events.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Basket) {
		b.logger = logger
	}
}

// Basket accumulates scanned items for one checkout.
type Basket struct {
	user      user.User
	warehouse Warehouse
	logger    zerolog.Logger

	mu    sync.Mutex
	lines map[string]*Line
	order []string
}

// New constructs an empty basket for u backed by wh.
func New(u user.User, wh Warehouse, opts ...Option) (*Basket, error) {
	if u.ID == uuid.Nil {
		return nil, fmt.Errorf("user cannot be empty: %w", ErrInvalidParameter)
	}
	if wh == nil {
		return nil, fmt.Errorf("warehouse cannot be nil: %w", ErrInvalidParameter)
	}
	b := &Basket{
		user:      u,
		warehouse: wh,
		logger:    zerolog.Nop(),
		lines:     make(map[string]*Line),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With().Str("component", "basket").Str("user", u.Username).Logger()
	return b, nil
}

// User returns the shopper the basket belongs to.
func (b *Basket) User() user.User {
	return b.user
}

// Scan moves quantity units of id from the warehouse into the basket. Stock
// is reserved atomically before the basket records the units, so a failed
// scan changes neither side.
func (b *Basket) Scan(ctx context.Context, id string, quantity int) (err error) {
	ctx, span := obs.StartSpan(ctx, "basket.scan", attribute.String("item_id", id), attribute.Int("quantity", quantity))
	defer func() { obs.EndSpan(span, err) }()

	if quantity <= 0 {
		obs.RecordScan(obs.ScanResultInvalid, 0)
		return fmt.Errorf("scan %s: quantity %d must be positive: %w", id, quantity, ErrInvalidParameter)
	}
	item, err := b.warehouse.Reserve(ctx, id, quantity)
	if err != nil {
		obs.RecordScan(scanResult(err), 0)
		return err
	}

	b.mu.Lock()
	line, ok := b.lines[id]
	if !ok {
		line = &Line{Item: item}
		b.lines[id] = line
		b.order = append(b.order, id)
	}
	line.Quantity += quantity
	held := line.Quantity
	b.mu.Unlock()

	obs.RecordScan(obs.ScanResultOK, quantity)
	b.logger.Debug().Str("item_id", id).Int("quantity", quantity).Int("held", held).Msg("item added to the basket")
	return nil
}

// Total sums the payable amount of every line, applying the discount rule
// bound in the warehouse at call time.
func (b *Basket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.priced() {
		total = total.Add(l.Payable)
	}
	return total
}

// Summary prices every line and totals the basket.
func (b *Basket) Summary() pricing.Summary {
	return pricing.Compute(b.priced(), b.warehouse.Currency())
}

func (b *Basket) priced() []pricing.Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pricedLocked()
}

func (b *Basket) pricedLocked() []pricing.Line {
	out := make([]pricing.Line, 0, len(b.order))
	for _, id := range b.order {
		line := b.lines[id]
		price := line.Item.Price()
		pl := pricing.Line{ItemID: id, Qty: line.Quantity, UnitPrice: price}
		if rule, ok := b.warehouse.DiscountRule(id); ok {
			pl.Payable = rule.Apply(line.Quantity)
			pl.Rule = rule.Kind()
		} else {
			pl.Payable = price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		}
		out = append(out, pl)
	}
	return out
}

// Contents returns a snapshot of the held lines in scan order.
func (b *Basket) Contents() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Line, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.lines[id])
	}
	return out
}

// PrintContents writes one line per held item to out.
func (b *Basket) PrintContents(out io.Writer) error {
	for _, l := range b.Contents() {
		if _, err := fmt.Fprintf(out, "Item ID: %s, Price: %s, Quantity: %d\n", l.Item.ID(), l.Item.Price().StringFixed(2), l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Empty returns every held unit to the warehouse and clears the basket. The
// basket total is observed once per non-empty basket on the way out. If a
// restock fails, lines already returned are dropped and the rest are kept.
func (b *Basket) Empty(ctx context.Context) (err error) {
	ctx, span := obs.StartSpan(ctx, "basket.empty", attribute.String("user", b.user.Username))
	defer func() { obs.EndSpan(span, err) }()

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.order) > 0 {
		obs.ObserveBasketTotal(pricing.Compute(b.pricedLocked(), b.warehouse.Currency()).Total.InexactFloat64())
	}
	restocked := 0
	for len(b.order) > 0 {
		id := b.order[0]
		line := b.lines[id]
		if err := b.warehouse.AddItem(ctx, line.Item, line.Quantity); err != nil {
			obs.RecordEmpty(restocked)
			return fmt.Errorf("restock %s: %w", id, err)
		}
		restocked += line.Quantity
		delete(b.lines, id)
		b.order = b.order[1:]
	}
	b.order = nil
	obs.RecordEmpty(restocked)
	b.logger.Debug().Int("units", restocked).Msg("basket has been emptied")
	return nil
}

// IsEmpty reports whether no lines are held.
func (b *Basket) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines) == 0
}

func scanResult(err error) string {
	switch {
	case errors.Is(err, warehouse.ErrNotListed):
		return obs.ScanResultNotListed
	case errors.Is(err, warehouse.ErrOutOfStock):
		return obs.ScanResultOutOfStock
	case errors.Is(err, ErrInvalidParameter):
		return obs.ScanResultInvalid
	default:
		return obs.ScanResultError
	}
}
