package discount

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-checkout/internal/catalog"
)

const (
	// KindPercent identifies a percentage rule.
	KindPercent = "percent"
	// KindBuyOneGetOneFree identifies a buy-one-get-one-free rule.
	KindBuyOneGetOneFree = "bogo"
)

// ErrInvalidParameter is returned when a rule is constructed with out-of-range arguments.
var ErrInvalidParameter = catalog.ErrInvalidParameter

// Rule prices a quantity of the item it is bound to.
type Rule interface {
	// Apply returns the total payable amount for quantity units, computed
	// from the item's price at call time.
	Apply(quantity int) decimal.Decimal
	// Kind names the rule variant.
	Kind() string
}

var one = decimal.NewFromInt(1)

// Percent takes a fixed fraction off every unit.
type Percent struct {
	item     *catalog.Item
	discount decimal.Decimal
}

// NewPercent binds a percentage rule to item. discount is a fraction and must
// satisfy 0 < discount <= 1.
func NewPercent(item *catalog.Item, discount decimal.Decimal) (*Percent, error) {
	if item == nil {
		return nil, fmt.Errorf("percent rule: item required: %w", ErrInvalidParameter)
	}
	if !discount.IsPositive() || discount.GreaterThan(one) {
		return nil, fmt.Errorf("percent rule: invalid percentage %s: %w", discount, ErrInvalidParameter)
	}
	return &Percent{item: item, discount: discount}, nil
}

// Apply implements Rule.
func (p *Percent) Apply(quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return p.item.Price().Mul(decimal.NewFromInt(int64(quantity))).Mul(one.Sub(p.discount))
}

// Kind implements Rule.
func (p *Percent) Kind() string { return KindPercent }

// Discount returns the configured fraction.
func (p *Percent) Discount() decimal.Decimal { return p.discount }

func (p *Percent) String() string {
	return fmt.Sprintf("%s%% off %s", p.discount.Shift(2).String(), p.item.ID())
}

// BuyOneGetOneFree makes every second unit free.
type BuyOneGetOneFree struct {
	item *catalog.Item
}

// NewBuyOneGetOneFree binds a buy-one-get-one-free rule to item.
func NewBuyOneGetOneFree(item *catalog.Item) (*BuyOneGetOneFree, error) {
	if item == nil {
		return nil, fmt.Errorf("bogo rule: item required: %w", ErrInvalidParameter)
	}
	return &BuyOneGetOneFree{item: item}, nil
}

// Apply implements Rule. Odd quantities pay for the unpaired unit.
func (b *BuyOneGetOneFree) Apply(quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	free := quantity / 2
	return b.item.Price().Mul(decimal.NewFromInt(int64(quantity - free)))
}

// Kind implements Rule.
func (b *BuyOneGetOneFree) Kind() string { return KindBuyOneGetOneFree }

func (b *BuyOneGetOneFree) String() string {
	return fmt.Sprintf("buy one get one free on %s", b.item.ID())
}

// Build constructs a rule from its kind name. discount is only read for
// percent rules.
func Build(kind string, item *catalog.Item, discount decimal.Decimal) (Rule, error) {
	switch kind {
	case KindPercent:
		rule, err := NewPercent(item, discount)
		if err != nil {
			return nil, err
		}
		return rule, nil
	case KindBuyOneGetOneFree:
		rule, err := NewBuyOneGetOneFree(item)
		if err != nil {
			return nil, err
		}
		return rule, nil
	default:
		return nil, fmt.Errorf("unknown discount kind %q: %w", kind, ErrInvalidParameter)
	}
}
