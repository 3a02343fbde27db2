package lane

import (
	"github.com/noah-isme/toko-checkout/internal/basket"
	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/discount"
	"github.com/noah-isme/toko-checkout/internal/warehouse"
)

func inventoryView(lines []warehouse.Line) []map[string]any {
	out := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		out = append(out, itemView(line.Item, line.Quantity, line.Rule))
	}
	return out
}

func itemView(item *catalog.Item, qty int, rule discount.Rule) map[string]any {
	view := map[string]any{
		"itemId":   item.ID(),
		"price":    item.Price().StringFixed(2),
		"quantity": qty,
		"discount": nil,
	}
	if rule != nil {
		view["discount"] = ruleView(rule)
	}
	return view
}

func ruleView(rule discount.Rule) map[string]any {
	view := map[string]any{"kind": rule.Kind()}
	if pct, ok := rule.(*discount.Percent); ok {
		view["discount"] = pct.Discount().String()
	}
	return view
}

func basketView(b *basket.Basket) map[string]any {
	summary := b.Summary()
	items := make([]map[string]any, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		items = append(items, map[string]any{
			"itemId":    line.ItemID,
			"quantity":  line.Qty,
			"unitPrice": line.UnitPrice.StringFixed(2),
			"payable":   line.Payable.StringFixed(2),
			"rule":      line.Rule,
		})
	}
	u := b.User()
	return map[string]any{
		"user": map[string]any{
			"id":       u.ID.String(),
			"username": u.Username,
			"email":    u.Email,
		},
		"items": items,
		"pricing": map[string]any{
			"subtotal": summary.Subtotal.StringFixed(2),
			"discount": summary.Discount.StringFixed(2),
			"total":    summary.Total.StringFixed(2),
		},
		"currency": summary.Currency,
		"empty":    len(items) == 0,
	}
}
