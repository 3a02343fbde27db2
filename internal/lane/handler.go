package lane

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-checkout/internal/basket"
	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/common"
	"github.com/noah-isme/toko-checkout/internal/discount"
	"github.com/noah-isme/toko-checkout/internal/obs"
	"github.com/noah-isme/toko-checkout/internal/warehouse"
)

var validate = validator.New()

// Handler exposes one checkout lane over HTTP: the shared warehouse and the
// single basket scanned at this lane.
type Handler struct {
	Registry  *catalog.Registry
	Warehouse *warehouse.Warehouse
	Basket    *basket.Basket
	Logger    zerolog.Logger
}

// Routes mounts the lane endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/inventory", func(inv chi.Router) {
		inv.Get("/", h.ListInventory)
		inv.Post("/", h.AddItem)
		inv.Put("/{itemId}/price", h.SetPrice)
		inv.Put("/{itemId}/discount", h.BindDiscount)
		inv.Delete("/{itemId}/discount", h.UnbindDiscount)
	})
	r.Route("/basket", func(b chi.Router) {
		b.Get("/", h.GetBasket)
		b.Post("/scan", h.Scan)
		b.Delete("/", h.EmptyBasket)
	})
	return r
}

type addItemRequest struct {
	ItemID   string           `json:"itemId" validate:"required,max=64"`
	Price    *decimal.Decimal `json:"price"`
	Quantity int              `json:"quantity" validate:"gte=0"`
}

type priceRequest struct {
	Price *decimal.Decimal `json:"price" validate:"required"`
}

type discountRequest struct {
	Kind     string          `json:"kind" validate:"required,oneof=percent bogo"`
	Discount decimal.Decimal `json:"discount"`
}

type scanRequest struct {
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

// ListInventory returns every stocked line in listing order.
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Warehouse.ListInventory(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"items":    inventoryView(lines),
		"currency": h.Warehouse.Currency(),
	})
}

// AddItem registers a new item id and stocks it, or restocks a known id.
// The price is only read when the id is new.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload addItemRequest
	if !decode(w, r, &payload) {
		return
	}
	id := strings.TrimSpace(payload.ItemID)
	item, known := h.Registry.Lookup(id)
	if !known {
		if payload.Price == nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "price required for a new item", nil)
			return
		}
		var err error
		item, err = h.Registry.NewItem(id, *payload.Price)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if err := h.Warehouse.AddItem(r.Context(), item, payload.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	qty, err := h.Warehouse.Quantity(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !known {
		status = http.StatusCreated
	}
	common.Data(w, status, itemView(item, qty, nil))
}

// SetPrice changes the price of a registered item.
func (h *Handler) SetPrice(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var payload priceRequest
	if !decode(w, r, &payload) {
		return
	}
	if err := item.SetPrice(*payload.Price); err != nil {
		h.writeError(w, r, err)
		return
	}
	qty, err := h.Warehouse.Quantity(r.Context(), item.ID())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rule, _ := h.Warehouse.DiscountRule(item.ID())
	common.Data(w, http.StatusOK, itemView(item, qty, rule))
}

// BindDiscount attaches a percent or buy-one-get-one-free rule to a listed item.
func (h *Handler) BindDiscount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemId")
	item, listed := h.Warehouse.Item(id)
	if !listed {
		h.writeError(w, r, fmt.Errorf("item %s: %w", id, warehouse.ErrNotListed))
		return
	}
	var payload discountRequest
	if !decode(w, r, &payload) {
		return
	}
	rule, err := discount.Build(payload.Kind, item, payload.Discount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Warehouse.AddDiscountRule(r.Context(), id, rule); err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, ruleView(rule))
}

// UnbindDiscount removes any rule bound to the item.
func (h *Handler) UnbindDiscount(w http.ResponseWriter, r *http.Request) {
	h.Warehouse.RemoveDiscountRule(chi.URLParam(r, "itemId"))
	w.WriteHeader(http.StatusNoContent)
}

// GetBasket returns the basket contents and totals.
func (h *Handler) GetBasket(w http.ResponseWriter, _ *http.Request) {
	common.Data(w, http.StatusOK, basketView(h.Basket))
}

// Scan moves units of an item from the warehouse into the lane's basket.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var payload scanRequest
	if !decode(w, r, &payload) {
		return
	}
	if err := h.Basket.Scan(r.Context(), strings.TrimSpace(payload.ItemID), payload.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, basketView(h.Basket))
}

// EmptyBasket returns all scanned units to the warehouse.
func (h *Handler) EmptyBasket(w http.ResponseWriter, r *http.Request) {
	if err := h.Basket.Empty(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*catalog.Item, bool) {
	id := chi.URLParam(r, "itemId")
	item, ok := h.Registry.Lookup(id)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_LISTED", "item "+id+" is not registered", nil)
		return nil, false
	}
	return item, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := common.FromDomain(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger := obs.WithTrace(r.Context(), h.Logger)
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("lane request failed")
	}
	common.WriteError(w, appErr)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", fields)
			return false
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return false
	}
	return true
}
