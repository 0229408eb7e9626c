package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	"github.com/ariefcatur/icebay-pos/internal/orders"
	"github.com/go-chi/chi/v5"
)

type CartSessions interface {
	Create(ctx context.Context) (string, error)
	Load(ctx context.Context, id string) (*orders.Cart, error)
	Update(ctx context.Context, id string, fn func(*orders.Cart) error) (*orders.Cart, error)
	Delete(ctx context.Context, id string) error
	LockCheckout(ctx context.Context, id string) (unlock func(), err error)
}

type VarietyGetter interface {
	Get(ctx context.Context, id string) (catalog.Variety, error)
}

type Checkouter interface {
	Checkout(ctx context.Context, cart *orders.Cart, req orders.CheckoutRequest) (orders.Order, error)
}

type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (bool, string, error)
	Complete(ctx context.Context, key, orderID string) error
	Release(ctx context.Context, key string) error
}

// CartHandler exposes one composition session per cart id. Idem is
// optional; without it the Idempotency-Key header is ignored.
type CartHandler struct {
	Carts     CartSessions
	Varieties VarietyGetter
	Orders    OrderReader
	Engine    Checkouter
	Idem      IdempotencyStore
	Pub       Publisher
	Service   string
	Log       *slog.Logger
}

type CartResp struct {
	ID             string        `json:"cart_id"`
	Lines          []orders.Line `json:"lines"`
	EditingOrderID string        `json:"editing_order_id,omitempty"`
	TotalCents     int64         `json:"total_cents"`
}

type AddItemReq struct {
	VarietyID string `json:"variety_id"`
	Qty       int    `json:"qty"`
}

type SetQtyReq struct {
	Qty int `json:"qty"`
}

type CheckoutReq struct {
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
}

type CheckoutResp struct {
	Order      orders.Order `json:"order"`
	Idempotent bool         `json:"idempotent"`
}

func toCartResp(id string, c *orders.Cart) CartResp {
	lines := c.Lines
	if lines == nil {
		lines = []orders.Line{}
	}
	return CartResp{ID: id, Lines: lines, EditingOrderID: c.EditingOrderID, TotalCents: c.Total()}
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Post("/carts", h.create)
	r.Get("/carts/{cartID}", h.get)
	r.Delete("/carts/{cartID}", h.discard)
	r.Post("/carts/{cartID}/items", h.addItem)
	r.Put("/carts/{cartID}/items/{varietyID}", h.setQty)
	r.Delete("/carts/{cartID}/items/{varietyID}", h.removeItem)
	r.Post("/carts/{cartID}/load/{orderID}", h.loadOrder)
	r.Post("/carts/{cartID}/checkout", h.checkout)
}

func (h *CartHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id, err := h.Carts.Create(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartResp(id, &orders.Cart{}))
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id := chi.URLParam(r, "cartID")
	c, err := h.Carts.Load(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(id, c))
}

func (h *CartHandler) discard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Carts.Delete(ctx, chi.URLParam(r, "cartID")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mutate applies fn to the stored cart and writes the result back.
func (h *CartHandler) mutate(ctx context.Context, w http.ResponseWriter, r *http.Request, fn func(*orders.Cart) error) {
	id := chi.URLParam(r, "cartID")
	c, err := h.Carts.Update(ctx, id, fn)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(id, c))
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if req.VarietyID == "" {
		writeError(w, r, h.Log, invalid("variety_id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Varieties.Get(ctx, req.VarietyID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.mutate(ctx, w, r, func(c *orders.Cart) error { return c.AddItem(v, req.Qty) })
}

func (h *CartHandler) setQty(w http.ResponseWriter, r *http.Request) {
	var req SetQtyReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	varietyID := chi.URLParam(r, "varietyID")
	if req.Qty <= 0 {
		h.mutate(ctx, w, r, func(c *orders.Cart) error { c.RemoveItem(varietyID); return nil })
		return
	}
	v, err := h.Varieties.Get(ctx, varietyID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.mutate(ctx, w, r, func(c *orders.Cart) error { return c.SetQuantity(v, req.Qty) })
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	varietyID := chi.URLParam(r, "varietyID")
	h.mutate(ctx, w, r, func(c *orders.Cart) error { c.RemoveItem(varietyID); return nil })
}

// loadOrder replaces the cart with an UNPAID order's items for editing.
func (h *CartHandler) loadOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.mutate(ctx, w, r, func(c *orders.Cart) error { return c.LoadFrom(o) })
}

func (h *CartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	st, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	pm, err := orders.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Idempotency-Key: a repeated key returns the order it produced
	// instead of committing the cart again.
	idemKey := r.Header.Get("Idempotency-Key")
	if h.Idem == nil {
		idemKey = ""
	}
	if idemKey != "" {
		claimed, orderID, err := h.Idem.Claim(ctx, idemKey)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		if !claimed {
			o, err := h.Orders.GetOrder(ctx, orderID)
			if err != nil {
				writeError(w, r, h.Log, err)
				return
			}
			writeJSON(w, http.StatusOK, CheckoutResp{Order: o, Idempotent: true})
			return
		}
	}

	cartID := chi.URLParam(r, "cartID")
	o, err := h.commit(ctx, cartID, orders.CheckoutRequest{Status: st, PaymentMethod: pm})
	if err != nil {
		if idemKey != "" {
			if rerr := h.Idem.Release(ctx, idemKey); rerr != nil && h.Log != nil {
				h.Log.Warn("idempotency release failed", "key", idemKey, "err", rerr)
			}
		}
		writeError(w, r, h.Log, err)
		return
	}
	if idemKey != "" {
		if err := h.Idem.Complete(ctx, idemKey, o.ID); err != nil && h.Log != nil {
			h.Log.Warn("idempotency complete failed", "key", idemKey, "order_id", o.ID, "err", err)
		}
	}

	events{Pub: h.Pub, Service: h.Service, Log: h.Log}.orderCommitted(ctx, o)
	writeJSON(w, http.StatusCreated, CheckoutResp{Order: o})
}

// commit checks out the stored cart and then empties it, holding the cart's
// checkout lock throughout so overlapping requests cannot commit the same
// lines twice. The checkout runs outside the cart's optimistic update so a
// retried write can never commit twice either.
func (h *CartHandler) commit(ctx context.Context, cartID string, req orders.CheckoutRequest) (orders.Order, error) {
	unlock, err := h.Carts.LockCheckout(ctx, cartID)
	if err != nil {
		return orders.Order{}, err
	}
	defer unlock()

	c, err := h.Carts.Load(ctx, cartID)
	if err != nil {
		return orders.Order{}, err
	}
	o, err := h.Engine.Checkout(ctx, c, req)
	if err != nil {
		return orders.Order{}, err
	}
	_, err = h.Carts.Update(ctx, cartID, func(c *orders.Cart) error { c.Clear(); return nil })
	if err != nil && h.Log != nil {
		h.Log.Warn("clear cart after checkout", "cart_id", cartID, "order_id", o.ID, "err", err)
	}
	return o, nil
}
