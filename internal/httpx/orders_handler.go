package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrderReader interface {
	GetOrder(ctx context.Context, id string) (orders.Order, error)
	ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, error)
}

type Payer interface {
	Pay(ctx context.Context, orderID string, pm orders.PaymentMethod) (orders.Order, error)
}

type OrdersHandler struct {
	Orders  OrderReader
	Engine  Payer
	Pub     Publisher
	Service string
	Log     *slog.Logger
}

type PayReq struct {
	PaymentMethod string `json:"payment_method"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/pay", h.pay)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	var f orders.ListFilter
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := orders.ParseStatus(s)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		f.Status = st
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.ListOrders(ctx, f)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) pay(w http.ResponseWriter, r *http.Request) {
	var req PayReq
	if err := decodeJSON(r, &req); err != nil {
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

	o, err := h.Engine.Pay(ctx, chi.URLParam(r, "id"), pm)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	events{Pub: h.Pub, Service: h.Service, Log: h.Log}.orderCommitted(ctx, o)
	writeJSON(w, http.StatusOK, o)
}
