package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	"github.com/ariefcatur/icebay-pos/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CatalogStore interface {
	List(ctx context.Context) ([]catalog.Variety, error)
	Get(ctx context.Context, id string) (catalog.Variety, error)
	Create(ctx context.Context, v catalog.Variety) (catalog.Variety, error)
	Update(ctx context.Context, v catalog.Variety) (catalog.Variety, error)
	Delete(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id, expr string) (catalog.Variety, bool, error)
}

type SaleRecorder interface {
	QuickSale(ctx context.Context, varietyID string, qty int, pm orders.PaymentMethod) (orders.Order, error)
}

type CatalogHandler struct {
	Catalog CatalogStore
	Sales   SaleRecorder
	Pub     Publisher
	Service string
	Log     *slog.Logger
}

type VarietyReq struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Stock    int             `json:"stock"`
	Cost     decimal.Decimal `json:"cost"`
	Price    decimal.Decimal `json:"price"`
}

type VarietyResp struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Category  catalog.Category `json:"category"`
	Stock     int              `json:"stock"`
	Cost      decimal.Decimal  `json:"cost"`
	Price     decimal.Decimal  `json:"price"`
	Version   int              `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type StockReq struct {
	Expr  string `json:"expr"`
	Tally string `json:"tally,omitempty"`
}

type StockResp struct {
	Variety VarietyResp `json:"variety"`
	Changed bool        `json:"changed"`
}

type SaleReq struct {
	Qty           int    `json:"qty"`
	PaymentMethod string `json:"payment_method"`
}

func toVarietyResp(v catalog.Variety) VarietyResp {
	return VarietyResp{
		ID:        v.ID,
		Name:      v.Name,
		Category:  v.Category,
		Stock:     v.Stock,
		Cost:      fromCents(v.CostCents),
		Price:     fromCents(v.PriceCents),
		Version:   v.Version,
		UpdatedAt: v.UpdatedAt,
	}
}

func (req VarietyReq) variety(id string) (catalog.Variety, error) {
	cat, err := catalog.ParseCategory(req.Category)
	if err != nil {
		return catalog.Variety{}, err
	}
	cost, err := toCents("cost", req.Cost)
	if err != nil {
		return catalog.Variety{}, err
	}
	price, err := toCents("price", req.Price)
	if err != nil {
		return catalog.Variety{}, err
	}
	return catalog.Variety{
		ID:         id,
		Name:       strings.TrimSpace(req.Name),
		Category:   cat,
		Stock:      req.Stock,
		CostCents:  cost,
		PriceCents: price,
	}, nil
}

func (h *CatalogHandler) emitter() events {
	return events{Pub: h.Pub, Service: h.Service, Log: h.Log}
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/varieties", h.list)
	r.Post("/varieties", h.create)
	r.Get("/varieties/{id}", h.get)
	r.Put("/varieties/{id}", h.update)
	r.Delete("/varieties/{id}", h.remove)
	r.Post("/varieties/{id}/stock", h.adjustStock)
	r.Post("/varieties/{id}/sales", h.recordSale)
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	var f catalog.Filter
	if c := r.URL.Query().Get("category"); c != "" {
		cat, err := catalog.ParseCategory(c)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		f.Category = cat
	}
	f.Query = r.URL.Query().Get("q")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	vs, err := h.Catalog.List(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out := make([]VarietyResp, 0, len(vs))
	for _, v := range f.Apply(vs) {
		out = append(out, toVarietyResp(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Catalog.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toVarietyResp(v))
}

func (h *CatalogHandler) create(w http.ResponseWriter, r *http.Request) {
	var req VarietyReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	v, err := req.variety("")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	v, err = h.Catalog.Create(ctx, v)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVarietyResp(v))
}

func (h *CatalogHandler) update(w http.ResponseWriter, r *http.Request) {
	var req VarietyReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	v, err := req.variety(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	v, err = h.Catalog.Update(ctx, v)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toVarietyResp(v))
}

func (h *CatalogHandler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Catalog.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// adjustStock accepts either a delta expression ("+5", "-2", "12") or a
// stock-sheet tally ("5+7+5+8(25)") which sets the stock to its total.
// An expression that does not parse leaves the stock unchanged.
func (h *CatalogHandler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req StockReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	expr := req.Expr
	if req.Tally != "" {
		n, ok := catalog.ParseTally(req.Tally)
		if !ok {
			writeError(w, r, h.Log, invalid("unreadable tally %q", req.Tally))
			return
		}
		expr = strconv.Itoa(n)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	v, changed, err := h.Catalog.AdjustStock(ctx, id, expr)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if changed {
		h.emitter().emit(ctx, orders.TopicStockAdjusted, orders.EventStockAdjusted, v.ID,
			orders.StockAdjustedPayload{VarietyID: v.ID, Expr: expr, Stock: v.Stock})
	}
	writeJSON(w, http.StatusOK, StockResp{Variety: toVarietyResp(v), Changed: changed})
}

func (h *CatalogHandler) recordSale(w http.ResponseWriter, r *http.Request) {
	var req SaleReq
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

	o, err := h.Sales.QuickSale(ctx, chi.URLParam(r, "id"), req.Qty, pm)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.emitter().orderCommitted(ctx, o)
	writeJSON(w, http.StatusCreated, o)
}
