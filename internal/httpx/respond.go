package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	"github.com/ariefcatur/icebay-pos/internal/orders"
	"github.com/ariefcatur/icebay-pos/internal/redisx"
	"github.com/go-chi/chi/v5/middleware"
)

// errInvalidInput marks request bodies and query strings that fail
// validation before any domain code runs.
var errInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidInput, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return invalid("invalid json")
	}
	return nil
}

// statusFor maps an error to its HTTP status. Anything unrecognised came
// from a backing store.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrInsufficientStock),
		errors.Is(err, orders.ErrOrderLocked),
		errors.Is(err, catalog.ErrStockConflict),
		errors.Is(err, redisx.ErrCartBusy),
		errors.Is(err, redisx.ErrIdempotencyInFlight):
		return http.StatusConflict
	case errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrInvalidPaymentMethod),
		errors.Is(err, orders.ErrPaymentMethodRequired),
		errors.Is(err, catalog.ErrInvalidVariety),
		errors.Is(err, catalog.ErrInvalidCategory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrLineNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, redisx.ErrCartNotFound):
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

type errorResp struct {
	Error     string `json:"error"`
	VarietyID string `json:"variety_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	code := statusFor(err)
	resp := errorResp{Error: err.Error()}

	var ise *orders.InsufficientStockError
	if errors.As(err, &ise) {
		resp.VarietyID, resp.Requested, resp.Available = ise.VarietyID, ise.Requested, &ise.Available
	}
	if code == http.StatusServiceUnavailable {
		if log != nil {
			log.Error("request failed", "method", r.Method, "path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()), "err", err)
		}
		resp.Error = orders.ErrStoreUnavailable.Error()
	}
	writeJSON(w, code, resp)
}
