package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Nandusuresh61/fabrico-checkout/internal/checkout"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/order"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/payment"
)

// ErrorResponse is the JSON body for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	// OrderID is set when the error left a retryable order behind, so
	// the client can route to the retry screen.
	OrderID string `json:"order_id,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zctx.From(ctx).Error("encode response", zap.Error(err))
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	respondJSON(ctx, w, status, ErrorResponse{Error: message, Code: code})
}

// respondDomainError maps a checkout error onto the HTTP surface using
// the error taxonomy. Unrecognized errors become opaque 500s; the cause
// is logged, not leaked.
func respondDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var startErr *checkout.PaymentStartError
	if errors.As(err, &startErr) {
		respondJSON(ctx, w, http.StatusBadGateway, ErrorResponse{
			Error:   "payment could not be started, order is awaiting payment",
			Code:    "payment_start_failed",
			OrderID: startErr.OrderID,
		})
		return
	}

	switch {
	case errors.Is(err, checkout.ErrOperationInFlight):
		respondError(ctx, w, http.StatusConflict, "operation_in_flight", err.Error())
	case errors.Is(err, order.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, payment.ErrSessionNotFound):
		respondError(ctx, w, http.StatusNotFound, "session_not_found", err.Error())
	default:
		switch checkout.Classify(err) {
		case checkout.KindValidation:
			respondError(ctx, w, http.StatusBadRequest, "validation_failed", err.Error())
		case checkout.KindCouponInvalid:
			respondError(ctx, w, http.StatusBadRequest, "invalid_coupon", err.Error())
		case checkout.KindOutOfStock:
			respondError(ctx, w, http.StatusConflict, "out_of_stock", err.Error())
		case checkout.KindPaymentFailed:
			respondError(ctx, w, http.StatusPaymentRequired, "payment_failed", err.Error())
		default:
			zctx.From(ctx).Error("internal error", zap.Error(err))
			respondError(ctx, w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
	}
}
