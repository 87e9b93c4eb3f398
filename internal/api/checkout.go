package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Nandusuresh61/fabrico-checkout/internal/checkout"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/coupon"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/order"
	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/payment"
)

type addressDTO struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Phone     string `json:"phone"`
	IsDefault bool   `json:"is_default"`
}

type couponDTO struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	Description    string          `json:"description,omitempty"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
}

type quoteDTO struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Coupon   *couponDTO      `json:"coupon,omitempty"`
}

type paymentDTO struct {
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Key            string          `json:"key"`
	Prefill        contactDTO      `json:"prefill"`
}

type contactDTO struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type orderItemDTO struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type orderDTO struct {
	OrderID   string          `json:"order_id"`
	Status    string          `json:"status"`
	Method    string          `json:"payment_method"`
	Items     []orderItemDTO  `json:"items,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

func toCouponDTO(c coupon.Coupon) couponDTO {
	return couponDTO{
		Code:           c.Code,
		DiscountType:   string(c.DiscountType),
		DiscountValue:  c.DiscountValue,
		MinOrderAmount: c.MinOrderAmount,
		Description:    c.Description,
		EndDate:        c.EndDate,
	}
}

func toPaymentDTO(in *payment.CheckoutIntent) *paymentDTO {
	if in == nil {
		return nil
	}
	return &paymentDTO{
		GatewayOrderID: in.GatewayOrderID,
		Amount:         in.Amount,
		Currency:       in.Currency,
		Key:            in.Key,
		Prefill: contactDTO{
			Name:  in.Customer.Name,
			Email: in.Customer.Email,
			Phone: in.Customer.Phone,
		},
	}
}

func toOrderDTO(o *order.Order, withItems bool) orderDTO {
	dto := orderDTO{
		OrderID:   o.ID,
		Status:    string(o.Status),
		Method:    string(o.Method),
		Subtotal:  o.Subtotal,
		Shipping:  o.Shipping,
		Discount:  o.Discount,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
	}
	if withItems {
		for _, it := range o.Items {
			dto.Items = append(dto.Items, orderItemDTO{
				ProductID: it.ProductID,
				VariantID: it.VariantID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
			})
		}
	}
	return dto
}

// ListAddresses returns the customer's address book.
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	cust := customerID(r)
	if cust == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "missing_customer", "X-Customer-ID header is required")
		return
	}

	addrs, err := h.svc.Addresses(r.Context(), cust)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	out := make([]addressDTO, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, addressDTO{
			ID: a.ID, Type: string(a.Type), Name: a.Name,
			Street: a.Street, City: a.City, State: a.State,
			Pincode: a.Pincode, Phone: a.Phone, IsDefault: a.IsDefault,
		})
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]any{"addresses": out})
}

// ListCoupons returns the coupons currently inside their validity window.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.svc.AvailableCoupons(r.Context())
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	out := make([]couponDTO, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, toCouponDTO(c))
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]any{"coupons": out})
}

type validateCouponRequest struct {
	Code string `json:"code"`
}

// ValidateCoupon applies a coupon code to the customer's live cart and
// returns the discounted quote. An empty code quotes the cart without a
// coupon, which is how a coupon is removed.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	cust := customerID(r)
	if cust == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "missing_customer", "X-Customer-ID header is required")
		return
	}

	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	q, err := h.svc.ApplyCoupon(r.Context(), cust, req.Code)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	dto := quoteDTO{
		Subtotal: q.Totals.Subtotal,
		Shipping: q.Totals.Shipping,
		Discount: q.Discount,
		Total:    q.Totals.Total,
	}
	if q.Coupon != nil {
		c := toCouponDTO(*q.Coupon)
		dto.Coupon = &c
	}
	respondJSON(r.Context(), w, http.StatusOK, dto)
}

type placeOrderRequest struct {
	AddressID     string `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
	CouponCode    string `json:"coupon_code,omitempty"`
	Email         string `json:"email,omitempty"`
}

type placeOrderResponse struct {
	OrderID string          `json:"order_id"`
	Status  string          `json:"status"`
	Total   decimal.Decimal `json:"total"`
	Payment *paymentDTO     `json:"payment,omitempty"`
}

// PlaceOrder runs the full checkout sequence against the customer's
// live cart.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	cust := customerID(r)
	if cust == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "missing_customer", "X-Customer-ID header is required")
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := h.svc.PlaceOrder(r.Context(), checkout.PlaceOrderRequest{
		CustomerID:    cust,
		CustomerEmail: req.Email,
		AddressID:     req.AddressID,
		Method:        order.Method(req.PaymentMethod),
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(r.Context(), w, http.StatusCreated, placeOrderResponse{
		OrderID: res.Order.ID,
		Status:  string(res.Order.Status),
		Total:   res.Order.Total,
		Payment: toPaymentDTO(res.Payment),
	})
}

type verifyPaymentRequest struct {
	OrderID          string `json:"order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	Signature        string `json:"signature"`
}

// VerifyPayment handles the widget's completion callback, verifying the
// gateway signature and settling the order.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.OrderID == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid_request", "order_id is required")
		return
	}

	if err := h.svc.CompletePayment(r.Context(), req.OrderID, req.GatewayPaymentID, req.GatewayOrderID, req.Signature); err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]any{
		"success":  true,
		"order_id": req.OrderID,
	})
}

type dismissPaymentRequest struct {
	OrderID string `json:"order_id"`
}

// DismissPayment handles the user closing the widget without paying.
// The order stays pending and retryable.
func (h *Handler) DismissPayment(w http.ResponseWriter, r *http.Request) {
	var req dismissPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid_request", "order_id is required")
		return
	}

	if err := h.svc.DismissPayment(r.Context(), req.OrderID); err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]any{
		"order_id":  req.OrderID,
		"retryable": true,
	})
}

type retryPaymentRequest struct {
	Email string `json:"email,omitempty"`
}

// RetryPayment opens a fresh gateway handshake for a pending order. The
// body is optional; an email, when sent, prefills the widget again.
func (h *Handler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req retryPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	intent, err := h.svc.RetryPayment(r.Context(), orderID, req.Email)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]any{
		"order_id": intent.OrderID,
		"payment":  toPaymentDTO(intent),
	})
}

// GetOrder returns a placed order for the confirmation and retry screens.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Order(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toOrderDTO(o, true))
}
