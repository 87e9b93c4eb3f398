package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/payment"
)

const (
	createPaymentSessionSQL = `INSERT INTO payment_sessions (order_id, gateway_order_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5)`

	updatePaymentSessionSQL = `UPDATE payment_sessions
		SET status = $3, gateway_payment_id = NULLIF($4, ''), updated_at = now()
		WHERE order_id = $1 AND gateway_order_id = $2`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository persists payment sessions backed by PostgreSQL. One
// row exists per gateway handshake attempt, so a retried order keeps its
// failed attempts on record.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// CreateSession records a new handshake attempt in pending state.
func (r *PaymentRepository) CreateSession(ctx context.Context, s *payment.Session) error {
	_, err := r.pool.Exec(ctx, createPaymentSessionSQL,
		s.OrderID, s.GatewayOrderID, s.Amount, s.Currency, payment.SessionPending,
	)
	if err != nil {
		return fmt.Errorf("creating payment session for order %q: %w", s.OrderID, err)
	}
	return nil
}

// UpdateStatus moves a handshake attempt to the given status, recording
// the gateway payment id once one exists.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, orderID, gatewayOrderID string, status payment.SessionStatus, gatewayPaymentID string) error {
	_, err := r.pool.Exec(ctx, updatePaymentSessionSQL,
		orderID, gatewayOrderID, status, gatewayPaymentID,
	)
	if err != nil {
		return fmt.Errorf("updating payment session for order %q: %w", orderID, err)
	}
	return nil
}
