package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/address"
)

const (
	listAddressesSQL = `SELECT id, customer_id, type, name, street, city, state, pincode, phone, is_default
		FROM addresses WHERE customer_id = $1 ORDER BY is_default DESC, id`

	getAddressByIDSQL = `SELECT id, customer_id, type, name, street, city, state, pincode, phone, is_default
		FROM addresses WHERE id = $2 AND customer_id = $1`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// ListByCustomer returns the customer's address book, default address first.
func (r *AddressRepository) ListByCustomer(ctx context.Context, customerID string) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses for %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

// GetByID returns a single address, scoped to the requesting customer.
// Returns address.ErrNotFound for unknown ids and for addresses owned by
// another customer.
func (r *AddressRepository) GetByID(ctx context.Context, customerID, addressID string) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressByIDSQL, customerID, addressID)
	if err != nil {
		return nil, fmt.Errorf("getting address %q: %w", addressID, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("getting address %q: %w", addressID, err)
	}
	return &a, nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.CustomerID, &a.Type, &a.Name, &a.Street,
		&a.City, &a.State, &a.Pincode, &a.Phone, &a.IsDefault,
	)
	return a, err
}
