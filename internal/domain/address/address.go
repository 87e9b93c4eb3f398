package address

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when an address does not exist or does not
// belong to the requesting customer.
var ErrNotFound = errors.New("address not found")

// Type distinguishes delivery address kinds.
type Type string

const (
	TypeHome Type = "home"
	TypeWork Type = "work"
)

// Address is a customer delivery address. At most one address per
// customer carries IsDefault, enforced by the store.
type Address struct {
	ID         string
	CustomerID string
	Type       Type
	Name       string
	Street     string
	City       string
	State      string
	Pincode    string
	Phone      string
	IsDefault  bool
}

// Repository provides read access to the customer address book.
type Repository interface {
	ListByCustomer(ctx context.Context, customerID string) ([]Address, error)
	GetByID(ctx context.Context, customerID, addressID string) (*Address, error)
}
