package store

import (
	"context"
	"errors"
	"fmt"

	"smartfit/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ProductNotFoundError is raised inside a commit when a cart line points
// at a sku that no longer exists in the ledger. The whole unit rolls back.
type ProductNotFoundError struct {
	SKU int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.SKU)
}

// InsufficientStockError is raised inside a commit when the live stock
// read under the transaction cannot cover a requested line. The whole
// unit rolls back; the caller surfaces it so the user can adjust the cart.
type InsufficientStockError struct {
	SKU       int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for sku %d: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

// StorageError wraps an underlying storage fault. Callers treat it as
// opaque and never retry automatically: a checkout write has side effects
// (stock deduction) and retrying without idempotency tracking risks
// double-deduction.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Repository is the persistence boundary: the stock ledger, the sale
// record store, and the client/staff records the checkout path touches.
// CommitSale composes ledger writes and sale-record inserts into one
// atomic unit.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, sku int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, sku int64) error

	ListClients(ctx context.Context) ([]domain.Client, error)
	GetClient(ctx context.Context, clientID int64) (*domain.Client, error)
	RegisterClient(ctx context.Context, client domain.Client) (*domain.Client, error)

	// CommitSale atomically re-validates stock against live state, deducts
	// it, and persists the sale header plus its line items. On any failure
	// every write in the unit is discarded and a typed error is returned:
	// *ProductNotFoundError, *InsufficientStockError, or *StorageError.
	CommitSale(ctx context.Context, draft domain.SaleDraft) (int64, error)

	// GetSaleHeader and GetSaleItems are two independent reads; sale
	// records are immutable once committed, so no shared snapshot is
	// needed between them.
	GetSaleHeader(ctx context.Context, saleID int64) (*domain.SaleHeaderView, error)
	GetSaleItems(ctx context.Context, saleID int64) ([]domain.SaleItemView, error)

	ListStaff(ctx context.Context) ([]domain.StaffAccount, error)
	GetStaffByUsername(ctx context.Context, username string) (*domain.StaffAccount, error)
	CreateStaff(ctx context.Context, staff domain.StaffAccount) error
	UpdateStaffPassword(ctx context.Context, username string, passHash string) error
}
