package memory

import (
	"context"
	"errors"
	"testing"

	"smartfit/backend/internal/domain"
	"smartfit/backend/internal/store"
)

func TestCommitSalePersistsHeaderAndItems(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	clientID := int64(2)
	saleID, err := s.CommitSale(ctx, domain.SaleDraft{
		StaffID:  1,
		ClientID: &clientID,
		Lines: []domain.CartLine{
			{Key: domain.VariantKey{SKU: 1, Size: "M"}, Qty: 2},
			{Key: domain.VariantKey{SKU: 3, Size: "40"}, Qty: 1},
		},
		SubtotalCents: 17999,
		DiscountCents: 2700,
		TotalCents:    15299,
		PaymentMethod: "Cash",
	})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	header, err := s.GetSaleHeader(ctx, saleID)
	if err != nil {
		t.Fatalf("get header failed: %v", err)
	}
	if header.ClientName != "Jane Smith" || header.StaffName != "Nitesh" {
		t.Fatalf("expected names joined in, got %+v", header)
	}

	items, err := s.GetSaleItems(ctx, saleID)
	if err != nil {
		t.Fatalf("get items failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].SoldAtPriceCents != 4500 || items[1].SoldAtPriceCents != 8999 {
		t.Fatalf("expected live prices captured, got %+v", items)
	}
}

func TestCommitSaleFailureLeavesNoPartialState(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CommitSale(ctx, domain.SaleDraft{
		StaffID: 1,
		Lines: []domain.CartLine{
			{Key: domain.VariantKey{SKU: 1, Size: "M"}, Qty: 2},
			{Key: domain.VariantKey{SKU: 3, Size: "40"}, Qty: 999},
		},
		PaymentMethod: "Cash",
	})
	var stockErr *store.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	// First line's stock untouched; no sale record exists.
	product, err := s.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.QtyInStock != 40 {
		t.Fatalf("expected stock 40, got %d", product.QtyInStock)
	}
	if _, err := s.GetSaleHeader(ctx, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no sale header, got %v", err)
	}
}

func TestCommitSaleAggregatesSizesAgainstSharedStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	product, err := s.GetProduct(ctx, 2)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	product.QtyInStock = 3
	if _, err := s.UpdateProduct(ctx, *product); err != nil {
		t.Fatalf("update product failed: %v", err)
	}

	_, err = s.CommitSale(ctx, domain.SaleDraft{
		StaffID: 1,
		Lines: []domain.CartLine{
			{Key: domain.VariantKey{SKU: 2, Size: "M"}, Qty: 2},
			{Key: domain.VariantKey{SKU: 2, Size: "XL"}, Qty: 2},
		},
		PaymentMethod: "Cash",
	})
	var stockErr *store.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected aggregate demand to exceed stock, got %v", err)
	}
	if stockErr.Requested != 4 || stockErr.Available != 3 {
		t.Fatalf("unexpected error detail: %+v", stockErr)
	}
}

func TestCommitSaleMissingProduct(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CommitSale(ctx, domain.SaleDraft{
		StaffID: 1,
		Lines: []domain.CartLine{
			{Key: domain.VariantKey{SKU: 99, Size: "M"}, Qty: 1},
		},
		PaymentMethod: "Cash",
	})
	var missingErr *store.ProductNotFoundError
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected ProductNotFoundError, got %v", err)
	}
	if missingErr.SKU != 99 {
		t.Fatalf("expected sku 99, got %d", missingErr.SKU)
	}
}

func TestProductCRUDAssignsSequentialSKUs(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	created, err := s.CreateProduct(ctx, domain.Product{Name: "Denim Jacket", Category: "Tops", UnitPriceCents: 7999, QtyInStock: 5})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.SKU != 5 {
		t.Fatalf("expected sku 5 after the four seeds, got %d", created.SKU)
	}

	if err := s.DeleteProduct(ctx, created.SKU); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.GetProduct(ctx, created.SKU); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
