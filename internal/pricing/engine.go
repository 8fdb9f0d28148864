// Package pricing computes checkout totals. The engine is a pure
// function over the cart snapshot and a fresh price lookup; it keeps no
// state and writes nothing.
package pricing

import (
	"context"
	"errors"
	"math"

	"smartfit/backend/internal/domain"
	"smartfit/backend/internal/store"
)

// VoucherCode is the single promotional code the register accepts.
// Applying it grants a flat 5% on top of the tier discount.
const VoucherCode = "Jhapa5"

const voucherRate = 0.05

// TierRate maps a loyalty tier to its percentage discount.
func TierRate(tier domain.ClientTier) float64 {
	switch tier {
	case domain.TierGold:
		return 0.15
	case domain.TierSilver:
		return 0.10
	case domain.TierBronze:
		return 0.05
	default:
		return 0
	}
}

// PriceLookup reads live product prices at quote time. The repository
// satisfies it; quotes never trust prices captured when lines were added.
type PriceLookup interface {
	GetProduct(ctx context.Context, sku int64) (*domain.Product, error)
}

type Engine struct{}

// Quote prices a cart snapshot against live unit prices. Lines whose sku
// no longer resolves are skipped here; the commit path is the
// authoritative check and fails the whole sale on a missing product.
//
// subtotal is exact in cents. discount applies the summed tier and
// voucher rates to the subtotal and rounds once, so tier and voucher
// stack additively rather than compounding.
func (Engine) Quote(ctx context.Context, lines []domain.CartLine, prices PriceLookup, tier domain.ClientTier, voucherActive bool) (domain.Totals, error) {
	var subtotal int64
	for _, line := range lines {
		product, err := prices.GetProduct(ctx, line.Key.SKU)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return domain.Totals{}, err
		}
		subtotal += product.UnitPriceCents * int64(line.Qty)
	}

	rate := TierRate(tier)
	if voucherActive {
		rate += voucherRate
	}
	discount := int64(math.Round(float64(subtotal) * rate))

	return domain.Totals{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
	}, nil
}
