package domain

import (
	"fmt"
	"time"
)

// SizeNone marks a product variant that has no size dimension.
const SizeNone = "N/A"

// VariantKey identifies the unit a customer chooses: a sku plus a size.
// Stock is tracked per sku only, so two keys with the same SKU draw from
// the same pool. The key is a struct on purpose: the pairing must survive
// serialization losslessly, never a "sku_size" string to be re-parsed.
type VariantKey struct {
	SKU  int64  `json:"sku"`
	Size string `json:"size"`
}

func (k VariantKey) String() string {
	return fmt.Sprintf("%d (%s)", k.SKU, k.Size)
}

type Product struct {
	SKU            int64  `json:"sku"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	QtyInStock     int    `json:"qty_in_stock"`
	Details        string `json:"details,omitempty"`
}

// SizesForCategory returns the size options offered on the product grid.
// Shoes carry numeric sizes, everything else the apparel run.
func SizesForCategory(category string) []string {
	if category == "Shoes" {
		return []string{"36", "38", "40", "42"}
	}
	return []string{"M", "L", "XL"}
}

// ProductView is a grid entry: the product plus its selectable sizes.
type ProductView struct {
	Product
	Sizes []string `json:"sizes"`
}

type ProductCreateRequest struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	QtyInStock     int    `json:"qty_in_stock"`
	Details        string `json:"details"`
}

type ProductUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	Category       *string `json:"category,omitempty"`
	UnitPriceCents *int64  `json:"unit_price_cents,omitempty"`
	QtyInStock     *int    `json:"qty_in_stock,omitempty"`
	Details        *string `json:"details,omitempty"`
}

// ClientTier is the loyalty classification driving the percentage discount.
type ClientTier string

const (
	TierRegular ClientTier = "Regular"
	TierBronze  ClientTier = "Bronze"
	TierSilver  ClientTier = "Silver"
	TierGold    ClientTier = "Gold"
)

func (t ClientTier) Valid() bool {
	switch t {
	case TierRegular, TierBronze, TierSilver, TierGold:
		return true
	}
	return false
}

type Client struct {
	ID       int64      `json:"client_id"`
	FullName string     `json:"full_name"`
	Contact  string     `json:"contact_no"`
	Email    string     `json:"email_addr"`
	Tier     ClientTier `json:"client_type"`
}

type ClientCreateRequest struct {
	FullName string     `json:"full_name"`
	Contact  string     `json:"contact_no"`
	Email    string     `json:"email_addr"`
	Tier     ClientTier `json:"client_type"`
}

// CartLine is one snapshot entry handed to pricing and commit.
type CartLine struct {
	Key VariantKey `json:"key"`
	Qty int        `json:"qty"`
}

// Totals is the output of a pricing quote. All amounts are cents.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// SaleDraft is everything the transaction processor needs to commit a
// sale as one atomic unit. Totals arrive precomputed from the quote; the
// processor re-validates stock and re-reads prices itself.
type SaleDraft struct {
	StaffID       int64
	ClientID      *int64
	Lines         []CartLine
	SubtotalCents int64
	DiscountCents int64
	TotalCents    int64
	PaymentMethod string
}

// SaleHeaderView is a persisted sale header with display names joined in.
type SaleHeaderView struct {
	SaleID        int64     `json:"sale_id"`
	StaffID       int64     `json:"staff_id"`
	StaffName     string    `json:"staff_name"`
	ClientID      *int64    `json:"client_id,omitempty"`
	ClientName    string    `json:"client_name"`
	SubtotalCents int64     `json:"subtotal_cents"`
	DiscountCents int64     `json:"discount_cents"`
	TotalCents    int64     `json:"total_cents"`
	PaymentMethod string    `json:"payment_method"`
	SaleDate      time.Time `json:"sale_date"`
}

// SaleItemView is a persisted sale line with the product name joined in.
// SoldAtPriceCents is the unit price read inside the commit transaction,
// immutable even if the product is repriced later.
type SaleItemView struct {
	LineID           int64  `json:"line_id"`
	SaleID           int64  `json:"sale_id"`
	SKU              int64  `json:"sku"`
	Name             string `json:"name"`
	Qty              int    `json:"qty"`
	ItemSize         string `json:"item_size"`
	SoldAtPriceCents int64  `json:"sold_at_price_cents"`
}

// Receipt is a fully reconstructed sale ready for display.
type Receipt struct {
	Header SaleHeaderView `json:"header"`
	Items  []SaleItemView `json:"items"`
	Text   string         `json:"text"`
}

type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type CheckoutResponse struct {
	SaleID        int64  `json:"sale_id"`
	SubtotalCents int64  `json:"subtotal_cents"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
	PaymentMethod string `json:"payment_method"`
	SaleDate      string `json:"sale_date"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// QuoteResponse is the order summary shown while a session is open.
type QuoteResponse struct {
	Totals
	Lines         []CartLine `json:"lines"`
	ItemCount     int        `json:"item_count"`
	ClientID      *int64     `json:"client_id,omitempty"`
	Tier          ClientTier `json:"client_type,omitempty"`
	VoucherActive bool       `json:"voucher_active"`
}

type AddItemRequest struct {
	SKU  int64  `json:"sku"`
	Size string `json:"size"`
}

type SetQuantityRequest struct {
	SKU  int64  `json:"sku"`
	Size string `json:"size"`
	Qty  int    `json:"qty"`
}

type SelectClientRequest struct {
	ClientID int64 `json:"client_id"`
}

type VoucherRequest struct {
	Code string `json:"code"`
}

type VoucherResponse struct {
	Active bool `json:"active"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor is the authenticated staff member acting on a request.
type Actor struct {
	Username string
	Role     string
}

// StaffAccount is the internal persistence model for staff credentials.
type StaffAccount struct {
	ID          int64
	Username    string
	PassHash    string
	Role        string
	DisplayName string
}

const (
	RoleManager   = "manager"
	RoleAssociate = "associate"
)

// FormatCents renders a cent amount as a 2-decimal money string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
