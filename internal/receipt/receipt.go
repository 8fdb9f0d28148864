// Package receipt renders a committed sale as fixed-width register text.
package receipt

import (
	"fmt"
	"strings"

	"smartfit/backend/internal/domain"
)

const rule = "=========================================="
const thinRule = "------------------------------------------"

// Render builds the printable receipt for a retrieved sale. The output
// is deterministic for a given header and item set, which is what makes
// receipts safe to cache by sale id.
func Render(header domain.SaleHeaderView, items []domain.SaleItemView) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "           SMARTFIT POS SYSTEM\n")
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Receipt ID: %d\n", header.SaleID)
	fmt.Fprintf(&b, "Date:       %s\n", header.SaleDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Staff:      %s\n", header.StaffName)
	fmt.Fprintf(&b, "Client:     %s\n", header.ClientName)
	fmt.Fprintf(&b, "Payment:    %s\n", header.PaymentMethod)
	fmt.Fprintf(&b, "%s\n", thinRule)
	fmt.Fprintf(&b, "ITEM                      QTY  PRICE\n")
	fmt.Fprintf(&b, "%s\n", thinRule)

	for _, item := range items {
		name := fmt.Sprintf("%s (%s)", item.Name, item.ItemSize)
		if len(name) > 25 {
			name = name[:25]
		}
		fmt.Fprintf(&b, "%-25s x%-3d $%s\n", name, item.Qty, domain.FormatCents(item.SoldAtPriceCents))
	}

	fmt.Fprintf(&b, "%s\n", thinRule)
	fmt.Fprintf(&b, "Subtotal:   $%s\n", domain.FormatCents(header.SubtotalCents))
	fmt.Fprintf(&b, "Discount:  -$%s\n", domain.FormatCents(header.DiscountCents))
	fmt.Fprintf(&b, "%s\n", thinRule)
	fmt.Fprintf(&b, "TOTAL:      $%s\n", domain.FormatCents(header.TotalCents))
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Thank you for shopping!\n")

	return b.String()
}
