package services

// DefaultAffiliateRate is the platform-wide commission percentage
// applied when a product has no affiliate rate of its own.
const DefaultAffiliateRate = 20

// DefaultMinOrderAmount is the smallest payable order total, in minor
// currency units.
const DefaultMinOrderAmount = 100

// PricingLine is one cart line as seen by the calculator: the unit
// price snapshot from the cart plus the authoritative product's
// affiliate rate (nil falls back to DefaultAffiliateRate).
type PricingLine struct {
	UnitPrice     int // minor units
	Quantity      int
	AffiliateRate *int // integer percent
}

// OrderTotal sums unit price times quantity across all lines. All
// money is integer minor units, so the sum is exact.
func OrderTotal(lines []PricingLine) int {
	total := 0
	for _, line := range lines {
		total += line.UnitPrice * line.Quantity
	}
	return total
}

// LineCommission computes the commission for a single line:
// round(unitPrice * quantity * rate / 100), rounding half up. Rounding
// happens per line, before summing, so each accrual stays auditable on
// its own.
func LineCommission(line PricingLine) int {
	rate := DefaultAffiliateRate
	if line.AffiliateRate != nil {
		rate = *line.AffiliateRate
	}
	return (line.UnitPrice*line.Quantity*rate + 50) / 100
}

// TotalCommission sums per-line commissions. Lines are rounded first
// and summed after; summing raw products and rounding once can differ
// by a minor unit on multi-item orders, and the per-line order is the
// documented contract.
func TotalCommission(lines []PricingLine) int {
	total := 0
	for _, line := range lines {
		total += LineCommission(line)
	}
	return total
}

// DiscountFor computes the discount a coupon grants on a total, in
// minor units, clamped so the payable amount never goes negative.
func DiscountFor(couponType string, value, total int) int {
	var discount int
	switch couponType {
	case "percentage":
		discount = (total*value + 50) / 100
	case "flat":
		discount = value
	default:
		return 0
	}
	if discount > total {
		discount = total
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
