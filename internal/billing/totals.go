package billing

import (
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// Totals is the money breakdown of a bill, all in minor units.
type Totals struct {
	Subtotal      int64
	Discount      int64
	ServiceCharge int64
	Tax           int64
	Total         int64
}

// DiscountFor resolves a percentage or fixed discount against subtotal.
// Only one of the two may be given and a fixed amount cannot exceed the subtotal.
func DiscountFor(subtotal int64, percent *float64, amount int64) (int64, error) {
	switch {
	case percent != nil && amount > 0:
		return 0, utils.Validation("give either discount_percent or discount_amount, not both")
	case percent != nil:
		if *percent < 0 || *percent > 100 {
			return 0, utils.Validation("discount_percent must be between 0 and 100")
		}
		return utils.PercentOf(subtotal, *percent), nil
	case amount < 0:
		return 0, utils.Validation("discount_amount cannot be negative")
	case amount > subtotal:
		return 0, utils.Validation("discount %s exceeds subtotal %s", utils.FormatMoney(amount), utils.FormatMoney(subtotal))
	default:
		return amount, nil
	}
}

// Compute applies the discount, then service charge (dine-in only) and tax on
// the discounted amount. Tax also covers the service charge.
func Compute(subtotal, discount int64, orderType string, settings models.Settings) Totals {
	t := Totals{Subtotal: subtotal, Discount: discount}
	base := subtotal - discount
	if orderType == models.OrderTypeDineIn {
		t.ServiceCharge = utils.PercentOf(base, settings.ServiceChargeRate)
	}
	t.Tax = utils.PercentOf(base+t.ServiceCharge, settings.TaxRate)
	t.Total = base + t.ServiceCharge + t.Tax
	return t
}
