package checkout

import (
	"fmt"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/enums"
)

// Totals splits what the shop sees from what the customer is charged.
// TotalPrice excludes the platform fee; GrandTotal includes it.
type Totals struct {
	Gross       int64 `json:"gross"`
	DeliveryFee int64 `json:"deliveryFee"`
	TotalPrice  int64 `json:"totalPrice"`
	PlatformFee int64 `json:"platformFee"`
	GrandTotal  int64 `json:"grandTotal"`
}

// AmountMinor is the grand total in paise, the unit the gateway charges in.
func (t Totals) AmountMinor() int64 {
	return t.GrandTotal * 100
}

// Quote prices a cart. prices are the line prices of each item.
func Quote(prices []int64, orderType enums.OrderType, fees config.FeesConfig) (Totals, error) {
	if !orderType.IsValid() {
		return Totals{}, fmt.Errorf("invalid order type %q", orderType)
	}
	var totals Totals
	for _, price := range prices {
		if price < 0 {
			return Totals{}, fmt.Errorf("negative item price %d", price)
		}
		totals.Gross += price
	}
	if orderType == enums.OrderTypeDelivery {
		totals.DeliveryFee = fees.DeliveryFee
	}
	totals.TotalPrice = totals.Gross + totals.DeliveryFee
	totals.PlatformFee = fees.PlatformFee
	totals.GrandTotal = totals.TotalPrice + totals.PlatformFee
	return totals, nil
}
