package payments

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CommissionInput carries whole-rupee order figures and the gateway's fee and
// tax in paise.
type CommissionInput struct {
	OrderTotal      int64
	PlatformFee     int64
	CommissionRate  int64
	GatewayFeeMinor int64
	GatewayTaxMinor int64
}

// CommissionBreakdown is the platform's cut of one paid order, in whole rupees.
type CommissionBreakdown struct {
	PlatformFee    int64
	CommissionRate int64
	CommissionFee  int64
	GatewayFee     int64
	GatewayTax     int64
	NetEarnings    int64
}

// CalculateCommission rounds every fractional rupee up. The gateway charges are
// converted from paise before they are netted off.
func CalculateCommission(in CommissionInput) (CommissionBreakdown, error) {
	if in.OrderTotal < 0 || in.PlatformFee < 0 || in.GatewayFeeMinor < 0 || in.GatewayTaxMinor < 0 {
		return CommissionBreakdown{}, fmt.Errorf("commission inputs must not be negative")
	}
	if in.CommissionRate < 0 || in.CommissionRate > 100 {
		return CommissionBreakdown{}, fmt.Errorf("commission rate %d out of range", in.CommissionRate)
	}

	fee := decimal.NewFromInt(in.OrderTotal).
		Mul(decimal.NewFromInt(in.CommissionRate)).
		Div(hundred).
		Ceil()
	gwFee := minorToMajorCeil(in.GatewayFeeMinor)
	gwTax := minorToMajorCeil(in.GatewayTaxMinor)

	net := decimal.NewFromInt(in.PlatformFee).Add(fee).Sub(gwFee).Sub(gwTax)

	return CommissionBreakdown{
		PlatformFee:    in.PlatformFee,
		CommissionRate: in.CommissionRate,
		CommissionFee:  fee.IntPart(),
		GatewayFee:     gwFee.IntPart(),
		GatewayTax:     gwTax.IntPart(),
		NetEarnings:    net.IntPart(),
	}, nil
}

func minorToMajorCeil(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred).Ceil()
}
