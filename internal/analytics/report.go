package analytics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

const (
	DefaultPeriodDays = 30
	MaxPeriodDays     = 365
	recentOrderLimit  = 10
)

// OwnerReport is the shop dashboard over DELIVERED orders in a trailing window.
type OwnerReport struct {
	Overview     ReportOverview `json:"overview"`
	Revenue      RevenueStats   `json:"revenue"`
	Customers    CustomerStats  `json:"customers"`
	RecentOrders []RecentOrder  `json:"recentOrders"`
}

type ReportOverview struct {
	ShopName   string `json:"shopName"`
	ShopStatus string `json:"shopStatus"`
	ReportDays int    `json:"reportDays"`
}

type RevenueStats struct {
	Total      int64  `json:"total"`
	Formatted  string `json:"formatted"`
	Average    int64  `json:"average"`
	OrderCount int    `json:"orderCount"`
}

type CustomerStats struct {
	Total        int   `json:"total"`
	AverageSpend int64 `json:"averageSpend"`
}

type RecentOrder struct {
	ID       uuid.UUID `json:"id"`
	Customer string    `json:"customer"`
	Amount   int64     `json:"amount"`
	Date     time.Time `json:"date"`
}

// ParsePeriod reads the ?period= query value. Empty means the default window.
func ParsePeriod(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPeriodDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > MaxPeriodDays {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("period must be between 1 and %d days", MaxPeriodDays))
	}
	return days, nil
}

// BuildOwnerReport aggregates delivered orders. Averages round half up to
// whole rupees; orders must already be sorted newest first.
func BuildOwnerReport(shop *models.Stationary, orders []models.Order, days int) OwnerReport {
	var total int64
	customers := make(map[uuid.UUID]struct{}, len(orders))
	for _, o := range orders {
		total += o.TotalPrice
		customers[o.UserID] = struct{}{}
	}

	status := "Inactive"
	if shop.IsActive {
		status = "Active"
	}

	report := OwnerReport{
		Overview: ReportOverview{
			ShopName:   shop.Name,
			ShopStatus: status,
			ReportDays: days,
		},
		Revenue: RevenueStats{
			Total:      total,
			Formatted:  fmt.Sprintf("₹%d", total),
			Average:    roundedRatio(total, int64(days)),
			OrderCount: len(orders),
		},
		Customers: CustomerStats{
			Total:        len(customers),
			AverageSpend: roundedRatio(total, int64(len(customers))),
		},
		RecentOrders: []RecentOrder{},
	}

	for i, o := range orders {
		if i == recentOrderLimit {
			break
		}
		name := ""
		if o.Customer != nil {
			name = o.Customer.Name
		}
		report.RecentOrders = append(report.RecentOrders, RecentOrder{
			ID:       o.ID,
			Customer: name,
			Amount:   o.TotalPrice,
			Date:     o.CreatedAt,
		})
	}
	return report
}

func roundedRatio(num, den int64) int64 {
	if den <= 0 {
		return 0
	}
	return decimal.NewFromInt(num).Div(decimal.NewFromInt(den)).Round(0).IntPart()
}
