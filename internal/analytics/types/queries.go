package types

import "time"

// MarketplaceQueryRequest scopes an admin dashboard query. An empty
// StationaryID or CollegeID leaves that dimension unfiltered.
type MarketplaceQueryRequest struct {
	StationaryID string
	CollegeID    string
	Start        time.Time
	End          time.Time
}

// TimeSeriesPoint describes a single date/value pair returned by the query service.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// LabelValue is one top-N entry.
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// MarketplaceQueryResponse wraps the platform KPIs for the admin dashboard.
type MarketplaceQueryResponse struct {
	OrdersSeries       []TimeSeriesPoint `json:"orders"`
	PaidRevenue        []TimeSeriesPoint `json:"paidRevenue"`
	CommissionSeries   []TimeSeriesPoint `json:"commission"`
	ExpiredSeries      []TimeSeriesPoint `json:"expired"`
	TopShops           []LabelValue      `json:"topShops"`
	AOV                float64           `json:"aov"`
	NewCustomers       int64             `json:"newCustomers"`
	ReturningCustomers int64             `json:"returningCustomers"`
}
