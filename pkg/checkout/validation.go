package checkout

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

// ShopCheck is what checkout knows about the customer and the chosen shop.
type ShopCheck struct {
	CustomerCollegeID uuid.UUID
	ShopCollegeID     uuid.UUID
	ShopActive        bool
	CanDeliver        bool
	OrderType         enums.OrderType
	DeliveryAddress   string
}

// Violation names one unmet checkout precondition.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidateShop collects every unmet precondition into one validation error.
func ValidateShop(in ShopCheck) error {
	var violations []Violation
	if in.CustomerCollegeID != in.ShopCollegeID {
		violations = append(violations, Violation{Field: "stationaryId", Reason: "shop is not in your college"})
	}
	if !in.ShopActive {
		violations = append(violations, Violation{Field: "stationaryId", Reason: "shop is not accepting orders"})
	}
	switch in.OrderType {
	case enums.OrderTypeTakeaway:
	case enums.OrderTypeDelivery:
		if !in.CanDeliver {
			violations = append(violations, Violation{Field: "orderType", Reason: "shop does not deliver"})
		}
		if strings.TrimSpace(in.DeliveryAddress) == "" {
			violations = append(violations, Violation{Field: "deliveryAddress", Reason: "delivery address required"})
		}
	default:
		violations = append(violations, Violation{Field: "orderType", Reason: "must be DELIVERY or TAKEAWAY"})
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("checkout not allowed: %s", violations[0].Reason)).WithDetails(map[string]any{
		"violations": violations,
	})
}
