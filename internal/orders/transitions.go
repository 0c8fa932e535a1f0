package orders

import (
	"strings"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/security"
)

// ownerTransitions lists the moves a shop owner may request. PENDING -> ACCEPTED is
// absent: only a confirmed payment accepts an order.
var ownerTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusAccepted: {
		enums.OrderStatusInProgress,
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusInProgress: {
		enums.OrderStatusCompleted,
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusCompleted: {
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusOutForDelivery: {
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	},
}

// CanTransition reports whether an order of the given type may move from -> to.
func CanTransition(from, to enums.OrderStatus, orderType enums.OrderType) bool {
	if from.IsTerminal() {
		return false
	}
	if to == enums.OrderStatusOutForDelivery && orderType != enums.OrderTypeDelivery {
		return false
	}
	// only takeaway orders may skip IN_PROGRESS
	if from == enums.OrderStatusAccepted && to == enums.OrderStatusCompleted && orderType != enums.OrderTypeTakeaway {
		return false
	}
	for _, candidate := range ownerTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// CheckTransition validates an owner request against the order without touching
// storage. The checks run in a fixed order so the caller gets the most specific
// reason.
func CheckTransition(order *models.Order, to enums.OrderStatus, otp string) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	switch order.Status {
	case enums.OrderStatusDelivered:
		return pkgerrors.New(pkgerrors.CodeValidation, "order is already delivered")
	case enums.OrderStatusCancelled:
		return pkgerrors.New(pkgerrors.CodeValidation, "order is cancelled")
	}
	if to == enums.OrderStatusOutForDelivery && order.OrderType == enums.OrderTypeTakeaway {
		return pkgerrors.New(pkgerrors.CodeValidation, "takeaway orders are collected by the customer")
	}
	if to == enums.OrderStatusDelivered {
		supplied := strings.TrimSpace(otp)
		if supplied == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "otp is required")
		}
		if !security.ConstantTimeEqual(supplied, order.OTP) {
			return pkgerrors.New(pkgerrors.CodeValidation, "wrong otp")
		}
	}
	if order.Status == to {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "order is already %s", to)
	}
	if order.Status == enums.OrderStatusPending && to == enums.OrderStatusAccepted {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is awaiting payment")
	}
	if !CanTransition(order.Status, to, order.OrderType) {
		return pkgerrors.New(pkgerrors.CodeValidation, "status transition not allowed").WithDetails(map[string]any{
			"from": order.Status,
			"to":   to,
		})
	}
	return nil
}
