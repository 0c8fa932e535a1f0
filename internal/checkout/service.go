package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/internal/cart"
	"github.com/campusprint/campusprint-backend/internal/orders"
	"github.com/campusprint/campusprint-backend/internal/payments"
	pkgcheckout "github.com/campusprint/campusprint-backend/pkg/checkout"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/outbox"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
	"github.com/campusprint/campusprint-backend/pkg/razorpay"
	"github.com/campusprint/campusprint-backend/pkg/security"
)

const otpDigits = 6

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway opens the remote order the customer pays against.
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
	KeyID() string
}

type shopLookup interface {
	FindStationary(ctx context.Context, id uuid.UUID) (*models.Stationary, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service turns a student's cart into a PENDING order awaiting payment.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error)
}

type service struct {
	tx       txRunner
	carts    *cart.Repository
	orders   orders.Repository
	payments *payments.Repository
	shops    shopLookup
	users    userLookup
	gateway  Gateway
	outbox   outbox.Emitter
	fees     config.FeesConfig
	currency string
	now      func() time.Time
	otp      func() (string, error)
}

type ServiceParams struct {
	TX       txRunner
	Carts    *cart.Repository
	Orders   orders.Repository
	Payments *payments.Repository
	Shops    shopLookup
	Users    userLookup
	Gateway  Gateway
	Outbox   outbox.Emitter
	Fees     config.FeesConfig
	Currency string
}

// NewService builds the checkout service.
func NewService(p ServiceParams) (Service, error) {
	if p.TX == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if p.Shops == nil {
		return nil, fmt.Errorf("shop lookup required")
	}
	if p.Users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = "INR"
	}
	return &service{
		tx:       p.TX,
		carts:    p.Carts,
		orders:   p.Orders,
		payments: p.Payments,
		shops:    p.Shops,
		users:    p.Users,
		gateway:  p.Gateway,
		outbox:   p.Outbox,
		fees:     p.Fees,
		currency: currency,
		now:      time.Now,
		otp:      func() (string, error) { return security.GenerateNumericCode(otpDigits) },
	}, nil
}

func (s *service) Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.StationaryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stationary id required")
	}
	input.DeliveryAddress = strings.TrimSpace(input.DeliveryAddress)

	customer, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if customer.CollegeID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only students can check out")
	}

	record, err := s.carts.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if record == nil || len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	shop, err := s.shops.FindStationary(ctx, input.StationaryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stationary not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stationary")
	}
	if err := pkgcheckout.ValidateShop(pkgcheckout.ShopCheck{
		CustomerCollegeID: *customer.CollegeID,
		ShopCollegeID:     shop.CollegeID,
		ShopActive:        shop.IsActive,
		CanDeliver:        shop.CanDeliver,
		OrderType:         input.OrderType,
		DeliveryAddress:   input.DeliveryAddress,
	}); err != nil {
		return nil, err
	}

	totals, err := pkgcheckout.Quote(linePrices(record.Items), input.OrderType, s.fees)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price cart")
	}
	otp, err := s.otp()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}

	orderID := uuid.New()
	gwOrder, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   totals.AmountMinor(),
		Currency: s.currency,
		Receipt:  orderID.String(),
		Notes: map[string]string{
			"orderId":      orderID.String(),
			"stationaryId": shop.ID.String(),
			"userId":       userID.String(),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway order")
	}

	order := &models.Order{
		ID:           orderID,
		UserID:       userID,
		StationaryID: shop.ID,
		CollegeID:    shop.CollegeID,
		Status:       enums.OrderStatusPending,
		OrderType:    input.OrderType,
		TotalPrice:   totals.TotalPrice,
		OTP:          otp,
		Items:        snapshotItems(record.Items),
	}
	if input.OrderType == enums.OrderTypeDelivery {
		address := input.DeliveryAddress
		fee := totals.DeliveryFee
		order.DeliveryAddress = &address
		order.DeliveryFee = &fee
	}
	payment := &models.Payment{
		OrderID:        orderID,
		GatewayOrderID: gwOrder.ID,
		Amount:         totals.AmountMinor(),
		Currency:       s.currency,
		Status:         enums.PaymentStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		cleared, err := s.carts.WithTx(tx).ClearItems(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		if int(cleared) != len(record.Items) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout, please retry")
		}

		order.Customer = customer
		stationaryID := shop.ID
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor: &outbox.ActorRef{
				UserID:       userID,
				StationaryID: &stationaryID,
				Role:         string(enums.UserRoleStudent),
			},
			OccurredAt: s.now().UTC(),
			Data: payloads.OrderCreatedEvent{
				Order:          orders.BuildSnapshot(order),
				GatewayOrderID: gwOrder.ID,
				AmountCharged:  payment.Amount,
			},
			Version: 1,
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	return buildResult(order, payment, s.fees.PlatformFee, GatewayOrder{
		KeyID:    s.gateway.KeyID(),
		OrderID:  gwOrder.ID,
		Amount:   payment.Amount,
		Currency: payment.Currency,
	}), nil
}

func linePrices(items []models.CartItem) []int64 {
	prices := make([]int64, len(items))
	for i, item := range items {
		prices[i] = item.Price
	}
	return prices
}

func snapshotItems(items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, len(items))
	for i, item := range items {
		out[i] = models.OrderItem{
			Name:         item.Name,
			FileURL:      item.FileURL,
			FileKey:      item.FileKey,
			FileType:     item.FileType,
			PrintOptions: item.PrintOptions,
			Quantity:     item.Quantity,
			Price:        item.Price,
		}
	}
	return out
}
