package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/internal/cart"
	"github.com/campusprint/campusprint-backend/internal/catalog"
	"github.com/campusprint/campusprint-backend/internal/orders"
	"github.com/campusprint/campusprint-backend/internal/payments"
	"github.com/campusprint/campusprint-backend/internal/users"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/db/dbtest"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/outbox"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
	"github.com/campusprint/campusprint-backend/pkg/razorpay"
)

type fakeGateway struct {
	calls []razorpay.CreateOrderRequest
	err   error
}

func (g *fakeGateway) CreateOrder(_ context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	return &razorpay.Order{
		ID:       "order_rzp_" + req.Receipt[:8],
		Entity:   "order",
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

type checkoutFixture struct {
	conn    *gorm.DB
	svc     Service
	gateway *fakeGateway
	campus  dbtest.Campus
}

func newCheckoutFixture(t *testing.T, canDeliver bool) checkoutFixture {
	t.Helper()
	conn := dbtest.Open(t)
	campus := dbtest.SeedCampus(t, conn, canDeliver)
	gateway := &fakeGateway{}

	svc, err := NewService(ServiceParams{
		TX:       db.NewFromConn(conn),
		Carts:    cart.NewRepository(conn),
		Orders:   orders.NewRepository(conn),
		Payments: payments.NewRepository(conn),
		Shops:    catalog.NewRepository(conn),
		Users:    users.NewRepository(conn),
		Gateway:  gateway,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Fees:     config.FeesConfig{DeliveryFee: 20, PlatformFee: 5, CommissionRate: 5},
		Currency: "INR",
	})
	require.NoError(t, err)
	return checkoutFixture{conn: conn, svc: svc, gateway: gateway, campus: campus}
}

func (f checkoutFixture) seedCart(t *testing.T, prices ...int64) models.Cart {
	t.Helper()
	record := models.Cart{UserID: f.campus.Student.ID}
	for i, price := range prices {
		record.Items = append(record.Items, models.CartItem{
			Name:         "file-" + string(rune('a'+i)) + ".pdf",
			FileURL:      "https://cdn.test/file.pdf",
			FileKey:      "cart/" + uuid.NewString() + ".pdf",
			FileType:     "pdf",
			PrintOptions: models.PrintOptions{Coloured: i%2 == 0, Duplex: true},
			Quantity:     1,
			Price:        price,
		})
	}
	require.NoError(t, f.conn.Create(&record).Error)
	return record
}

func (f checkoutFixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(model).Count(&n).Error)
	return n
}

func TestExecuteTakeaway(t *testing.T) {
	f := newCheckoutFixture(t, false)
	f.seedCart(t, 40, 60)

	res, err := f.svc.Execute(context.Background(), f.campus.Student.ID, Input{
		StationaryID: f.campus.Shop.ID,
		OrderType:    enums.OrderTypeTakeaway,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, res.Order.Status)
	assert.Equal(t, int64(100), res.Order.TotalPrice)
	assert.Equal(t, int64(105), res.Order.AmountPaid)
	assert.Nil(t, res.Order.DeliveryAddress)
	assert.Len(t, res.Order.OTP, 6)
	assert.Len(t, res.OrderItems, 2)
	assert.Equal(t, enums.PaymentStatusPending, res.Payment.Status)
	assert.Equal(t, int64(10500), res.Payment.Amount)
	assert.Equal(t, "rzp_test_key", res.Gateway.KeyID)
	assert.Equal(t, res.Payment.GatewayOrderID, res.Gateway.OrderID)

	require.Len(t, f.gateway.calls, 1)
	assert.Equal(t, int64(10500), f.gateway.calls[0].Amount)
	assert.Equal(t, "INR", f.gateway.calls[0].Currency)
	assert.Equal(t, res.Order.ID.String(), f.gateway.calls[0].Receipt)

	var stored models.Order
	require.NoError(t, f.conn.Preload("Items").First(&stored, "id = ?", res.Order.ID).Error)
	assert.Equal(t, f.campus.College.ID, stored.CollegeID)
	assert.Len(t, stored.Items, 2)
	assert.Zero(t, f.count(t, &models.CartItem{}), "cart should be cleared")

	var event models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", enums.EventOrderCreated).First(&event).Error)
	var env outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(event.Payload, &env))
	var created payloads.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, res.Order.ID, created.Order.OrderID)
	assert.Equal(t, int64(10500), created.AmountCharged)
	assert.Equal(t, f.campus.Student.Email, created.Order.CustomerEmail)
}

func TestExecuteDelivery(t *testing.T) {
	f := newCheckoutFixture(t, true)
	f.seedCart(t, 100)

	res, err := f.svc.Execute(context.Background(), f.campus.Student.ID, Input{
		StationaryID:    f.campus.Shop.ID,
		OrderType:       enums.OrderTypeDelivery,
		DeliveryAddress: "  Hostel 4, Room 12 ",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(120), res.Order.TotalPrice)
	require.NotNil(t, res.Order.DeliveryFee)
	assert.Equal(t, int64(20), *res.Order.DeliveryFee)
	require.NotNil(t, res.Order.DeliveryAddress)
	assert.Equal(t, "Hostel 4, Room 12", *res.Order.DeliveryAddress)
	assert.Equal(t, int64(12500), f.gateway.calls[0].Amount)
}

func TestExecuteRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart", func(t *testing.T) {
		f := newCheckoutFixture(t, true)
		_, err := f.svc.Execute(ctx, f.campus.Student.ID, Input{StationaryID: f.campus.Shop.ID, OrderType: enums.OrderTypeTakeaway})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		assert.Empty(t, f.gateway.calls)
		assert.Zero(t, f.count(t, &models.Order{}))
		assert.Zero(t, f.count(t, &models.Payment{}))
	})

	t.Run("shop cannot deliver", func(t *testing.T) {
		f := newCheckoutFixture(t, false)
		f.seedCart(t, 10)
		_, err := f.svc.Execute(ctx, f.campus.Student.ID, Input{StationaryID: f.campus.Shop.ID, OrderType: enums.OrderTypeDelivery, DeliveryAddress: "Hostel 4"})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		assert.Empty(t, f.gateway.calls)
	})

	t.Run("delivery without address", func(t *testing.T) {
		f := newCheckoutFixture(t, true)
		f.seedCart(t, 10)
		_, err := f.svc.Execute(ctx, f.campus.Student.ID, Input{StationaryID: f.campus.Shop.ID, OrderType: enums.OrderTypeDelivery, DeliveryAddress: "   "})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("shop in another college", func(t *testing.T) {
		f := newCheckoutFixture(t, true)
		f.seedCart(t, 10)
		other := dbtest.SeedCampus(t, f.conn, true)
		_, err := f.svc.Execute(ctx, f.campus.Student.ID, Input{StationaryID: other.Shop.ID, OrderType: enums.OrderTypeTakeaway})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("inactive shop", func(t *testing.T) {
		f := newCheckoutFixture(t, true)
		f.seedCart(t, 10)
		require.NoError(t, f.conn.Model(&models.Stationary{}).Where("id = ?", f.campus.Shop.ID).Update("is_active", false).Error)
		_, err := f.svc.Execute(ctx, f.campus.Student.ID, Input{StationaryID: f.campus.Shop.ID, OrderType: enums.OrderTypeTakeaway})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("unknown shop", func(t *testing.T) {
		f := newCheckoutFixture(t, true)
		f.seedCart(t, 10)
		_, err := f.svc.Execute(ctx, f.campus.Student.ID, Input{StationaryID: uuid.New(), OrderType: enums.OrderTypeTakeaway})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	})
}

func TestExecuteGatewayFailureWritesNothing(t *testing.T) {
	f := newCheckoutFixture(t, false)
	f.seedCart(t, 40, 60)
	f.gateway.err = errors.New("razorpay unavailable")

	_, err := f.svc.Execute(context.Background(), f.campus.Student.ID, Input{
		StationaryID: f.campus.Shop.ID,
		OrderType:    enums.OrderTypeTakeaway,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	assert.Zero(t, f.count(t, &models.Order{}))
	assert.Zero(t, f.count(t, &models.Payment{}))
	assert.Zero(t, f.count(t, &models.OutboxEvent{}))
	assert.Equal(t, int64(2), f.count(t, &models.CartItem{}), "cart must survive a failed checkout")
}

func TestExecuteOTPIsSixDigits(t *testing.T) {
	f := newCheckoutFixture(t, false)
	for i := 0; i < 5; i++ {
		f.seedCartAgain(t)
		res, err := f.svc.Execute(context.Background(), f.campus.Student.ID, Input{
			StationaryID: f.campus.Shop.ID,
			OrderType:    enums.OrderTypeTakeaway,
		})
		require.NoError(t, err)
		require.Len(t, res.Order.OTP, 6)
		require.NotEqual(t, byte('0'), res.Order.OTP[0])
	}
}

// seedCartAgain refills the existing cart after a checkout cleared it.
func (f checkoutFixture) seedCartAgain(t *testing.T) {
	t.Helper()
	record, err := cart.NewRepository(f.conn).GetOrCreate(context.Background(), f.campus.Student.ID)
	require.NoError(t, err)
	require.NoError(t, cart.NewRepository(f.conn).CreateItems(context.Background(), []models.CartItem{{
		CartID:   record.ID,
		Name:     "notes.pdf",
		FileURL:  "https://cdn.test/notes.pdf",
		FileKey:  "cart/" + uuid.NewString() + ".pdf",
		FileType: "pdf",
		Quantity: 1,
		Price:    25,
	}}))
}
