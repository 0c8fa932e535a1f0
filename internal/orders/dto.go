package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/pagination"
)

// UpdateStatusInput is an owner's request to move one of their shop's orders.
type UpdateStatusInput struct {
	OrderID      uuid.UUID
	Status       enums.OrderStatus
	OTP          string
	ActorUserID  uuid.UUID
	StationaryID uuid.UUID
}

// OwnerListInput filters the shop owner's order listing.
type OwnerListInput struct {
	StationaryID uuid.UUID
	Status       *enums.OrderStatus
	Params       pagination.Params
}

// AdminListInput filters the platform-wide order listing.
type AdminListInput struct {
	StationaryID *uuid.UUID
	Status       *enums.OrderStatus
	Params       pagination.Params
}

type OrderItemDTO struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	FileURL  string    `json:"fileUrl"`
	FileType string    `json:"fileType"`
	Coloured bool      `json:"coloured"`
	Duplex   bool      `json:"duplex"`
	Spiral   bool      `json:"spiral"`
	Hardbind bool      `json:"hardbind"`
	Quantity int       `json:"quantity"`
	Price    int64     `json:"price"`
}

type CustomerSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone *string   `json:"phone,omitempty"`
}

// OwnerOrderDTO is the shop's view. It never carries the OTP or commission
// internals; earnings is what the shop keeps.
type OwnerOrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	Status          enums.OrderStatus `json:"status"`
	OrderType       enums.OrderType   `json:"orderType"`
	TotalPrice      int64             `json:"totalPrice"`
	Earnings        int64             `json:"earnings"`
	DeliveryAddress *string           `json:"deliveryAddress,omitempty"`
	DeliveryFee     *int64            `json:"deliveryFee,omitempty"`
	Customer        *CustomerSummary  `json:"customer,omitempty"`
	Items           []OrderItemDTO    `json:"items"`
	DeliveredAt     *time.Time        `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// CustomerOrderDTO is the student's view. The OTP is shown so it can be handed
// over at delivery; amountPaid includes the platform fee.
type CustomerOrderDTO struct {
	ID               uuid.UUID         `json:"id"`
	StationaryID     uuid.UUID         `json:"stationaryId"`
	Status           enums.OrderStatus `json:"status"`
	OrderType        enums.OrderType   `json:"orderType"`
	TotalPrice       int64             `json:"totalPrice"`
	PlatformFee      int64             `json:"platformFee"`
	AmountPaid       int64             `json:"amountPaid"`
	DeliveryAddress  *string           `json:"deliveryAddress,omitempty"`
	DeliveryFee      *int64            `json:"deliveryFee,omitempty"`
	OTP              string            `json:"otp"`
	GatewayPaymentID *string           `json:"gatewayPaymentId,omitempty"`
	Items            []OrderItemDTO    `json:"items"`
	DeliveredAt      *time.Time        `json:"deliveredAt,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
}

type CommissionDTO struct {
	PlatformFee      int64                  `json:"platformFee"`
	CommissionRate   int64                  `json:"commissionRate"`
	CommissionFee    int64                  `json:"commissionFee"`
	GatewayFee       int64                  `json:"gatewayFee"`
	GatewayTax       int64                  `json:"gatewayTax"`
	NetEarnings      int64                  `json:"netEarnings"`
	SettlementStatus enums.SettlementStatus `json:"settlementStatus"`
}

// AdminOrderDTO is the platform view including the commission row.
type AdminOrderDTO struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"userId"`
	StationaryID     uuid.UUID         `json:"stationaryId"`
	CollegeID        uuid.UUID         `json:"collegeId"`
	Status           enums.OrderStatus `json:"status"`
	OrderType        enums.OrderType   `json:"orderType"`
	TotalPrice       int64             `json:"totalPrice"`
	GatewayPaymentID *string           `json:"gatewayPaymentId,omitempty"`
	Commission       *CommissionDTO    `json:"commission,omitempty"`
	ItemCount        int               `json:"itemCount"`
	CreatedAt        time.Time         `json:"createdAt"`
}

type OwnerOrderList struct {
	Orders     []OwnerOrderDTO `json:"orders"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

type CustomerOrderList struct {
	Orders     []CustomerOrderDTO `json:"orders"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

type AdminOrderList struct {
	Orders     []AdminOrderDTO `json:"orders"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

// ListFilter is the repository-level query shape shared by every listing.
type ListFilter struct {
	StationaryID    *uuid.UUID
	UserID          *uuid.UUID
	Statuses        []enums.OrderStatus
	ExcludeStatuses []enums.OrderStatus
	Limit           int
	Cursor          *pagination.Cursor
}

func itemsFromModel(items []models.OrderItem) []OrderItemDTO {
	out := make([]OrderItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItemDTO{
			ID:       item.ID,
			Name:     item.Name,
			FileURL:  item.FileURL,
			FileType: item.FileType,
			Coloured: item.Coloured,
			Duplex:   item.Duplex,
			Spiral:   item.Spiral,
			Hardbind: item.Hardbind,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	return out
}

// OwnerFromModel redacts order for the shop owner.
func OwnerFromModel(order *models.Order) OwnerOrderDTO {
	earnings := order.TotalPrice
	if order.Commission != nil {
		earnings -= order.Commission.CommissionFee
	}
	dto := OwnerOrderDTO{
		ID:              order.ID,
		Status:          order.Status,
		OrderType:       order.OrderType,
		TotalPrice:      order.TotalPrice,
		Earnings:        earnings,
		DeliveryAddress: order.DeliveryAddress,
		DeliveryFee:     order.DeliveryFee,
		Items:           itemsFromModel(order.Items),
		DeliveredAt:     order.DeliveredAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	if order.Customer != nil {
		dto.Customer = &CustomerSummary{
			ID:    order.Customer.ID,
			Name:  order.Customer.Name,
			Email: order.Customer.Email,
			Phone: order.Customer.Phone,
		}
	}
	return dto
}

func CustomerFromModel(order *models.Order, platformFee int64) CustomerOrderDTO {
	return CustomerOrderDTO{
		ID:               order.ID,
		StationaryID:     order.StationaryID,
		Status:           order.Status,
		OrderType:        order.OrderType,
		TotalPrice:       order.TotalPrice,
		PlatformFee:      platformFee,
		AmountPaid:       order.TotalPrice + platformFee,
		DeliveryAddress:  order.DeliveryAddress,
		DeliveryFee:      order.DeliveryFee,
		OTP:              order.OTP,
		GatewayPaymentID: order.GatewayPaymentID,
		Items:            itemsFromModel(order.Items),
		DeliveredAt:      order.DeliveredAt,
		CreatedAt:        order.CreatedAt,
	}
}

func AdminFromModel(order *models.Order) AdminOrderDTO {
	dto := AdminOrderDTO{
		ID:               order.ID,
		UserID:           order.UserID,
		StationaryID:     order.StationaryID,
		CollegeID:        order.CollegeID,
		Status:           order.Status,
		OrderType:        order.OrderType,
		TotalPrice:       order.TotalPrice,
		GatewayPaymentID: order.GatewayPaymentID,
		ItemCount:        len(order.Items),
		CreatedAt:        order.CreatedAt,
	}
	if c := order.Commission; c != nil {
		dto.Commission = &CommissionDTO{
			PlatformFee:      c.PlatformFee,
			CommissionRate:   c.CommissionRate,
			CommissionFee:    c.CommissionFee,
			GatewayFee:       c.GatewayFee,
			GatewayTax:       c.GatewayTax,
			NetEarnings:      c.NetEarnings,
			SettlementStatus: c.SettlementStatus,
		}
	}
	return dto
}
