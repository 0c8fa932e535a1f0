package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/outbox"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
	"github.com/campusprint/campusprint-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the order ledger operations for owners, customers and admins.
type Service interface {
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OwnerOrderDTO, error)
	ListForOwner(ctx context.Context, input OwnerListInput) (*OwnerOrderList, error)
	ListForCustomer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*CustomerOrderList, error)
	GetForCustomer(ctx context.Context, userID, orderID uuid.UUID) (*CustomerOrderDTO, error)
	ListForAdmin(ctx context.Context, input AdminListInput) (*AdminOrderList, error)
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outbox.Emitter
	platformFee int64
	now         func() time.Time
}

// NewService builds the order ledger service. platformFee is only used to show
// customers what they were charged.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, platformFee int64) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		outbox:      emitter,
		platformFee: platformFee,
		now:         time.Now,
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OwnerOrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.StationaryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "stationary context missing")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}

	var updated *OwnerOrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForShop(ctx, input.StationaryID, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := CheckTransition(order, input.Status, input.OTP); err != nil {
			return err
		}

		now := s.now().UTC()
		ok, err := repo.TransitionStatus(ctx, order.ID, order.Status, input.Status, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was updated concurrently, reload and retry")
		}

		if input.Status == enums.OrderStatusCancelled {
			if err := repo.VoidCommission(ctx, order.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void commission")
			}
		}

		previous := order.Status
		order.Status = input.Status
		order.UpdatedAt = now
		if input.Status == enums.OrderStatusDelivered {
			order.DeliveredAt = &now
		}

		stationaryID := input.StationaryID
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor: &outbox.ActorRef{
				UserID:       input.ActorUserID,
				StationaryID: &stationaryID,
				Role:         string(enums.UserRoleOwner),
			},
			OccurredAt: now,
			Data: payloads.OrderStatusChangedEvent{
				Order:          BuildSnapshot(order),
				PreviousStatus: previous,
				ChangedBy:      input.ActorUserID,
				ChangedAt:      now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue status event")
		}

		dto := OwnerFromModel(order)
		updated = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListForOwner never shows PENDING orders: they are not paid yet.
func (s *service) ListForOwner(ctx context.Context, input OwnerListInput) (*OwnerOrderList, error) {
	if input.StationaryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "stationary context missing")
	}
	filter := ListFilter{
		StationaryID:    &input.StationaryID,
		ExcludeStatuses: []enums.OrderStatus{enums.OrderStatusPending},
		Limit:           input.Params.Limit,
	}
	if input.Status != nil {
		if *input.Status == enums.OrderStatusPending {
			return &OwnerOrderList{Orders: []OwnerOrderDTO{}}, nil
		}
		filter.Statuses = []enums.OrderStatus{*input.Status}
	}
	rows, next, err := s.list(ctx, filter, input.Params.Cursor)
	if err != nil {
		return nil, err
	}
	out := &OwnerOrderList{Orders: make([]OwnerOrderDTO, 0, len(rows)), NextCursor: encodeNext(next)}
	for i := range rows {
		out.Orders = append(out.Orders, OwnerFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) ListForCustomer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*CustomerOrderList, error) {
	rows, next, err := s.list(ctx, ListFilter{UserID: &userID, Limit: params.Limit}, params.Cursor)
	if err != nil {
		return nil, err
	}
	out := &CustomerOrderList{Orders: make([]CustomerOrderDTO, 0, len(rows)), NextCursor: encodeNext(next)}
	for i := range rows {
		out.Orders = append(out.Orders, CustomerFromModel(&rows[i], s.platformFee))
	}
	return out, nil
}

func (s *service) GetForCustomer(ctx context.Context, userID, orderID uuid.UUID) (*CustomerOrderDTO, error) {
	order, err := s.repo.FindForCustomer(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	dto := CustomerFromModel(order, s.platformFee)
	return &dto, nil
}

func (s *service) ListForAdmin(ctx context.Context, input AdminListInput) (*AdminOrderList, error) {
	filter := ListFilter{StationaryID: input.StationaryID, Limit: input.Params.Limit}
	if input.Status != nil {
		filter.Statuses = []enums.OrderStatus{*input.Status}
	}
	rows, next, err := s.list(ctx, filter, input.Params.Cursor)
	if err != nil {
		return nil, err
	}
	out := &AdminOrderList{Orders: make([]AdminOrderDTO, 0, len(rows)), NextCursor: encodeNext(next)}
	for i := range rows {
		out.Orders = append(out.Orders, AdminFromModel(&rows[i]))
	}
	return out, nil
}

// ExpirePending cancels unpaid orders created before cutoff. Each order is its own
// transaction so one failure does not hold back the rest of the batch.
func (s *service) ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	candidates, err := s.repo.FindExpirable(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find expirable orders")
	}

	expired := 0
	var firstErr error
	for i := range candidates {
		order := candidates[i]
		var cancelled bool
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			now := s.now().UTC()
			ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, now)
			if err != nil || !ok {
				return err
			}
			order.Status = enums.OrderStatusCancelled
			cancelled = true
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderExpired,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				OccurredAt:    now,
				Data: payloads.OrderExpiredEvent{
					Order:     BuildSnapshot(&order),
					ExpiredAt: now,
				},
			})
		})
		if err != nil {
			if firstErr == nil {
				firstErr = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire order")
			}
			continue
		}
		if cancelled {
			expired++
		}
	}
	return expired, firstErr
}

func (s *service) list(ctx context.Context, filter ListFilter, rawCursor string) ([]models.Order, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(rawCursor)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor
	rows, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, next, nil
}

func encodeNext(next *pagination.Cursor) string {
	if next == nil {
		return ""
	}
	return pagination.EncodeCursor(*next)
}
