package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/api/middleware"
	"github.com/campusprint/campusprint-backend/api/responses"
	"github.com/campusprint/campusprint-backend/api/validators"
	internalorders "github.com/campusprint/campusprint-backend/internal/orders"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/pagination"
)

type updateStatusRequest struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
	Status  string    `json:"status" validate:"required"`
	OTP     string    `json:"otp" validate:"omitempty,numeric,len=6"`
}

// listQuery is ?limit=&cursor=&status= shared by every order listing.
type listQuery struct {
	page   pagination.Params
	status *enums.OrderStatus
}

func CustomerList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		studentID, err := middleware.UserUUID(r.Context())
		if err != nil {
			return err
		}
		q, err := readListQuery(r)
		if err != nil {
			return err
		}
		list, err := svc.ListForCustomer(r.Context(), studentID, q.page)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "Orders retrieved successfully", list)
		return nil
	})
}

// CustomerDetail includes the delivery OTP, so it is scoped to the buyer.
func CustomerDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		studentID, err := middleware.UserUUID(r.Context())
		if err != nil {
			return err
		}
		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			return err
		}
		order, err := svc.GetForCustomer(r.Context(), studentID, orderID)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "", order)
		return nil
	})
}

// OwnerList shows only paid orders of the owner's shop.
func OwnerList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		shopID, err := middleware.StationaryUUID(r.Context())
		if err != nil {
			return err
		}
		q, err := readListQuery(r)
		if err != nil {
			return err
		}
		list, err := svc.ListForOwner(r.Context(), internalorders.OwnerListInput{
			StationaryID: shopID,
			Status:       q.status,
			Params:       q.page,
		})
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "Orders retrieved successfully", list)
		return nil
	})
}

// OwnerUpdateStatus moves an order along the fulfilment lifecycle. DELIVERED
// needs the customer's OTP.
func OwnerUpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		ctx := r.Context()
		ownerID, err := middleware.UserUUID(ctx)
		if err != nil {
			return err
		}
		shopID, err := middleware.StationaryUUID(ctx)
		if err != nil {
			return err
		}
		var body updateStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		next, err := parseStatus(body.Status)
		if err != nil {
			return err
		}

		order, err := svc.UpdateStatus(ctx, internalorders.UpdateStatusInput{
			OrderID:      body.OrderID,
			Status:       next,
			OTP:          body.OTP,
			ActorUserID:  ownerID,
			StationaryID: shopID,
		})
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "Order status updated successfully", order)
		return nil
	})
}

// AdminList spans every shop unless ?stationaryId= narrows it.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		q, err := readListQuery(r)
		if err != nil {
			return err
		}
		shopID, err := validators.ParseOptionalUUID(r, "stationaryId")
		if err != nil {
			return err
		}
		list, err := svc.ListForAdmin(r.Context(), internalorders.AdminListInput{
			StationaryID: shopID,
			Status:       q.status,
			Params:       q.page,
		})
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "", list)
		return nil
	})
}

func readListQuery(r *http.Request) (listQuery, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return listQuery{}, err
	}
	q := listQuery{page: pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}}
	if raw := r.URL.Query().Get("status"); strings.TrimSpace(raw) != "" {
		status, err := parseStatus(raw)
		if err != nil {
			return listQuery{}, err
		}
		q.status = &status
	}
	return q, nil
}

// parseStatus accepts any case and surrounding spaces.
func parseStatus(raw string) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"})
	}
	return status, nil
}
