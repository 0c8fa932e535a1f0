package analytics

import (
	"net/http"

	"github.com/campusprint/campusprint-backend/api/middleware"
	"github.com/campusprint/campusprint-backend/api/responses"
	internalanalytics "github.com/campusprint/campusprint-backend/internal/analytics"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

// OwnerReport serves the shop dashboard over the trailing ?period= days.
func OwnerReport(svc internalanalytics.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		ownerID, err := middleware.UserUUID(r.Context())
		if err != nil {
			return err
		}
		days, err := internalanalytics.ParsePeriod(r.URL.Query().Get("period"))
		if err != nil {
			return err
		}
		report, err := svc.OwnerReport(r.Context(), ownerID, days)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "Analytics retrieved successfully", report)
		return nil
	})
}
