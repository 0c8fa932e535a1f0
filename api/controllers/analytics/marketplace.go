package analytics

import (
	"net/http"

	"github.com/campusprint/campusprint-backend/api/responses"
	"github.com/campusprint/campusprint-backend/api/validators"
	internalanalytics "github.com/campusprint/campusprint-backend/internal/analytics"
	"github.com/campusprint/campusprint-backend/internal/analytics/types"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

// Marketplace serves the admin KPI dashboard from the order events table.
// stationaryId and collegeId narrow the window when given.
func Marketplace(svc internalanalytics.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		start, end, err := resolveAnalyticsRange(r, timeNowUTC())
		if err != nil {
			return err
		}
		req := types.MarketplaceQueryRequest{Start: start, End: end}
		filters := []struct {
			param string
			dst   *string
		}{{"stationaryId", &req.StationaryID}, {"collegeId", &req.CollegeID}}
		for _, f := range filters {
			id, err := validators.ParseOptionalUUID(r, f.param)
			if err != nil {
				return err
			}
			if id != nil {
				*f.dst = id.String()
			}
		}

		resp, err := svc.Marketplace(r.Context(), req)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "", resp)
		return nil
	})
}
