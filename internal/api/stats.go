package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/cookbook/internal/webserver"
	"github.com/talkincode/cookbook/pkg/metrics"
)

const maxSeriesMinutes = 7 * 24 * 60

func (h *Handler) registerStatsRoutes(srv *webserver.Server) {
	srv.ApiGET("/stats/series/:name", h.metricSeries)
}

// metricSeries returns the samples of one metric over the last ?minutes=N (default 60).
func (h *Handler) metricSeries(c echo.Context) error {
	minutes := 60
	if v := strings.TrimSpace(c.QueryParam("minutes")); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil || n <= 0 || n > maxSeriesMinutes {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "minutes must be between 1 and 10080", v)
		}
		minutes = n
	}
	end := time.Now().Add(time.Second)
	points, err := metrics.Query(c.Param("name"), end.Add(-time.Duration(minutes)*time.Minute), end)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, map[string]interface{}{
		"name":   c.Param("name"),
		"points": points,
	})
}
