package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"digital_legacy_echo/internal/services"
)

// StatsHandler serves the dashboard figures
type StatsHandler struct {
	stats *services.StatsService
}

func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) Stats(c echo.Context) error {
	stats, err := h.stats.Stats(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// KPI accepts an optional ?from=&to= window.
func (h *StatsHandler) KPI(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	kpi, err := h.stats.KPI(c.Request().Context(), r)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, kpi)
}

func (h *StatsHandler) RevenueSeries(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	series, err := h.stats.RevenueSeries(c.Request().Context(), r)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, series)
}

func (h *StatsHandler) OrderSeries(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	series, err := h.stats.OrderSeries(c.Request().Context(), r)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, series)
}

// Health reports whether the database answers.
func Health(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request().Context())
		}
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
