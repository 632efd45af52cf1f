package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"digital_legacy_echo/internal/services"
)

const dateLayout = "2006-01-02"

// serviceError maps a classified service failure to an HTTP error. Unclassified
// errors pass through untouched so the error handler logs them as 500s.
func serviceError(err error) error {
	var code int
	switch services.KindOf(err) {
	case services.KindValidation:
		code = http.StatusBadRequest
	case services.KindNotFound:
		code = http.StatusNotFound
	case services.KindConflict:
		code = http.StatusConflict
	case services.KindUnauthorized:
		code = http.StatusUnauthorized
	case services.KindForbidden:
		code = http.StatusForbidden
	default:
		return err
	}
	return echo.NewHTTPError(code, services.MessageOf(err, http.StatusText(code))).SetInternal(err)
}

// bindJSON binds and validates the request body.
func bindJSON(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return c.Validate(dst)
}

func parseID(raw, name string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

func optionalUintQuery(c echo.Context, name string) (*uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func intQuery(c echo.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return fallback
	}
	return v
}

// dateQuery parses a yyyy-mm-dd or RFC 3339 query value. With endOfDay a bare
// date covers the whole day.
func dateQuery(c echo.Context, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" date")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func dateRange(c echo.Context) (services.DateRange, error) {
	from, err := dateQuery(c, "from", false)
	if err != nil {
		return services.DateRange{}, err
	}
	to, err := dateQuery(c, "to", true)
	if err != nil {
		return services.DateRange{}, err
	}
	return services.DateRange{From: from, To: to}, nil
}

// parseDate accepts the same formats as dateQuery for body fields.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid date")
	}
	return &t, nil
}
