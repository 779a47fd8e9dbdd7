package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports liveness.  It intentionally touches no dependencies so
// the probe stays meaningful during a database or broker outage.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
