package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a liveness endpoint for load balancers and monitoring.  It
// reports that the process is serving requests, not that dependencies
// are reachable.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
