package apperr

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPError converts a service error into the echo error the API renders. Store
// and decoding failures keep their detail in Internal for the request log only.
func HTTPError(err error) *echo.HTTPError {
	status := HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}
