// Package handler contains the Echo HTTP handlers.  Handlers bind and
// validate the request, call the engine and repositories, and translate
// sentinel errors into HTTP status codes.  They hold no business logic
// of their own.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-auction/internal/auction"
	"github.com/iliyamo/online-auction/internal/repository"
)

// getUserID extracts the authenticated user's ID from the context.  The
// JWT middleware stores the raw "sub" claim, which arrives as a JSON
// number (float64) after parsing.
func getUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// getRole extracts the authenticated user's role from the context.
func getRole(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok {
		return r
	}
	return ""
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func parseUintParam(v string) (uint64, error) {
	return strconv.ParseUint(v, 10, 64)
}

// writeDomainError maps engine and repository sentinels onto HTTP
// responses.  Bid rejections are matched first because they unwrap to
// the generic invalid-input sentinel but carry extra detail the client
// needs to retry with a valid amount.
func writeDomainError(c echo.Context, err error) error {
	var bidErr *auction.BidError
	switch {
	case errors.As(err, &bidErr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":           bidErr.Error(),
			"current_highest": bidErr.CurrentHighest,
			"minimum_next":    bidErr.MinimumNext,
		})
	case errors.Is(err, auction.ErrProductNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrAuctionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, auction.ErrForbidden),
		errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, auction.ErrDuplicateAuction),
		errors.Is(err, auction.ErrInvalidState),
		errors.Is(err, auction.ErrOutOfStock),
		errors.Is(err, repository.ErrOutOfStock):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrVersionConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "concurrent update, retry"})
	case errors.Is(err, auction.ErrReserveNotMet):
		return c.JSON(http.StatusPreconditionFailed, echo.Map{"error": err.Error()})
	case errors.Is(err, auction.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
