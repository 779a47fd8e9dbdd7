package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/online-auction/internal/auction"
	"github.com/iliyamo/online-auction/internal/repository"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteDomainErrorStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{auction.ErrProductNotFound, http.StatusNotFound},
		{repository.ErrProductNotFound, http.StatusNotFound},
		{repository.ErrAuctionNotFound, http.StatusNotFound},
		{auction.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", auction.ErrForbidden), http.StatusForbidden},
		{repository.ErrForbidden, http.StatusForbidden},
		{auction.ErrDuplicateAuction, http.StatusConflict},
		{auction.ErrInvalidState, http.StatusConflict},
		{fmt.Errorf("status x: %w", auction.ErrInvalidState), http.StatusConflict},
		{auction.ErrOutOfStock, http.StatusConflict},
		{repository.ErrOutOfStock, http.StatusConflict},
		{repository.ErrVersionConflict, http.StatusConflict},
		{auction.ErrReserveNotMet, http.StatusPreconditionFailed},
		{auction.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("bad times: %w", auction.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		c, rec := newTestContext(t)
		check.Nil(t, writeDomainError(c, tc.err))
		check.Equal(t, tc.want, rec.Code)
	}
}

func TestWriteDomainErrorBidDetail(t *testing.T) {
	c, rec := newTestContext(t)
	err := &auction.BidError{
		CurrentHighest: decimal.NewFromInt(101),
		MinimumNext:    decimal.NewFromInt(102),
	}
	check.Nil(t, writeDomainError(c, err))
	// a too-low bid is a 400 carrying the retry hint, not a bare error
	check.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	check.True(t, strings.Contains(body, "current_highest"))
	check.True(t, strings.Contains(body, "minimum_next"))
	check.True(t, strings.Contains(body, "102"))
}

func TestGetUserIDClaimTypes(t *testing.T) {
	c, _ := newTestContext(t)

	_, ok := getUserID(c)
	check.False(t, ok)

	c.Set("user_id", float64(12)) // JWT numeric claims decode as float64
	id, ok := getUserID(c)
	check.True(t, ok)
	check.Equal(t, uint64(12), id)

	c.Set("user_id", "34")
	id, ok = getUserID(c)
	check.True(t, ok)
	check.Equal(t, uint64(34), id)
}
