package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/online-auction/internal/repository"
)

// OrderHandler exposes the orders written by the settlement consumer.
type OrderHandler struct {
	Orders *repository.OrderRepo
}

type orderResponse struct {
	ID        uint64          `json:"id"`
	Reference string          `json:"reference"`
	ProductID uint64          `json:"product_id"`
	AuctionID *uint64         `json:"auction_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListMine returns the authenticated buyer's orders, newest first.
func (h *OrderHandler) ListMine(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orders, err := h.Orders.ListByBuyer(c.Request().Context(), uid)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderResponse{
			ID:        o.ID,
			Reference: o.Reference,
			ProductID: o.ProductID,
			AuctionID: o.AuctionID,
			Amount:    o.Amount,
			Status:    o.Status,
			CreatedAt: o.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}
