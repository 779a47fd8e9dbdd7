package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/online-auction/internal/auction"
	"github.com/iliyamo/online-auction/internal/model"
	"github.com/iliyamo/online-auction/internal/repository"
)

// BidHandler implements bid placement.
type BidHandler struct {
	Engine   *auction.Engine
	Auctions *repository.AuctionRepo
}

type placeBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type bidResponse struct {
	ID        uint64          `json:"id"`
	AuctionID uint64          `json:"auction_id"`
	BidderID  uint64          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	PlacedAt  time.Time       `json:"placed_at"`
}

func toBidResponse(b *model.Bid) bidResponse {
	return bidResponse{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		PlacedAt:  b.PlacedAt,
	}
}

// Place validates and records a bid.  The whole operation runs under the
// auction's row lock: concurrent bids on the same auction queue up here
// and each one is validated against the previous winner's committed
// state, which is what makes the highest bid strictly increasing.
func (h *BidHandler) Place(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
	}
	var req placeBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !req.Amount.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}
	ctx := c.Request().Context()

	tx, err := h.Auctions.DB().BeginTx(ctx, nil)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	defer tx.Rollback()

	a, err := h.Auctions.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	bid, err := h.Engine.PlaceBid(a, uid, req.Amount, time.Now().UTC())
	if err != nil {
		return writeDomainError(c, err)
	}
	if err := h.Auctions.InsertBidTx(ctx, tx, bid); err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := h.Auctions.SaveTx(ctx, tx, a); err != nil {
		return writeDomainError(c, err)
	}
	if err := tx.Commit(); err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"bid":      toBidResponse(bid),
		"end_time": a.EndTime,
		"status":   a.Status,
	})
}
