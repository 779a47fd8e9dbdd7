package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/online-auction/internal/auction"
	"github.com/iliyamo/online-auction/internal/model"
	"github.com/iliyamo/online-auction/internal/queue"
	"github.com/iliyamo/online-auction/internal/repository"
)

// SettlementPublisher publishes settlement events to the broker.  The
// handler depends on the interface so tests and broker-less deployments
// can run without RabbitMQ.
type SettlementPublisher interface {
	PublishAuctionSettled(ctx context.Context, evt queue.AuctionSettledEvent) error
}

// AuctionHandler implements the auction lifecycle endpoints.  Every
// mutating endpoint runs inside a transaction holding the auction's row
// lock, so the engine always validates against the latest committed
// state and concurrent mutations serialize per auction.
type AuctionHandler struct {
	Engine    *auction.Engine
	Auctions  *repository.AuctionRepo
	Products  *repository.ProductRepo
	Publisher SettlementPublisher
}

type createAuctionRequest struct {
	ProductID    uint64           `json:"product_id"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
	StartingBid  decimal.Decimal  `json:"starting_bid"`
	ReservePrice *decimal.Decimal `json:"reserve_price"`
	BuyNowPrice  *decimal.Decimal `json:"buy_now_price"`
}

type auctionResponse struct {
	ID                     uint64              `json:"id"`
	ProductID              uint64              `json:"product_id"`
	SellerID               uint64              `json:"seller_id"`
	StartTime              time.Time           `json:"start_time"`
	EndTime                time.Time           `json:"end_time"`
	StartingBid            decimal.Decimal     `json:"starting_bid"`
	ReservePrice           *decimal.Decimal    `json:"reserve_price,omitempty"`
	BuyNowPrice            *decimal.Decimal    `json:"buy_now_price,omitempty"`
	CurrentHighestBid      decimal.Decimal     `json:"current_highest_bid"`
	CurrentHighestBidderID *uint64             `json:"current_highest_bidder_id,omitempty"`
	Status                 model.AuctionStatus `json:"status"`
	WinnerID               *uint64             `json:"winner_id,omitempty"`
	ViewCount              uint64              `json:"view_count"`
	BidCount               int                 `json:"bid_count"`
	MinimumNextBid         decimal.Decimal     `json:"minimum_next_bid"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

func (h *AuctionHandler) toResponse(a *model.Auction) auctionResponse {
	return auctionResponse{
		ID:                     a.ID,
		ProductID:              a.ProductID,
		SellerID:               a.SellerID,
		StartTime:              a.StartTime,
		EndTime:                a.EndTime,
		StartingBid:            a.StartingBid,
		ReservePrice:           a.ReservePrice,
		BuyNowPrice:            a.BuyNowPrice,
		CurrentHighestBid:      a.CurrentHighestBid,
		CurrentHighestBidderID: a.CurrentHighestBidderID,
		Status:                 a.Status,
		WinnerID:               a.WinnerID,
		ViewCount:              a.ViewCount,
		BidCount:               len(a.Bids),
		MinimumNextBid:         h.Engine.MinimumNextBid(a),
		CreatedAt:              a.CreatedAt,
		UpdatedAt:              a.UpdatedAt,
	}
}

// Create opens a new auction for a product.  The duplicate check and the
// insert share one transaction with a locking read, so two concurrent
// creations for the same product cannot both succeed.
func (h *AuctionHandler) Create(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()

	tx, err := h.Auctions.DB().BeginTx(ctx, nil)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	defer tx.Rollback()

	prod := auction.ProductInfo{}
	if p, err := h.Products.GetByID(ctx, req.ProductID); err == nil {
		prod.Exists = true
		prod.SellerID = p.SellerID
		prod.Stock = p.Stock
		if prod.HasOpenAuction, err = h.Auctions.HasOpenAuctionTx(ctx, tx, req.ProductID); err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
	} else if !errors.Is(err, repository.ErrProductNotFound) {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	a, err := h.Engine.New(auction.CreateInput{
		ProductID:    req.ProductID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		StartingBid:  req.StartingBid,
		ReservePrice: req.ReservePrice,
		BuyNowPrice:  req.BuyNowPrice,
		RequesterID:  uid,
		Role:         getRole(c),
	}, prod, time.Now().UTC())
	if err != nil {
		return writeDomainError(c, err)
	}
	if err := h.Auctions.CreateTx(ctx, tx, a); err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := tx.Commit(); err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusCreated, h.toResponse(a))
}

// Get returns an auction with its clock-derived status.  When the read
// observes a status transition (e.g. the end time passed with nobody
// bidding) the new status is persisted so later readers and the bid log
// agree.  The view counter is bumped outside the version guard.
func (h *AuctionHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
	}
	ctx := c.Request().Context()

	a, err := h.Auctions.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if before := a.Status; auction.Refresh(a, time.Now().UTC()) != before {
		if err := h.persistStatus(ctx, a); err != nil {
			// a concurrent writer already advanced the row; the response
			// still reflects the derived status
			c.Logger().Warn(err)
		}
	}
	if err := h.Auctions.IncrementViews(ctx, id); err != nil {
		c.Logger().Warn(err)
	} else {
		a.ViewCount++
	}
	return c.JSON(http.StatusOK, h.toResponse(a))
}

// persistStatus saves an already-loaded record whose status was
// re-derived in memory.  No second fetch: the version guard in SaveTx
// rejects the write if anyone changed the row since the read, and a
// conflict is fine because the other writer observed the same clock.
func (h *AuctionHandler) persistStatus(ctx context.Context, a *model.Auction) error {
	tx, err := h.Auctions.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := h.Auctions.SaveTx(ctx, tx, a); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns auctions filtered by status, product or seller.  Statuses
// are re-derived in memory for the response but not written back; reads
// of the individual auction or the sweeper persist transitions.
func (h *AuctionHandler) List(c echo.Context) error {
	var f repository.ListFilter
	if s := c.QueryParam("status"); s != "" {
		f.Status = model.AuctionStatus(s)
	}
	if v := c.QueryParam("product_id"); v != "" {
		if id, err := parseUintParam(v); err == nil {
			f.ProductID = id
		}
	}
	if v := c.QueryParam("seller_id"); v != "" {
		if id, err := parseUintParam(v); err == nil {
			f.SellerID = id
		}
	}
	auctions, err := h.Auctions.List(c.Request().Context(), f)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	now := time.Now().UTC()
	out := make([]auctionResponse, 0, len(auctions))
	for i := range auctions {
		auction.Refresh(&auctions[i], now)
		out = append(out, h.toResponse(&auctions[i]))
	}
	return c.JSON(http.StatusOK, out)
}

type updateAuctionRequest struct {
	ProductID    *uint64          `json:"product_id"`
	StartTime    *time.Time       `json:"start_time"`
	EndTime      *time.Time       `json:"end_time"`
	StartingBid  *decimal.Decimal `json:"starting_bid"`
	ReservePrice *decimal.Decimal `json:"reserve_price"`
	BuyNowPrice  *decimal.Decimal `json:"buy_now_price"`
}

// Update applies a partial update to an auction under the row lock.
func (h *AuctionHandler) Update(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
	}
	var req updateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	a, err := h.mutate(c, id, func(a *model.Auction) error {
		return h.Engine.ApplyUpdate(a, auction.FieldUpdate{
			ProductID:    req.ProductID,
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			StartingBid:  req.StartingBid,
			ReservePrice: req.ReservePrice,
			BuyNowPrice:  req.BuyNowPrice,
		}, uid, getRole(c), time.Now().UTC())
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, h.toResponse(a))
}

// Cancel cancels an auction under the row lock.
func (h *AuctionHandler) Cancel(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
	}
	a, err := h.mutate(c, id, func(a *model.Auction) error {
		return h.Engine.Cancel(a, uid, getRole(c), time.Now().UTC())
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, h.toResponse(a))
}

// Settle finalizes an ENDED auction.  The status flip commits first and
// the settlement event is published after the commit, fire-and-forget: a
// broker outage delays order creation but never rolls a sale back.  The
// reserve-raised edge persists the EXPIRED flip and reports 412.
func (h *AuctionHandler) Settle(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
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
	settleErr := h.Engine.Settle(a, uid, getRole(c), time.Now().UTC())
	if settleErr != nil && !errors.Is(settleErr, auction.ErrReserveNotMet) {
		return writeDomainError(c, settleErr)
	}
	// both outcomes (SOLD and the reserve-raised EXPIRED flip) persist
	if err := h.Auctions.SaveTx(ctx, tx, a); err != nil {
		return writeDomainError(c, err)
	}
	if err := tx.Commit(); err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if settleErr != nil {
		return writeDomainError(c, settleErr)
	}

	if h.Publisher != nil && a.WinnerID != nil {
		evt := queue.NewAuctionSettledEvent(a.ID, a.ProductID, a.SellerID, *a.WinnerID, a.CurrentHighestBid)
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.Publisher.PublishAuctionSettled(pubCtx, evt); err != nil {
				c.Logger().Errorf("publish settlement for auction %d: %v", a.ID, err)
			}
		}()
	}
	return c.JSON(http.StatusOK, h.toResponse(a))
}

// Bids returns the chronological bid log for an auction.
func (h *AuctionHandler) Bids(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Auctions.GetByID(ctx, id); err != nil {
		return writeDomainError(c, err)
	}
	bids, err := h.Auctions.ListBids(ctx, id)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	out := make([]bidResponse, 0, len(bids))
	for i := range bids {
		out = append(out, toBidResponse(&bids[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// mutate runs op against the row-locked auction and saves the result.
func (h *AuctionHandler) mutate(c echo.Context, id uint64, op func(*model.Auction) error) (*model.Auction, error) {
	ctx := c.Request().Context()
	tx, err := h.Auctions.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	a, err := h.Auctions.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := op(a); err != nil {
		return nil, err
	}
	if err := h.Auctions.SaveTx(ctx, tx, a); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return a, nil
}
