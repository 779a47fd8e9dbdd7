package auction

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/online-auction/internal/model"
)

// Rules carries the tunable business constants of the engine.  They are
// configuration, not literals: deployments may change the increment or
// the sniping window without touching this package.
type Rules struct {
	// MinIncrementPct is the minimum bid increment expressed as a
	// fraction of the starting bid (0.01 = 1%).  It applies only when
	// at least one bid already exists.
	MinIncrementPct decimal.Decimal
	// SnipeWindow is the trailing interval before the end time in which
	// an incoming bid triggers an extension.
	SnipeWindow time.Duration
	// SnipeExtension is the new remaining lifetime granted by a late
	// bid, measured from that bid's timestamp.
	SnipeExtension time.Duration
}

// DefaultRules returns the stock configuration: 1% increments and a
// five-minute anti-sniping window and extension.
func DefaultRules() Rules {
	return Rules{
		MinIncrementPct: decimal.NewFromFloat(0.01),
		SnipeWindow:     5 * time.Minute,
		SnipeExtension:  5 * time.Minute,
	}
}

// Engine validates and applies auction state transitions.  It holds no
// storage; callers load an auction, invoke an operation and persist the
// result.  Callers are responsible for serializing mutations per auction
// (the HTTP layer runs them inside a row-locked transaction).
type Engine struct {
	rules Rules
}

// NewEngine returns an Engine using the given rules.
func NewEngine(rules Rules) *Engine { return &Engine{rules: rules} }

// Rules exposes the engine's configured rules.
func (e *Engine) Rules() Rules { return e.rules }

// ProductInfo is the slice of product state the engine needs at creation
// time.  The caller resolves it from the product repository so the
// engine stays free of persistence concerns.
type ProductInfo struct {
	Exists         bool
	SellerID       uint64
	Stock          uint32
	HasOpenAuction bool
}

// CreateInput bundles the caller-supplied parameters for a new auction.
type CreateInput struct {
	ProductID    uint64
	StartTime    time.Time
	EndTime      time.Time
	StartingBid  decimal.Decimal
	ReservePrice *decimal.Decimal
	BuyNowPrice  *decimal.Decimal
	RequesterID  uint64
	Role         string
}

// New validates the preconditions for opening an auction and builds the
// record.  The initial status is derived from the schedule via Refresh
// rather than hardcoded, so a creation with a past start time lands
// directly in ACTIVE.
func (e *Engine) New(in CreateInput, prod ProductInfo, now time.Time) (*model.Auction, error) {
	if !prod.Exists {
		return nil, ErrProductNotFound
	}
	if in.RequesterID != prod.SellerID && in.Role != model.RoleAdmin {
		return nil, fmt.Errorf("only the product's seller or an admin may open an auction: %w", ErrForbidden)
	}
	if prod.HasOpenAuction {
		return nil, ErrDuplicateAuction
	}
	if prod.Stock < 1 {
		return nil, ErrOutOfStock
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrInvalidInput)
	}
	if !in.StartingBid.IsPositive() {
		return nil, fmt.Errorf("%w: starting bid must be positive", ErrInvalidInput)
	}
	if in.ReservePrice != nil && in.ReservePrice.IsNegative() {
		return nil, fmt.Errorf("%w: reserve price must not be negative", ErrInvalidInput)
	}
	if in.BuyNowPrice != nil && !in.BuyNowPrice.IsPositive() {
		return nil, fmt.Errorf("%w: buy-now price must be positive", ErrInvalidInput)
	}

	a := &model.Auction{
		ProductID:         in.ProductID,
		SellerID:          prod.SellerID,
		StartTime:         in.StartTime.UTC(),
		EndTime:           in.EndTime.UTC(),
		StartingBid:       in.StartingBid,
		ReservePrice:      in.ReservePrice,
		BuyNowPrice:       in.BuyNowPrice,
		CurrentHighestBid: in.StartingBid,
		Bids:              []model.Bid{},
	}
	Refresh(a, now)
	return a, nil
}

// Refresh derives the auction's status from the clock and mutates the
// record in place, returning the resulting status.  It is pure with
// respect to everything but the status field, idempotent for a fixed
// `now`, and a no-op on terminal statuses.  Every operation that depends
// on status calls it first, because status is time-derived rather than
// purely event-derived.
func Refresh(a *model.Auction, now time.Time) model.AuctionStatus {
	if a.Status.Terminal() {
		return a.Status
	}
	switch {
	case now.Before(a.StartTime):
		a.Status = model.StatusUpcoming
	case now.Before(a.EndTime):
		a.Status = model.StatusActive
	default:
		if a.CurrentHighestBidderID != nil && a.CurrentHighestBid.GreaterThanOrEqual(a.Reserve()) {
			a.Status = model.StatusEnded
		} else {
			a.Status = model.StatusExpired
		}
	}
	return a.Status
}

// MinimumNextBid returns the smallest amount the next bid must reach.
// With prior bids the increment rule applies; the opening bid merely has
// to exceed the starting price.
func (e *Engine) MinimumNextBid(a *model.Auction) decimal.Decimal {
	if !a.HasBids() {
		return a.CurrentHighestBid
	}
	return a.CurrentHighestBid.Add(a.StartingBid.Mul(e.rules.MinIncrementPct))
}

// PlaceBid validates and appends a bid.  Checks run in order with the
// first failure winning: the auction must be ACTIVE after refresh, the
// bidder must not be the seller, the amount must exceed the current
// highest bid, and with prior bids present it must also clear the
// minimum increment.  A successful bid updates the highest bid and
// bidder and, when placed inside the sniping window, pushes the end time
// to now plus the configured extension.  The extension is recomputed per
// late bid, never accumulated.
func (e *Engine) PlaceBid(a *model.Auction, bidderID uint64, amount decimal.Decimal, now time.Time) (*model.Bid, error) {
	if st := Refresh(a, now); st != model.StatusActive {
		return nil, fmt.Errorf("bidding is closed (status %s): %w", st, ErrInvalidState)
	}
	if bidderID == a.SellerID {
		return nil, fmt.Errorf("sellers may not bid on their own auction: %w", ErrForbidden)
	}
	if !amount.GreaterThan(a.CurrentHighestBid) {
		return nil, &BidError{CurrentHighest: a.CurrentHighestBid, MinimumNext: e.MinimumNextBid(a), Strict: !a.HasBids()}
	}
	if a.HasBids() {
		if minNext := e.MinimumNextBid(a); amount.LessThan(minNext) {
			return nil, &BidError{CurrentHighest: a.CurrentHighestBid, MinimumNext: minNext}
		}
	}

	a.Bids = append(a.Bids, model.Bid{
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    amount,
		PlacedAt:  now.UTC(),
	})
	a.CurrentHighestBid = amount
	bidder := bidderID
	a.CurrentHighestBidderID = &bidder

	if a.EndTime.Sub(now) < e.rules.SnipeWindow {
		a.EndTime = now.Add(e.rules.SnipeExtension).UTC()
	}
	return &a.Bids[len(a.Bids)-1], nil
}

// FieldUpdate lists the mutable auction fields; nil pointers leave the
// field untouched.
type FieldUpdate struct {
	ProductID    *uint64
	StartTime    *time.Time
	EndTime      *time.Time
	StartingBid  *decimal.Decimal
	ReservePrice *decimal.Decimal
	BuyNowPrice  *decimal.Decimal
}

// ApplyUpdate applies permitted field changes.  Once bids exist the
// price-critical fields (starting bid, product, reserve) are frozen, and
// outside UPCOMING the schedule fields are frozen as well.  The status
// is re-derived afterwards so a moved end time takes effect immediately.
func (e *Engine) ApplyUpdate(a *model.Auction, upd FieldUpdate, requesterID uint64, role string, now time.Time) error {
	if requesterID != a.SellerID && role != model.RoleAdmin {
		return fmt.Errorf("only the seller or an admin may update an auction: %w", ErrForbidden)
	}
	st := Refresh(a, now)
	if a.HasBids() {
		if upd.StartingBid != nil || upd.ProductID != nil || upd.ReservePrice != nil {
			return fmt.Errorf("starting bid, product and reserve are locked once bids exist: %w", ErrInvalidState)
		}
		if st != model.StatusUpcoming && (upd.StartTime != nil || upd.EndTime != nil) {
			return fmt.Errorf("schedule is locked after bidding has begun: %w", ErrInvalidState)
		}
	}

	startTime, endTime := a.StartTime, a.EndTime
	if upd.StartTime != nil {
		startTime = upd.StartTime.UTC()
	}
	if upd.EndTime != nil {
		endTime = upd.EndTime.UTC()
	}
	if !endTime.After(startTime) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidInput)
	}
	if upd.StartingBid != nil && !upd.StartingBid.IsPositive() {
		return fmt.Errorf("%w: starting bid must be positive", ErrInvalidInput)
	}
	if upd.ReservePrice != nil && upd.ReservePrice.IsNegative() {
		return fmt.Errorf("%w: reserve price must not be negative", ErrInvalidInput)
	}
	if upd.BuyNowPrice != nil && !upd.BuyNowPrice.IsPositive() {
		return fmt.Errorf("%w: buy-now price must be positive", ErrInvalidInput)
	}

	a.StartTime, a.EndTime = startTime, endTime
	if upd.ProductID != nil {
		a.ProductID = *upd.ProductID
	}
	if upd.StartingBid != nil {
		a.StartingBid = *upd.StartingBid
		if !a.HasBids() {
			a.CurrentHighestBid = *upd.StartingBid
		}
	}
	if upd.ReservePrice != nil {
		a.ReservePrice = upd.ReservePrice
	}
	if upd.BuyNowPrice != nil {
		a.BuyNowPrice = upd.BuyNowPrice
	}
	Refresh(a, now)
	return nil
}

// Cancel marks the auction CANCELLED.  Finished auctions (ENDED, SOLD,
// EXPIRED) cannot be cancelled, and an ACTIVE auction that has bids may
// only be cancelled by an admin, protecting bidders from sellers pulling
// a sale that is going badly for them.
func (e *Engine) Cancel(a *model.Auction, requesterID uint64, role string, now time.Time) error {
	if requesterID != a.SellerID && role != model.RoleAdmin {
		return fmt.Errorf("only the seller or an admin may cancel an auction: %w", ErrForbidden)
	}
	st := Refresh(a, now)
	if st == model.StatusEnded || st == model.StatusSold || st == model.StatusExpired {
		return fmt.Errorf("auction already finished (status %s): %w", st, ErrInvalidState)
	}
	if st == model.StatusActive && a.HasBids() && role != model.RoleAdmin {
		return fmt.Errorf("an active auction with bids can only be cancelled by an admin: %w", ErrForbidden)
	}
	a.Status = model.StatusCancelled
	return nil
}

// Settle converts an ENDED auction into SOLD, recording the winner.
// ENDED is non-terminal, so the refresh re-derives it: when the reserve
// turned out to be unmet (possible when the reserve was raised after the
// end) the auction lands on EXPIRED and ErrReserveNotMet is returned for
// the caller to persist that flip.  An auction that never reached ENDED
// is an ordinary state error.  Settlement does not create the downstream
// order; the caller publishes an event for that and failures there never
// roll the settlement back.
func (e *Engine) Settle(a *model.Auction, requesterID uint64, role string, now time.Time) error {
	if requesterID != a.SellerID && role != model.RoleAdmin {
		return fmt.Errorf("only the seller or an admin may settle an auction: %w", ErrForbidden)
	}
	was := a.Status
	st := Refresh(a, now)
	if was == model.StatusEnded && st == model.StatusExpired {
		return ErrReserveNotMet
	}
	if st != model.StatusEnded {
		return fmt.Errorf("only an ended auction can be settled (status %s): %w", st, ErrInvalidState)
	}
	if a.CurrentHighestBidderID == nil {
		return fmt.Errorf("auction has no bids to settle: %w", ErrInvalidState)
	}
	winner := *a.CurrentHighestBidderID
	a.WinnerID = &winner
	a.Status = model.StatusSold
	return nil
}
