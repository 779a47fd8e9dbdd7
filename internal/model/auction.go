package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus enumerates the lifecycle states of an auction.  The
// non-terminal states (PENDING, UPCOMING, ACTIVE) are derived from the
// auction's schedule; the terminal states (SOLD, EXPIRED, CANCELLED) are
// never left once entered.  ENDED is the intermediate state between the
// end of bidding and settlement.
type AuctionStatus string

const (
	StatusPending   AuctionStatus = "PENDING"   // created but not yet published (legacy, never derived)
	StatusUpcoming  AuctionStatus = "UPCOMING"  // start time is in the future
	StatusActive    AuctionStatus = "ACTIVE"    // bidding window is open
	StatusEnded     AuctionStatus = "ENDED"     // bidding closed with a qualifying highest bid
	StatusSold      AuctionStatus = "SOLD"      // settled; winner recorded
	StatusExpired   AuctionStatus = "EXPIRED"   // bidding closed without a qualifying bid
	StatusCancelled AuctionStatus = "CANCELLED" // withdrawn by seller or admin
)

// Terminal reports whether the status can never change again.
func (s AuctionStatus) Terminal() bool {
	return s == StatusSold || s == StatusExpired || s == StatusCancelled
}

// OpenStatuses lists the states that count towards the one-open-auction-
// per-product rule.
func OpenStatuses() []AuctionStatus {
	return []AuctionStatus{StatusPending, StatusUpcoming, StatusActive}
}

// Auction represents a timed sale of a single product.  It corresponds to
// a row in the `auctions` table.  All monetary amounts are stored as
// DECIMAL(12,2) and handled as decimal values; Version backs optimistic
// locking on the write path.
//
// Fields:
//  ID                     – primary key identifier.
//  ProductID              – product being auctioned (one open auction per product).
//  SellerID               – owner of the product; may not bid.
//  StartTime              – when bidding opens (UTC).
//  EndTime                – when bidding closes (UTC); moves forward under anti-sniping.
//  StartingBid            – opening price, must be positive.
//  ReservePrice           – minimum acceptable winning bid (nil = no reserve).
//  BuyNowPrice            – optional immediate-purchase price.
//  CurrentHighestBid      – amount of the last bid, or StartingBid when no bids exist.
//  CurrentHighestBidderID – bidder holding the highest bid (nil iff no bids).
//  Status                 – lifecycle state, see AuctionStatus.
//  WinnerID               – set only on settlement.
//  ViewCount              – advisory counter of detail-page views.
//  Version                – optimistic-lock counter, bumped on every save.
//  Bids                   – append-only chronological bid log.
type Auction struct {
	ID                     uint64
	ProductID              uint64
	SellerID               uint64
	StartTime              time.Time
	EndTime                time.Time
	StartingBid            decimal.Decimal
	ReservePrice           *decimal.Decimal
	BuyNowPrice            *decimal.Decimal
	CurrentHighestBid      decimal.Decimal
	CurrentHighestBidderID *uint64
	Status                 AuctionStatus
	WinnerID               *uint64
	ViewCount              uint64
	Version                uint32
	Bids                   []Bid
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Reserve returns the effective reserve price; a missing reserve counts
// as zero so every bid qualifies.
func (a *Auction) Reserve() decimal.Decimal {
	if a.ReservePrice == nil {
		return decimal.Zero
	}
	return *a.ReservePrice
}

// HasBids reports whether at least one bid has been placed.
func (a *Auction) HasBids() bool { return len(a.Bids) > 0 }

// Bid is a single immutable entry in an auction's bid log.  Rows in the
// `bids` table are append-only: they are never updated or deleted.
type Bid struct {
	ID        uint64
	AuctionID uint64
	BidderID  uint64
	Amount    decimal.Decimal
	PlacedAt  time.Time
}
