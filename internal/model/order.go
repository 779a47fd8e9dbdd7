package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order records a completed purchase.  Orders originating from auction
// settlement carry the auction ID and are written by the settlement
// consumer, outside the request path that settled the auction.
//
// Fields:
//  ID        – primary key identifier.
//  Reference – external reference (UUID), unique; doubles as the
//              idempotency key for settlement events.
//  ProductID – product purchased.
//  BuyerID   – purchasing user.
//  AuctionID – originating auction (nil for direct purchases).
//  Amount    – total paid.
//  Status    – order state (CREATED, PAID, SHIPPED, DELIVERED).
type Order struct {
	ID        uint64
	Reference string
	ProductID uint64
	BuyerID   uint64
	AuctionID *uint64
	Amount    decimal.Decimal
	Status    string
	CreatedAt time.Time
}
