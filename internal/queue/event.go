// Package queue defines the settlement event contract and the RabbitMQ
// consumer that turns settled auctions into orders.
package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettledQueueName is the durable queue carrying settlement events.
const SettledQueueName = "auction.settled"

// AuctionSettledEvent is published when an auction transitions to SOLD.
// EventID doubles as the order reference, so a redelivered event maps to
// the same order row and the unique index makes the consumer idempotent.
type AuctionSettledEvent struct {
	EventID   string          `json:"event_id"`
	AuctionID uint64          `json:"auction_id"`
	ProductID uint64          `json:"product_id"`
	SellerID  uint64          `json:"seller_id"`
	WinnerID  uint64          `json:"winner_id"`
	Amount    decimal.Decimal `json:"amount"`
	SettledAt time.Time       `json:"settled_at"`
}

// NewAuctionSettledEvent stamps a fresh event with a UUID and the
// settlement time.
func NewAuctionSettledEvent(auctionID, productID, sellerID, winnerID uint64, amount decimal.Decimal) AuctionSettledEvent {
	return AuctionSettledEvent{
		EventID:   uuid.NewString(),
		AuctionID: auctionID,
		ProductID: productID,
		SellerID:  sellerID,
		WinnerID:  winnerID,
		Amount:    amount,
		SettledAt: time.Now().UTC(),
	}
}
