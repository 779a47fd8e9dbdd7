package model

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestTerminalStatuses(t *testing.T) {
	terminal := []AuctionStatus{StatusSold, StatusExpired, StatusCancelled}
	for _, st := range terminal {
		check.True(t, st.Terminal())
	}
	open := []AuctionStatus{StatusPending, StatusUpcoming, StatusActive, StatusEnded}
	for _, st := range open {
		check.False(t, st.Terminal())
	}
}

func TestOpenStatusesExcludeFinishedStates(t *testing.T) {
	open := OpenStatuses()
	check.Equal(t, 3, len(open))
	for _, st := range open {
		check.False(t, st.Terminal())
		// ENDED is non-terminal but no longer blocks a new auction
		check.NotEqual(t, StatusEnded, st)
	}
}

func TestReserveDefaultsToZero(t *testing.T) {
	var a Auction
	check.True(t, a.Reserve().IsZero())

	r := decimal.NewFromInt(150)
	a.ReservePrice = &r
	check.True(t, a.Reserve().Equal(r))
}

func TestHasBids(t *testing.T) {
	var a Auction
	check.False(t, a.HasBids())
	a.Bids = []Bid{{BidderID: 7, Amount: decimal.NewFromInt(10)}}
	check.True(t, a.HasBids())
}
