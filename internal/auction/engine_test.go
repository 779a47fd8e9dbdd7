package auction

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/online-auction/internal/model"
)

var (
	testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seller  = uint64(1)
	alice   = uint64(2)
	bob     = uint64(3)
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testEngine() *Engine { return NewEngine(DefaultRules()) }

// activeAuction returns an auction that started an hour ago and runs for
// another hour, with a starting bid of 100 and no reserve.
func activeAuction() *model.Auction {
	a, err := testEngine().New(CreateInput{
		ProductID:   10,
		StartTime:   testNow.Add(-time.Hour),
		EndTime:     testNow.Add(time.Hour),
		StartingBid: dec("100"),
		RequesterID: seller,
		Role:        model.RoleSeller,
	}, ProductInfo{Exists: true, SellerID: seller, Stock: 3}, testNow)
	if err != nil {
		panic(err)
	}
	return a
}

func TestNew_InitialState(t *testing.T) {
	a := activeAuction()

	check.Equal(t, model.StatusActive, a.Status)
	check.True(t, a.CurrentHighestBid.Equal(dec("100")))
	check.Equal(t, 0, len(a.Bids))
	check.Nil(t, a.CurrentHighestBidderID)
	check.Nil(t, a.WinnerID)
}

func TestNew_FutureStartIsUpcoming(t *testing.T) {
	a, err := testEngine().New(CreateInput{
		ProductID:   10,
		StartTime:   testNow.Add(time.Hour),
		EndTime:     testNow.Add(2 * time.Hour),
		StartingBid: dec("50"),
		RequesterID: seller,
		Role:        model.RoleSeller,
	}, ProductInfo{Exists: true, SellerID: seller, Stock: 1}, testNow)

	check.Nil(t, err)
	check.Equal(t, model.StatusUpcoming, a.Status)
}

func TestNew_Preconditions(t *testing.T) {
	prod := ProductInfo{Exists: true, SellerID: seller, Stock: 1}
	base := CreateInput{
		ProductID:   10,
		StartTime:   testNow,
		EndTime:     testNow.Add(time.Hour),
		StartingBid: dec("100"),
		RequesterID: seller,
		Role:        model.RoleSeller,
	}

	tests := []struct {
		name string
		in   func(CreateInput) CreateInput
		prod ProductInfo
		want error
	}{
		{"missing product", func(in CreateInput) CreateInput { return in }, ProductInfo{}, ErrProductNotFound},
		{"not the seller", func(in CreateInput) CreateInput { in.RequesterID = alice; return in }, prod, ErrForbidden},
		{"duplicate open auction", func(in CreateInput) CreateInput { return in },
			ProductInfo{Exists: true, SellerID: seller, Stock: 1, HasOpenAuction: true}, ErrDuplicateAuction},
		{"out of stock", func(in CreateInput) CreateInput { return in },
			ProductInfo{Exists: true, SellerID: seller}, ErrOutOfStock},
		{"end before start", func(in CreateInput) CreateInput { in.EndTime = in.StartTime.Add(-time.Minute); return in }, prod, ErrInvalidInput},
		{"end equals start", func(in CreateInput) CreateInput { in.EndTime = in.StartTime; return in }, prod, ErrInvalidInput},
		{"zero starting bid", func(in CreateInput) CreateInput { in.StartingBid = decimal.Zero; return in }, prod, ErrInvalidInput},
		{"negative reserve", func(in CreateInput) CreateInput { in.ReservePrice = decPtr("-1"); return in }, prod, ErrInvalidInput},
		{"zero buy-now", func(in CreateInput) CreateInput { in.BuyNowPrice = decPtr("0"); return in }, prod, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testEngine().New(tt.in(base), tt.prod, testNow)
			check.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestNew_AdminMayCreateForSeller(t *testing.T) {
	_, err := testEngine().New(CreateInput{
		ProductID:   10,
		StartTime:   testNow,
		EndTime:     testNow.Add(time.Hour),
		StartingBid: dec("100"),
		RequesterID: alice,
		Role:        model.RoleAdmin,
	}, ProductInfo{Exists: true, SellerID: seller, Stock: 1}, testNow)
	check.Nil(t, err)
}

func TestRefresh_TimeDerivation(t *testing.T) {
	a := activeAuction()

	check.Equal(t, model.StatusUpcoming, Refresh(a, a.StartTime.Add(-time.Minute)))
	check.Equal(t, model.StatusActive, Refresh(a, a.StartTime))
	check.Equal(t, model.StatusActive, Refresh(a, a.EndTime.Add(-time.Second)))
	// past the end with no bids -> expired
	check.Equal(t, model.StatusExpired, Refresh(a, a.EndTime))
}

func TestRefresh_EndedWhenReserveMet(t *testing.T) {
	e := testEngine()
	a := activeAuction()
	a.ReservePrice = decPtr("100")
	_, err := e.PlaceBid(a, alice, dec("150"), testNow)
	check.Nil(t, err)

	check.Equal(t, model.StatusEnded, Refresh(a, a.EndTime.Add(time.Minute)))
}

func TestRefresh_ExpiredWhenReserveUnmet(t *testing.T) {
	e := testEngine()
	a := activeAuction()
	a.ReservePrice = decPtr("200")
	_, err := e.PlaceBid(a, alice, dec("150"), testNow)
	check.Nil(t, err)

	check.Equal(t, model.StatusExpired, Refresh(a, a.EndTime.Add(time.Minute)))
}

func TestRefresh_Idempotent(t *testing.T) {
	a := activeAuction()
	at := a.EndTime.Add(time.Minute)

	first := Refresh(a, at)
	second := Refresh(a, at)
	check.Equal(t, first, second)
}

func TestRefresh_TerminalStatusNeverChanges(t *testing.T) {
	for _, st := range []model.AuctionStatus{model.StatusCancelled, model.StatusSold, model.StatusExpired} {
		a := activeAuction()
		a.Status = st
		// sweep across times before, during and after the window
		for _, at := range []time.Time{a.StartTime.Add(-time.Hour), testNow, a.EndTime.Add(time.Hour)} {
			check.Equal(t, st, Refresh(a, at))
		}
	}
}

func TestPlaceBid_OrderedChecks(t *testing.T) {
	e := testEngine()

	t.Run("closed auction beats seller check", func(t *testing.T) {
		a := activeAuction()
		_, err := e.PlaceBid(a, seller, dec("500"), a.EndTime.Add(time.Minute))
		check.True(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("seller may not bid", func(t *testing.T) {
		a := activeAuction()
		_, err := e.PlaceBid(a, seller, dec("500"), testNow)
		check.True(t, errors.Is(err, ErrForbidden))
	})

	t.Run("upcoming auction rejects bids", func(t *testing.T) {
		a := activeAuction()
		_, err := e.PlaceBid(a, alice, dec("500"), a.StartTime.Add(-time.Minute))
		check.True(t, errors.Is(err, ErrInvalidState))
	})
}

// Scenario from the pricing rules: starting bid 100, no reserve.  100 is
// rejected (not strictly greater), 101 is accepted as the opening bid,
// 101.50 is then rejected because the minimum increment (1% of 100)
// requires at least 102.
func TestPlaceBid_MinimumIncrement(t *testing.T) {
	e := testEngine()
	a := activeAuction()

	_, err := e.PlaceBid(a, alice, dec("100"), testNow)
	var be *BidError
	check.True(t, errors.As(err, &be))
	check.True(t, be.CurrentHighest.Equal(dec("100")))

	_, err = e.PlaceBid(a, alice, dec("101"), testNow)
	check.Nil(t, err)
	check.True(t, a.CurrentHighestBid.Equal(dec("101")))

	_, err = e.PlaceBid(a, bob, dec("101.5"), testNow)
	check.True(t, errors.As(err, &be))
	check.True(t, be.MinimumNext.Equal(dec("102")))
	check.True(t, be.CurrentHighest.Equal(dec("101")))

	_, err = e.PlaceBid(a, bob, dec("102"), testNow)
	check.Nil(t, err)
}

func TestPlaceBid_HighestBidStrictlyIncreasing(t *testing.T) {
	e := testEngine()
	a := activeAuction()

	amounts := []string{"101", "105", "110.50", "200"}
	prev := a.StartingBid
	for i, s := range amounts {
		bidder := alice
		if i%2 == 1 {
			bidder = bob
		}
		bid, err := e.PlaceBid(a, bidder, dec(s), testNow.Add(time.Duration(i)*time.Second))
		check.Nil(t, err)
		check.True(t, a.CurrentHighestBid.GreaterThan(prev))
		check.True(t, a.CurrentHighestBid.Equal(bid.Amount))
		prev = a.CurrentHighestBid
	}
	check.Equal(t, len(amounts), len(a.Bids))
	// the log is chronological and the last entry holds the highest bid
	check.True(t, a.Bids[len(a.Bids)-1].Amount.Equal(a.CurrentHighestBid))
	check.Equal(t, bob, *a.CurrentHighestBidderID)
}

func TestPlaceBid_AntiSniping(t *testing.T) {
	e := testEngine()

	t.Run("late bid extends to now plus extension", func(t *testing.T) {
		a := activeAuction()
		bidAt := a.EndTime.Add(-2 * time.Minute)
		_, err := e.PlaceBid(a, alice, dec("120"), bidAt)
		check.Nil(t, err)
		check.Equal(t, bidAt.Add(5*time.Minute), a.EndTime)
	})

	t.Run("early bid leaves end time unchanged", func(t *testing.T) {
		a := activeAuction()
		end := a.EndTime
		_, err := e.PlaceBid(a, alice, dec("120"), a.EndTime.Add(-10*time.Minute))
		check.Nil(t, err)
		check.Equal(t, end, a.EndTime)
	})

	t.Run("extension recomputes per late bid", func(t *testing.T) {
		a := activeAuction()
		first := a.EndTime.Add(-time.Minute)
		_, err := e.PlaceBid(a, alice, dec("120"), first)
		check.Nil(t, err)
		check.Equal(t, first.Add(5*time.Minute), a.EndTime)

		second := a.EndTime.Add(-30 * time.Second)
		_, err = e.PlaceBid(a, bob, dec("130"), second)
		check.Nil(t, err)
		check.Equal(t, second.Add(5*time.Minute), a.EndTime)
	})
}

func TestApplyUpdate_LockedFields(t *testing.T) {
	e := testEngine()

	t.Run("price fields freeze once bids exist", func(t *testing.T) {
		a := activeAuction()
		_, err := e.PlaceBid(a, alice, dec("110"), testNow)
		check.Nil(t, err)

		err = e.ApplyUpdate(a, FieldUpdate{StartingBid: decPtr("90")}, seller, model.RoleSeller, testNow)
		check.True(t, errors.Is(err, ErrInvalidState))
		err = e.ApplyUpdate(a, FieldUpdate{ReservePrice: decPtr("500")}, seller, model.RoleSeller, testNow)
		check.True(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("schedule freezes when active with bids", func(t *testing.T) {
		a := activeAuction()
		_, err := e.PlaceBid(a, alice, dec("110"), testNow)
		check.Nil(t, err)

		later := testNow.Add(3 * time.Hour)
		err = e.ApplyUpdate(a, FieldUpdate{EndTime: &later}, seller, model.RoleSeller, testNow)
		check.True(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		a := activeAuction()
		err := e.ApplyUpdate(a, FieldUpdate{BuyNowPrice: decPtr("999")}, alice, model.RoleBuyer, testNow)
		check.True(t, errors.Is(err, ErrForbidden))
	})

	t.Run("bid-free upcoming auction is fully editable", func(t *testing.T) {
		a := activeAuction()
		newStart := testNow.Add(time.Hour)
		newEnd := testNow.Add(2 * time.Hour)
		err := e.ApplyUpdate(a, FieldUpdate{
			StartTime:   &newStart,
			EndTime:     &newEnd,
			StartingBid: decPtr("250"),
		}, seller, model.RoleSeller, testNow)
		check.Nil(t, err)
		check.Equal(t, model.StatusUpcoming, a.Status)
		// with no bids the highest bid tracks the starting bid
		check.True(t, a.CurrentHighestBid.Equal(dec("250")))
	})

	t.Run("inverted schedule is rejected", func(t *testing.T) {
		a := activeAuction()
		bad := a.StartTime.Add(-time.Hour)
		err := e.ApplyUpdate(a, FieldUpdate{EndTime: &bad}, seller, model.RoleSeller, testNow)
		check.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func TestCancel(t *testing.T) {
	e := testEngine()

	t.Run("seller cancels a bid-free auction", func(t *testing.T) {
		a := activeAuction()
		check.Nil(t, e.Cancel(a, seller, model.RoleSeller, testNow))
		check.Equal(t, model.StatusCancelled, a.Status)
		// terminal: a later refresh cannot resurrect it
		check.Equal(t, model.StatusCancelled, Refresh(a, a.EndTime.Add(time.Hour)))
	})

	t.Run("active with bids needs admin", func(t *testing.T) {
		a := activeAuction()
		_, err := e.PlaceBid(a, alice, dec("110"), testNow)
		check.Nil(t, err)

		err = e.Cancel(a, seller, model.RoleSeller, testNow)
		check.True(t, errors.Is(err, ErrForbidden))

		check.Nil(t, e.Cancel(a, uint64(99), model.RoleAdmin, testNow))
		check.Equal(t, model.StatusCancelled, a.Status)
	})

	t.Run("finished auction cannot be cancelled", func(t *testing.T) {
		a := activeAuction()
		_, err := e.PlaceBid(a, alice, dec("110"), testNow)
		check.Nil(t, err)

		err = e.Cancel(a, seller, model.RoleSeller, a.EndTime.Add(time.Minute))
		check.True(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		a := activeAuction()
		err := e.Cancel(a, bob, model.RoleBuyer, testNow)
		check.True(t, errors.Is(err, ErrForbidden))
	})
}

// Scenario: bid 150 against reserve 100 -> ENDED, settle -> SOLD with the
// bidder as winner.
func TestSettle_ReserveMet(t *testing.T) {
	e := testEngine()
	a := activeAuction()
	a.ReservePrice = decPtr("100")
	_, err := e.PlaceBid(a, alice, dec("150"), testNow)
	check.Nil(t, err)

	after := a.EndTime.Add(time.Minute)
	check.Equal(t, model.StatusEnded, Refresh(a, after))
	check.Nil(t, e.Settle(a, seller, model.RoleSeller, after))
	check.Equal(t, model.StatusSold, a.Status)
	check.Equal(t, alice, *a.WinnerID)
}

// Scenario: bid 80 against reserve 100 -> the auction expires rather than
// ending, so settlement is unreachable.
func TestSettle_ReserveUnmetNeverEnds(t *testing.T) {
	e := testEngine()
	a := activeAuction()
	a.ReservePrice = decPtr("100")
	a.StartingBid = dec("50")
	a.CurrentHighestBid = dec("50")
	_, err := e.PlaceBid(a, alice, dec("80"), testNow)
	check.Nil(t, err)

	after := a.EndTime.Add(time.Minute)
	check.Equal(t, model.StatusExpired, Refresh(a, after))

	err = e.Settle(a, seller, model.RoleSeller, after)
	check.True(t, errors.Is(err, ErrInvalidState))
	check.Nil(t, a.WinnerID)
}

func TestSettle_ReserveRaisedAfterEnd(t *testing.T) {
	e := testEngine()
	a := activeAuction()
	_, err := e.PlaceBid(a, alice, dec("150"), testNow)
	check.Nil(t, err)

	after := a.EndTime.Add(time.Minute)
	check.Equal(t, model.StatusEnded, Refresh(a, after))
	// reserve bumped above the highest bid between end and settlement
	a.ReservePrice = decPtr("500")

	err = e.Settle(a, seller, model.RoleSeller, after)
	check.True(t, errors.Is(err, ErrReserveNotMet))
	check.Equal(t, model.StatusExpired, a.Status)
	check.Nil(t, a.WinnerID)

	// the flip is terminal: settling again is a plain state error
	err = e.Settle(a, seller, model.RoleSeller, after)
	check.True(t, errors.Is(err, ErrInvalidState))
}

func TestSettle_Preconditions(t *testing.T) {
	e := testEngine()

	t.Run("active auction cannot settle", func(t *testing.T) {
		a := activeAuction()
		err := e.Settle(a, seller, model.RoleSeller, testNow)
		check.True(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		a := activeAuction()
		err := e.Settle(a, bob, model.RoleBuyer, a.EndTime.Add(time.Minute))
		check.True(t, errors.Is(err, ErrForbidden))
	})
}

// Two bids race for the same prior highest bid.  The engine is exercised
// the way the HTTP layer drives it: each placement is serialized (the
// handler holds a row lock), so the second caller observes the first
// caller's effect and is validated against it.  Exactly one final state
// must result: highest bid 120 with both bids recorded in arrival order,
// or the lower bid rejected outright.
func TestPlaceBid_SerializedRace(t *testing.T) {
	e := testEngine()

	t.Run("lower bid lands first", func(t *testing.T) {
		a := activeAuction()
		_, err := e.PlaceBid(a, alice, dec("110"), testNow)
		check.Nil(t, err)
		_, err = e.PlaceBid(a, bob, dec("120"), testNow.Add(time.Millisecond))
		check.Nil(t, err)

		check.True(t, a.CurrentHighestBid.Equal(dec("120")))
		check.Equal(t, 2, len(a.Bids))
		check.True(t, a.Bids[0].Amount.Equal(dec("110")))
		check.True(t, a.Bids[1].Amount.Equal(dec("120")))
	})

	t.Run("higher bid lands first", func(t *testing.T) {
		a := activeAuction()
		_, err := e.PlaceBid(a, bob, dec("120"), testNow)
		check.Nil(t, err)
		_, err = e.PlaceBid(a, alice, dec("110"), testNow.Add(time.Millisecond))
		var be *BidError
		check.True(t, errors.As(err, &be))

		// the losing bid must not appear anywhere
		check.True(t, a.CurrentHighestBid.Equal(dec("120")))
		check.Equal(t, 1, len(a.Bids))
	})
}
