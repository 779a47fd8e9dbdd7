// Package auction implements the auction lifecycle: creation, time-derived
// status refresh, bid validation with anti-sniping, field updates,
// cancellation and settlement.  The package is pure: it validates and
// mutates in-memory auction records and leaves persistence to the caller.
package auction

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors returned by engine operations.  Handlers map these to
// HTTP status codes with errors.Is.
var (
	// ErrProductNotFound indicates the referenced product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrForbidden indicates the requester is neither the product's
	// seller nor an admin, or a seller attempted to bid on their own
	// auction.
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicateAuction indicates the product already has an auction
	// in a non-terminal state.
	ErrDuplicateAuction = errors.New("product already has an open auction")

	// ErrOutOfStock indicates the product has no stock left to auction.
	ErrOutOfStock = errors.New("product out of stock")

	// ErrInvalidInput indicates malformed timing or price constraints.
	ErrInvalidInput = errors.New("invalid auction parameters")

	// ErrInvalidState indicates the operation is not valid for the
	// auction's current (refreshed) status.
	ErrInvalidState = errors.New("operation not allowed in current auction state")

	// ErrReserveNotMet indicates settlement found the highest bid below
	// the reserve price; the auction transitions to EXPIRED.
	ErrReserveNotMet = errors.New("reserve price not met")
)

// BidError rejects a bid that does not clear the current highest bid or
// the minimum increment.  It carries enough detail for the caller to
// present an actionable message without re-querying the auction.
type BidError struct {
	CurrentHighest decimal.Decimal // highest bid at validation time
	MinimumNext    decimal.Decimal // smallest acceptable next amount
	Strict         bool            // true when MinimumNext itself is still too low (must exceed)
}

func (e *BidError) Error() string {
	if e.Strict {
		return fmt.Sprintf("bid must exceed current highest bid %s", e.CurrentHighest)
	}
	return fmt.Sprintf("bid must be at least %s (current highest %s)", e.MinimumNext, e.CurrentHighest)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match bid rejections, since
// a too-low bid is a malformed argument rather than a state problem.
func (e *BidError) Unwrap() error { return ErrInvalidInput }
