package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item listed by a seller.  Auctions reference
// products by ID; a product must have stock remaining before an auction
// can be opened on it.  This struct corresponds to a row in the
// `products` table.
//
// Fields:
//  ID          – primary key identifier.
//  SellerID    – user who listed the product.
//  Name        – display name.
//  Description – optional free-form description.
//  Price       – fixed list price for non-auction sales.
//  Stock       – units available.
//  IsActive    – whether the listing is visible.
type Product struct {
	ID          uint64
	SellerID    uint64
	Name        string
	Description *string
	Price       decimal.Decimal
	Stock       uint32
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
