package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/online-auction/internal/model"
)

// OrderRepo persists orders.  Settlement orders are written by the queue
// consumer; the unique `reference` column makes redelivered settlement
// events idempotent.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// Create inserts an order row.  A duplicate reference (MySQL error 1062)
// is reported as ok=false with a nil error so consumers can ack a
// redelivered event without side effects.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) (ok bool, err error) {
	var auctionID sql.NullInt64
	if o.AuctionID != nil {
		auctionID = sql.NullInt64{Int64: int64(*o.AuctionID), Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (reference, product_id, buyer_id, auction_id, amount, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.Reference, o.ProductID, o.BuyerID, auctionID, o.Amount, o.Status)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return false, nil
		}
		return false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	o.ID = uint64(id)
	return true, nil
}

// ListByBuyer returns the buyer's orders, newest first.
func (r *OrderRepo) ListByBuyer(ctx context.Context, buyerID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, reference, product_id, buyer_id, auction_id, amount, status, created_at
		 FROM orders WHERE buyer_id = ? ORDER BY created_at DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Order, 0)
	for rows.Next() {
		var (
			o         model.Order
			auctionID sql.NullInt64
		)
		if err := rows.Scan(&o.ID, &o.Reference, &o.ProductID, &o.BuyerID,
			&auctionID, &o.Amount, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		if auctionID.Valid {
			v := uint64(auctionID.Int64)
			o.AuctionID = &v
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
