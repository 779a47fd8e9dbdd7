package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/online-auction/internal/model"
)

// AuctionRepo provides persistence for auctions and their bid logs.  The
// bids table is append-only: rows are inserted, never updated or
// deleted.  Every write to the auctions row goes through SaveTx, which
// enforces the optimistic version guard; mutating handlers additionally
// take the row lock via GetForUpdateTx so that bid placement, update,
// cancellation and settlement on the same auction are mutually
// exclusive.  All timestamps are stored in UTC.
type AuctionRepo struct {
	db *sql.DB
}

// NewAuctionRepo returns an AuctionRepo bound to the given database.
func NewAuctionRepo(db *sql.DB) *AuctionRepo { return &AuctionRepo{db: db} }

// DB exposes the underlying handle so callers can begin transactions
// spanning multiple repositories.
func (r *AuctionRepo) DB() *sql.DB { return r.db }

const auctionColumns = `id, product_id, seller_id, start_time, end_time, starting_bid,
	   reserve_price, buy_now_price, current_highest_bid, current_highest_bidder_id,
	   status, winner_id, view_count, version, created_at, updated_at`

func scanAuction(row interface{ Scan(...any) error }) (*model.Auction, error) {
	var (
		a       model.Auction
		reserve decimal.NullDecimal
		buyNow  decimal.NullDecimal
		bidder  sql.NullInt64
		winner  sql.NullInt64
		status  string
	)
	err := row.Scan(
		&a.ID, &a.ProductID, &a.SellerID, &a.StartTime, &a.EndTime, &a.StartingBid,
		&reserve, &buyNow, &a.CurrentHighestBid, &bidder,
		&status, &winner, &a.ViewCount, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = model.AuctionStatus(status)
	if reserve.Valid {
		v := reserve.Decimal
		a.ReservePrice = &v
	}
	if buyNow.Valid {
		v := buyNow.Decimal
		a.BuyNowPrice = &v
	}
	if bidder.Valid {
		v := uint64(bidder.Int64)
		a.CurrentHighestBidderID = &v
	}
	if winner.Valid {
		v := uint64(winner.Int64)
		a.WinnerID = &v
	}
	return &a, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullID(id *uint64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

// HasOpenAuctionTx reports whether the product already has an auction in
// a non-terminal state.  It runs inside the caller's transaction with a
// locking read so two concurrent creations cannot both pass the check.
func (r *AuctionRepo) HasOpenAuctionTx(ctx context.Context, tx *sql.Tx, productID uint64) (bool, error) {
	statuses := model.OpenStatuses()
	ph := make([]string, len(statuses))
	args := make([]any, 0, len(statuses)+1)
	args = append(args, productID)
	for i, s := range statuses {
		ph[i] = "?"
		args = append(args, string(s))
	}
	q := `SELECT COUNT(*) FROM auctions WHERE product_id = ? AND status IN (` +
		strings.Join(ph, ",") + `) FOR UPDATE`
	var n int
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateTx inserts a new auction within the caller's transaction and
// populates the generated ID and DB-default timestamps on the record.
func (r *AuctionRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Auction) error {
	const q = `INSERT INTO auctions
		(product_id, seller_id, start_time, end_time, starting_bid, reserve_price,
		 buy_now_price, current_highest_bid, current_highest_bidder_id, status, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	res, err := tx.ExecContext(ctx, q,
		a.ProductID, a.SellerID, a.StartTime.UTC(), a.EndTime.UTC(), a.StartingBid,
		nullDecimal(a.ReservePrice), nullDecimal(a.BuyNowPrice),
		a.CurrentHighestBid, nullID(a.CurrentHighestBidderID), string(a.Status),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.Version = 1
	const sel = `SELECT created_at, updated_at FROM auctions WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, a.ID).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// GetByID loads an auction and its full bid log.  Returns
// ErrAuctionNotFound when no row exists.
func (r *AuctionRepo) GetByID(ctx context.Context, id uint64) (*model.Auction, error) {
	a, err := scanAuction(r.db.QueryRowContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	a.Bids, err = r.listBids(ctx, r.db, id)
	return a, err
}

// GetForUpdateTx loads an auction with SELECT ... FOR UPDATE inside the
// caller's transaction.  The row lock is the per-auction mutual
// exclusion scope: a concurrent bid, cancel or settle on the same
// auction blocks here until the first transaction commits, then
// observes its effect.  The bid log is loaded as well because the
// engine's validation depends on it.
func (r *AuctionRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Auction, error) {
	a, err := scanAuction(tx.QueryRowContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	a.Bids, err = r.listBids(ctx, tx, id)
	return a, err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *AuctionRepo) listBids(ctx context.Context, q querier, auctionID uint64) ([]model.Bid, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, auction_id, bidder_id, amount, placed_at FROM bids
		 WHERE auction_id = ? ORDER BY id`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bids := make([]model.Bid, 0)
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.PlacedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// ListBids returns the chronological bid log for an auction.
func (r *AuctionRepo) ListBids(ctx context.Context, auctionID uint64) ([]model.Bid, error) {
	return r.listBids(ctx, r.db, auctionID)
}

// SaveTx writes the auction's mutable fields guarded by the version
// column.  The statement only matches the version the record was loaded
// with; zero rows affected means another writer got there first and the
// caller must reload and re-validate.  On success the in-memory version
// is bumped to match the row.
func (r *AuctionRepo) SaveTx(ctx context.Context, tx *sql.Tx, a *model.Auction) error {
	const q = `UPDATE auctions SET
		product_id = ?, start_time = ?, end_time = ?, starting_bid = ?,
		reserve_price = ?, buy_now_price = ?, current_highest_bid = ?,
		current_highest_bidder_id = ?, status = ?, winner_id = ?, version = version + 1
		WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q,
		a.ProductID, a.StartTime.UTC(), a.EndTime.UTC(), a.StartingBid,
		nullDecimal(a.ReservePrice), nullDecimal(a.BuyNowPrice), a.CurrentHighestBid,
		nullID(a.CurrentHighestBidderID), string(a.Status), nullID(a.WinnerID),
		a.ID, a.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	a.Version++
	return nil
}

// InsertBidTx appends a bid row within the caller's transaction and
// populates its generated ID.
func (r *AuctionRepo) InsertBidTx(ctx context.Context, tx *sql.Tx, b *model.Bid) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bids (auction_id, bidder_id, amount, placed_at) VALUES (?, ?, ?, ?)`,
		b.AuctionID, b.BidderID, b.Amount, b.PlacedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// ListOpenEndedBefore returns the IDs of auctions still marked UPCOMING
// or ACTIVE whose end time has passed.  The sweeper uses it to close
// auctions that nobody read or bid on around their end time.
func (r *AuctionRepo) ListOpenEndedBefore(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM auctions WHERE status IN (?, ?) AND end_time <= ?`,
		string(model.StatusUpcoming), string(model.StatusActive), cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IncrementViews bumps the advisory view counter.  It bypasses the
// version guard on purpose: view counts never participate in auction
// invariants and must not invalidate concurrent bids.
func (r *AuctionRepo) IncrementViews(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auctions SET view_count = view_count + 1 WHERE id = ?`, id)
	return err
}

// ListFilter narrows List results; zero values mean no filtering.
type ListFilter struct {
	Status    model.AuctionStatus
	ProductID uint64
	SellerID  uint64
}

// List returns auctions matching the filter, newest first, without
// their bid logs.
func (r *AuctionRepo) List(ctx context.Context, f ListFilter) ([]model.Auction, error) {
	q := `SELECT ` + auctionColumns + ` FROM auctions`
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ProductID != 0 {
		conds = append(conds, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.SellerID != 0 {
		conds = append(conds, "seller_id = ?")
		args = append(args, f.SellerID)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Auction, 0)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
