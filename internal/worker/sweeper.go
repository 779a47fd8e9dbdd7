// Package worker contains the background expiry sweeper.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/online-auction/internal/auction"
	"github.com/iliyamo/online-auction/internal/repository"
)

// Sweeper periodically closes auctions whose end time has passed without
// anyone reading or bidding on them.  Status is derived from the clock
// on every operation, so the sweeper is not needed for correctness; it
// keeps listings and the database in step with what readers would
// derive anyway.
type Sweeper struct {
	Auctions *repository.AuctionRepo
	Interval time.Duration
}

// Run sweeps on the configured interval until the context is cancelled.
// Intended to be launched as a goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.sweep(ctx); err != nil {
				log.Printf("sweeper: sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("sweeper: closed %d expired auction(s)", n)
			}
		}
	}
}

// sweep finds open auctions past their end time and persists their
// derived status one by one under the row lock.  Per-auction failures
// are logged and skipped; a version conflict just means a concurrent
// request already closed that auction.
func (s *Sweeper) sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	ids, err := s.Auctions.ListOpenEndedBefore(ctx, now)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, id := range ids {
		if err := s.closeOne(ctx, id, now); err != nil {
			log.Printf("sweeper: auction %d: %v", id, err)
			continue
		}
		closed++
	}
	return closed, nil
}

func (s *Sweeper) closeOne(ctx context.Context, id uint64, now time.Time) error {
	tx, err := s.Auctions.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	a, err := s.Auctions.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return err
	}
	before := a.Status
	if auction.Refresh(a, now) == before {
		return nil // someone got there first
	}
	if err := s.Auctions.SaveTx(ctx, tx, a); err != nil {
		return err
	}
	return tx.Commit()
}
