package auction

import (
	"context"
	"log/slog"
	"time"

	"github.com/bidnbuy/backend/database/models"
	"github.com/uptrace/bun"
)

// expireBatchLimit caps how many lots one sweep pass will process, so a
// backlog cannot pin a sweeper goroutine forever.
const expireBatchLimit = 500

// ExpireDuePayments disqualifies leaders who missed their payment deadline
// and hands each lot to the next bidder in line. Lots are processed one per
// transaction with SKIP LOCKED, so concurrent sweepers and user operations
// never deadlock; a payment that lands first simply wins the row lock.
// A lot that fails to process is logged and set aside for the rest of the
// pass, so one bad lot never starves the ones behind it.
func (m *Manager) ExpireDuePayments(ctx context.Context) (int, error) {
	processed := 0
	var skipped []int64

	for processed+len(skipped) < expireBatchLimit {
		lotID, empty, err := m.expireOne(ctx, skipped)
		if empty {
			break
		}
		if err != nil {
			if lotID == 0 {
				return processed, err
			}
			slog.Error("Failed to expire lot",
				slog.String("type", "sweep"),
				slog.Int64("lot_id", lotID),
				slog.Any("error", err),
			)
			skipped = append(skipped, lotID)
			continue
		}
		processed++
	}
	return processed, nil
}

func (m *Manager) expireOne(ctx context.Context, exclude []int64) (int64, bool, error) {
	var lotID int64
	empty := false

	err := m.runInTx(ctx, func(tx bun.Tx) error {
		now := m.clock()

		due, err := m.lots.LockDuePendingLots(ctx, tx, now, 1, exclude)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			empty = true
			return nil
		}
		lot := due[0]
		lotID = lot.ID

		activeBids, err := m.bids.GetActiveByLot(ctx, tx, lot.ID)
		if err != nil {
			return err
		}

		remaining := activeBids
		if leader := leadingBid(activeBids); leader != nil {
			if err := m.bids.Deactivate(ctx, tx, leader.ID, now); err != nil {
				return err
			}
			m.notifier.Notify(ctx, tx, leader.UserID, msgPaymentMissed(lot))
			remaining = withoutBid(activeBids, leader.ID)
		}

		outcome := applyWinnerTransfer(lot, remaining, now)
		m.notifyTransfer(ctx, tx, lot, outcome)

		if err := m.lots.Update(ctx, tx, lot); err != nil {
			return err
		}

		slog.Info("Payment deadline expired",
			slog.String("type", "sweep"),
			slog.Int64("lot_id", lot.ID),
			slog.Bool("transferred", outcome.NewLeader != nil),
			slog.Bool("reverted", outcome.Reverted),
		)
		return nil
	})
	return lotID, empty, err
}

// PurgeRetention deletes closed_unsold lots past their retention window and
// deactivated bids past the grace window.
func (m *Manager) PurgeRetention(ctx context.Context, lotRetention, bidGrace time.Duration) (int, int64, error) {
	now := m.clock()

	stale, err := m.lots.GetClosedBefore(ctx, now.Add(-lotRetention))
	if err != nil {
		return 0, 0, err
	}

	lotsPurged := 0
	for _, candidate := range stale {
		var imageURLs []string

		err := m.runInTx(ctx, func(tx bun.Tx) error {
			lot, err := m.lots.GetByIDForUpdate(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			// Re-check under the lock: the seller may have restored it.
			if lot.Status != models.LotStatusClosedUnsold {
				return nil
			}
			urls, err := m.deleteLotTx(ctx, tx, lot)
			if err != nil {
				return err
			}
			imageURLs = urls
			lotsPurged++
			return nil
		})
		if err != nil {
			slog.Error("Failed to purge lot",
				slog.String("type", "sweep"),
				slog.Int64("lot_id", candidate.ID),
				slog.Any("error", err),
			)
			continue
		}
		m.deleteBlobs(ctx, imageURLs)
	}

	bidsPurged, err := m.bids.PurgeDeactivatedBefore(ctx, now.Add(-bidGrace))
	if err != nil {
		return lotsPurged, 0, err
	}
	return lotsPurged, bidsPurged, nil
}

// ExpirySweeper periodically runs the payment-deadline sweep.
type ExpirySweeper struct {
	manager  *Manager
	interval time.Duration
}

func NewExpirySweeper(manager *Manager, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{manager: manager, interval: interval}
}

func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *ExpirySweeper) RunOnce(ctx context.Context) {
	n, err := s.manager.ExpireDuePayments(ctx)
	if err != nil {
		slog.Error("Expiry sweep failed",
			slog.String("type", "sweep"),
			slog.Any("error", err),
		)
		return
	}
	if n > 0 {
		slog.Info("Expiry sweep complete",
			slog.String("type", "sweep"),
			slog.Int("lots_processed", n),
		)
	}
}

// RetentionSweeper periodically purges stale closed lots and old
// deactivated bids.
type RetentionSweeper struct {
	manager      *Manager
	interval     time.Duration
	lotRetention time.Duration
	bidGrace     time.Duration
}

func NewRetentionSweeper(manager *Manager, interval, lotRetention, bidGrace time.Duration) *RetentionSweeper {
	return &RetentionSweeper{
		manager:      manager,
		interval:     interval,
		lotRetention: lotRetention,
		bidGrace:     bidGrace,
	}
}

func (s *RetentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *RetentionSweeper) RunOnce(ctx context.Context) {
	lots, bids, err := s.manager.PurgeRetention(ctx, s.lotRetention, s.bidGrace)
	if err != nil {
		slog.Error("Retention sweep failed",
			slog.String("type", "sweep"),
			slog.Any("error", err),
		)
		return
	}
	if lots > 0 || bids > 0 {
		slog.Info("Retention sweep complete",
			slog.String("type", "sweep"),
			slog.Int("lots_purged", lots),
			slog.Int64("bids_purged", bids),
		)
	}
}
