package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bidnbuy/backend/database/models"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type BidRepository interface {
	DB() *bun.DB
	GetActiveByLot(ctx context.Context, tx bun.IDB, lotID int64) ([]*models.Bid, error)
	GetActiveByLotAndUser(ctx context.Context, tx bun.IDB, lotID, userID int64) (*models.Bid, error)
	Upsert(ctx context.Context, tx bun.IDB, lotID, userID int64, amount decimal.Decimal, now time.Time) (*models.Bid, error)
	Deactivate(ctx context.Context, tx bun.IDB, bidID int64, now time.Time) error
	DeactivateByUser(ctx context.Context, tx bun.IDB, userID int64, now time.Time) ([]*models.Bid, error)
	DeleteByLot(ctx context.Context, tx bun.IDB, lotID int64) error
	CountByLot(ctx context.Context, tx bun.IDB, lotID int64) (int, error)
	ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]*models.Bid, error)
	PurgeDeactivatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type bidRepository struct {
	db *bun.DB
}

func NewBidRepository(db *bun.DB) BidRepository {
	return &bidRepository{db: db}
}

func (r *bidRepository) DB() *bun.DB {
	return r.db
}

func (r *bidRepository) GetActiveByLot(ctx context.Context, tx bun.IDB, lotID int64) ([]*models.Bid, error) {
	var bids []*models.Bid

	err := tx.NewSelect().
		Model(&bids).
		Where("b.lot_id = ?", lotID).
		Where("b.is_active").
		Order("b.amount DESC", "b.timestamp ASC", "b.id ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get active bids: %w", err)
	}
	return bids, nil
}

func (r *bidRepository) GetActiveByLotAndUser(ctx context.Context, tx bun.IDB, lotID, userID int64) (*models.Bid, error) {
	bid := new(models.Bid)
	err := tx.NewSelect().
		Model(bid).
		Where("b.lot_id = ?", lotID).
		Where("b.user_id = ?", userID).
		Where("b.is_active").
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return bid, nil
}

// Upsert raises the bidder's standing offer, updating the existing active
// row when one exists so each bidder holds at most one active bid per lot.
func (r *bidRepository) Upsert(ctx context.Context, tx bun.IDB, lotID, userID int64, amount decimal.Decimal, now time.Time) (*models.Bid, error) {
	existing, err := r.GetActiveByLotAndUser(ctx, tx, lotID, userID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		existing.Amount = amount
		existing.Timestamp = now
		_, err = tx.NewUpdate().
			Model(existing).
			Column("amount", "timestamp").
			WherePK().
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to update bid: %w", err)
		}
		return existing, nil
	}

	bid := &models.Bid{
		LotID:     lotID,
		UserID:    userID,
		Amount:    amount,
		Timestamp: now,
		IsActive:  true,
		CreatedAt: now,
	}
	_, err = tx.NewInsert().Model(bid).Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create bid: %w", err)
	}
	return bid, nil
}

func (r *bidRepository) Deactivate(ctx context.Context, tx bun.IDB, bidID int64, now time.Time) error {
	_, err := tx.NewUpdate().
		Model((*models.Bid)(nil)).
		Set("is_active = false").
		Set("deactivated_at = ?", now).
		Where("id = ?", bidID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to deactivate bid: %w", err)
	}
	return nil
}

// DeactivateByUser retires every active bid a user holds and returns the
// affected rows so callers can re-resolve the lots they touched.
func (r *bidRepository) DeactivateByUser(ctx context.Context, tx bun.IDB, userID int64, now time.Time) ([]*models.Bid, error) {
	var bids []*models.Bid

	err := tx.NewSelect().
		Model(&bids).
		Where("b.user_id = ?", userID).
		Where("b.is_active").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bids: %w", err)
	}

	if len(bids) == 0 {
		return nil, nil
	}

	_, err = tx.NewUpdate().
		Model((*models.Bid)(nil)).
		Set("is_active = false").
		Set("deactivated_at = ?", now).
		Where("user_id = ?", userID).
		Where("is_active").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate user bids: %w", err)
	}
	return bids, nil
}

func (r *bidRepository) DeleteByLot(ctx context.Context, tx bun.IDB, lotID int64) error {
	_, err := tx.NewDelete().
		Model((*models.Bid)(nil)).
		Where("lot_id = ?", lotID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete lot bids: %w", err)
	}
	return nil
}

// CountByLot counts every bid row for a lot, active or not.
func (r *bidRepository) CountByLot(ctx context.Context, tx bun.IDB, lotID int64) (int, error) {
	count, err := tx.NewSelect().
		Model((*models.Bid)(nil)).
		Where("lot_id = ?", lotID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count bids: %w", err)
	}
	return count, nil
}

func (r *bidRepository) ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]*models.Bid, error) {
	var bids []*models.Bid

	q := r.db.NewSelect().
		Model(&bids).
		Relation("Lot").
		Where("b.user_id = ?", userID).
		Order("b.timestamp DESC")

	if activeOnly {
		q = q.Where("b.is_active")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list user bids: %w", err)
	}
	return bids, nil
}

func (r *bidRepository) PurgeDeactivatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.Bid)(nil)).
		Where("NOT is_active").
		Where("deactivated_at <= ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge bids: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}
