package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bidnbuy/backend/database/models"
	"github.com/uptrace/bun"
)

type LotRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, lot *models.Lot) error
	GetByID(ctx context.Context, id int64) (*models.Lot, error)
	GetByIDForUpdate(ctx context.Context, tx bun.IDB, id int64) (*models.Lot, error)
	List(ctx context.Context, statuses []models.LotStatus, limit, offset int) ([]*models.Lot, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]*models.Lot, error)
	ListIDsBySeller(ctx context.Context, tx bun.IDB, sellerID int64) ([]int64, error)
	Update(ctx context.Context, tx bun.IDB, lot *models.Lot) error
	Delete(ctx context.Context, tx bun.IDB, id int64) error
	AddImage(ctx context.Context, tx bun.IDB, image *models.LotImage) error
	ListImages(ctx context.Context, tx bun.IDB, lotID int64) ([]*models.LotImage, error)
	DeleteImages(ctx context.Context, tx bun.IDB, lotID int64) error
	CountImages(ctx context.Context, tx bun.IDB, lotID int64) (int, error)
	LockDuePendingLots(ctx context.Context, tx bun.Tx, now time.Time, limit int, exclude []int64) ([]*models.Lot, error)
	GetClosedBefore(ctx context.Context, cutoff time.Time) ([]*models.Lot, error)
}

var ErrLotNotFound = errors.New("lot not found")

type lotRepository struct {
	db *bun.DB
}

func NewLotRepository(db *bun.DB) LotRepository {
	return &lotRepository{db: db}
}

func (r *lotRepository) DB() *bun.DB {
	return r.db
}

func (r *lotRepository) Create(ctx context.Context, lot *models.Lot) error {
	now := time.Now()
	lot.CreatedAt = now
	lot.UpdatedAt = now
	lot.Status = models.LotStatusActive
	lot.CurrentPrice = lot.StartPrice

	_, err := r.db.NewInsert().Model(lot).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create lot: %w", err)
	}
	return nil
}

func (r *lotRepository) GetByID(ctx context.Context, id int64) (*models.Lot, error) {
	lot := new(models.Lot)
	err := r.db.NewSelect().
		Model(lot).
		Relation("Images").
		Where("l.id = ?", id).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lot: %w", err)
	}
	return lot, nil
}

// GetByIDForUpdate locks the lot row for the duration of the transaction.
// Every lifecycle transition goes through this lock, which serializes
// concurrent operations on the same lot.
func (r *lotRepository) GetByIDForUpdate(ctx context.Context, tx bun.IDB, id int64) (*models.Lot, error) {
	lot := new(models.Lot)
	err := tx.NewSelect().
		Model(lot).
		Where("l.id = ?", id).
		For("UPDATE").
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock lot: %w", err)
	}
	return lot, nil
}

func (r *lotRepository) List(ctx context.Context, statuses []models.LotStatus, limit, offset int) ([]*models.Lot, error) {
	var lots []*models.Lot

	q := r.db.NewSelect().
		Model(&lots).
		Relation("Images").
		Order("l.created_at DESC")

	if len(statuses) > 0 {
		q = q.Where("l.status IN (?)", bun.In(statuses))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	return lots, nil
}

func (r *lotRepository) ListBySeller(ctx context.Context, sellerID int64) ([]*models.Lot, error) {
	var lots []*models.Lot

	err := r.db.NewSelect().
		Model(&lots).
		Relation("Images").
		Where("l.seller_id = ?", sellerID).
		Order("l.created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list seller lots: %w", err)
	}
	return lots, nil
}

func (r *lotRepository) ListIDsBySeller(ctx context.Context, tx bun.IDB, sellerID int64) ([]int64, error) {
	var ids []int64

	err := tx.NewSelect().
		Model((*models.Lot)(nil)).
		Column("id").
		Where("seller_id = ?", sellerID).
		Scan(ctx, &ids)

	if err != nil {
		return nil, fmt.Errorf("failed to get seller lot ids: %w", err)
	}
	return ids, nil
}

func (r *lotRepository) Update(ctx context.Context, tx bun.IDB, lot *models.Lot) error {
	lot.UpdatedAt = time.Now()

	res, err := tx.NewUpdate().
		Model(lot).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update lot: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrLotNotFound
	}
	return nil
}

func (r *lotRepository) Delete(ctx context.Context, tx bun.IDB, id int64) error {
	_, err := tx.NewDelete().
		Model((*models.Lot)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete lot: %w", err)
	}
	return nil
}

func (r *lotRepository) AddImage(ctx context.Context, tx bun.IDB, image *models.LotImage) error {
	_, err := tx.NewInsert().Model(image).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add lot image: %w", err)
	}
	return nil
}

func (r *lotRepository) ListImages(ctx context.Context, tx bun.IDB, lotID int64) ([]*models.LotImage, error) {
	var images []*models.LotImage

	err := tx.NewSelect().
		Model(&images).
		Where("lot_id = ?", lotID).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get lot images: %w", err)
	}
	return images, nil
}

func (r *lotRepository) DeleteImages(ctx context.Context, tx bun.IDB, lotID int64) error {
	_, err := tx.NewDelete().
		Model((*models.LotImage)(nil)).
		Where("lot_id = ?", lotID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete lot images: %w", err)
	}
	return nil
}

func (r *lotRepository) CountImages(ctx context.Context, tx bun.IDB, lotID int64) (int, error) {
	count, err := tx.NewSelect().
		Model((*models.LotImage)(nil)).
		Where("lot_id = ?", lotID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count lot images: %w", err)
	}
	return count, nil
}

// LockDuePendingLots selects pending_payment lots whose deadline has passed
// and locks them, skipping rows already held by a concurrent sweep. Lots in
// exclude are left out so a sweep pass can move on from a failing row.
func (r *lotRepository) LockDuePendingLots(ctx context.Context, tx bun.Tx, now time.Time, limit int, exclude []int64) ([]*models.Lot, error) {
	var lots []*models.Lot

	q := tx.NewSelect().
		Model(&lots).
		Where("l.status = ?", models.LotStatusPendingPayment).
		Where("l.payment_deadline <= ?", now).
		Order("l.payment_deadline ASC").
		Limit(limit).
		For("UPDATE SKIP LOCKED")

	if len(exclude) > 0 {
		q = q.Where("l.id NOT IN (?)", bun.In(exclude))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock due lots: %w", err)
	}
	return lots, nil
}

func (r *lotRepository) GetClosedBefore(ctx context.Context, cutoff time.Time) ([]*models.Lot, error) {
	var lots []*models.Lot

	err := r.db.NewSelect().
		Model(&lots).
		Where("l.status = ?", models.LotStatusClosedUnsold).
		Where("l.closed_at <= ?", cutoff).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get closed lots: %w", err)
	}
	return lots, nil
}
