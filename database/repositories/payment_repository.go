package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/bidnbuy/backend/database/models"
	"github.com/uptrace/bun"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx bun.IDB, payment *models.Payment) error
	ListByUser(ctx context.Context, userID int64) ([]*models.Payment, error)
	DeleteByLot(ctx context.Context, tx bun.IDB, lotID int64) error
}

type paymentRepository struct {
	db *bun.DB
}

func NewPaymentRepository(db *bun.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, tx bun.IDB, payment *models.Payment) error {
	payment.CreatedAt = time.Now()

	_, err := tx.NewInsert().Model(payment).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Payment, error) {
	var payments []*models.Payment

	err := r.db.NewSelect().
		Model(&payments).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) DeleteByLot(ctx context.Context, tx bun.IDB, lotID int64) error {
	_, err := tx.NewDelete().
		Model((*models.Payment)(nil)).
		Where("lot_id = ?", lotID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete lot payments: %w", err)
	}
	return nil
}
