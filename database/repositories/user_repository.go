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

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetOrCreateBySub(ctx context.Context, sub, email, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SetBlock(ctx context.Context, tx bun.IDB, userID int64, blocked bool, reason string, until *time.Time) error
}

var ErrUserNotFound = errors.New("user not found")

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("id = ?", id).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetOrCreateBySub resolves the local account for an authenticated subject,
// provisioning one on first sight.
func (r *userRepository) GetOrCreateBySub(ctx context.Context, sub, email, username string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("auth0_sub = ?", sub).
		Scan(ctx)

	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user = &models.User{
		Auth0Sub:  sub,
		Email:     email,
		Username:  username,
		CreatedAt: time.Now(),
	}
	_, err = r.db.NewInsert().
		Model(user).
		On("CONFLICT (auth0_sub) DO UPDATE").
		Set("email = EXCLUDED.email").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	res, err := r.db.NewUpdate().
		Model(user).
		Column("username", "phone_number", "bio").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetBlock(ctx context.Context, tx bun.IDB, userID int64, blocked bool, reason string, until *time.Time) error {
	res, err := tx.NewUpdate().
		Model((*models.User)(nil)).
		Set("is_blocked = ?", blocked).
		Set("ban_reason = ?", reason).
		Set("ban_until = ?", until).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update block state: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrUserNotFound
	}
	return nil
}
