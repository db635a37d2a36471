package auction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bidnbuy/backend/database/models"
	"github.com/bidnbuy/backend/database/repositories"
	"github.com/uptrace/bun"
)

// Notifier writes lifecycle notifications. Delivery is best effort: a
// failed insert is logged and swallowed so it can never roll back the
// state transition that triggered it.
type Notifier struct {
	repo repositories.NotificationRepository
}

func NewNotifier(repo repositories.NotificationRepository) *Notifier {
	return &Notifier{repo: repo}
}

func (n *Notifier) Notify(ctx context.Context, tx bun.IDB, userID int64, message string) {
	err := n.repo.Create(ctx, tx, &models.Notification{
		UserID:  userID,
		Message: message,
	})
	if err != nil {
		slog.Error("Failed to write notification",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
	}
}

func msgWinnerPending(lot *models.Lot, deadline time.Time) string {
	return fmt.Sprintf("You won the auction for %q. Pay %s by %s.",
		lot.Title, lot.CurrentPrice.StringFixed(2), deadline.Format(time.RFC1123))
}

func msgPaymentMissed(lot *models.Lot) string {
	return fmt.Sprintf("You missed the payment deadline for %q and lost the lot.", lot.Title)
}

func msgPromoted(lot *models.Lot, deadline time.Time) string {
	return fmt.Sprintf("You are now winning lot %q at %s. Pay by %s.",
		lot.Title, lot.CurrentPrice.StringFixed(2), deadline.Format(time.RFC1123))
}

func msgLotReverted(lot *models.Lot) string {
	return fmt.Sprintf("No paying bidders remain for your lot %q. It is back on the market.", lot.Title)
}

func msgPaymentAccepted(lot *models.Lot) string {
	return fmt.Sprintf("Payment accepted for %q. The lot is yours.", lot.Title)
}

func msgLotSold(lot *models.Lot) string {
	return fmt.Sprintf("Your lot %q sold for %s.", lot.Title, lot.CurrentPrice.StringFixed(2))
}

func msgLotDeleted(lot *models.Lot) string {
	return fmt.Sprintf("The lot %q was removed. Your bid no longer stands.", lot.Title)
}
