package auction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bidnbuy/backend/database/models"
	"github.com/bidnbuy/backend/database/repositories"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// BlobStore is the slice of object storage the manager needs: removing
// images that belong to deleted lots.
type BlobStore interface {
	DeleteByURL(ctx context.Context, url string) error
}

// Manager runs every lot lifecycle transition. Each operation locks the
// lot row first, so concurrent bids, cancels, payments and sweeps on the
// same lot execute one at a time.
type Manager struct {
	db       *bun.DB
	lots     repositories.LotRepository
	bids     repositories.BidRepository
	payments repositories.PaymentRepository
	users    repositories.UserRepository
	notifier *Notifier
	storage  BlobStore
	clock    func() time.Time
	runTx    func(ctx context.Context, fn func(tx bun.Tx) error) error
}

func NewManager(
	db *bun.DB,
	lots repositories.LotRepository,
	bids repositories.BidRepository,
	payments repositories.PaymentRepository,
	users repositories.UserRepository,
	notifier *Notifier,
	storage BlobStore,
) *Manager {
	m := &Manager{
		db:       db,
		lots:     lots,
		bids:     bids,
		payments: payments,
		users:    users,
		notifier: notifier,
		storage:  storage,
		clock:    time.Now,
	}
	m.runTx = m.runInBunTx
	return m
}

func (m *Manager) runInTx(ctx context.Context, fn func(tx bun.Tx) error) error {
	return m.runTx(ctx, fn)
}

func (m *Manager) runInBunTx(ctx context.Context, fn func(tx bun.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) lockLot(ctx context.Context, tx bun.Tx, lotID int64) (*models.Lot, error) {
	lot, err := m.lots.GetByIDForUpdate(ctx, tx, lotID)
	if errors.Is(err, repositories.ErrLotNotFound) {
		return nil, newError(KindNotFound, "lot not found")
	}
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// LotInput carries the seller-supplied fields for a new lot.
type LotInput struct {
	Title                  string
	Description            string
	StartPrice             decimal.Decimal
	MinStep                decimal.Decimal
	PaymentDeadlineDays    int
	PaymentDeadlineHours   int
	PaymentDeadlineMinutes int
	ImageURL               string
}

func validateLotInput(in LotInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return newError(KindInvalidInput, "title is required")
	}
	if !in.StartPrice.IsPositive() {
		return newError(KindInvalidInput, "start price must be positive")
	}
	if !in.MinStep.IsPositive() {
		return newError(KindInvalidInput, "minimum step must be positive")
	}
	if in.PaymentDeadlineDays < 0 || in.PaymentDeadlineHours < 0 || in.PaymentDeadlineMinutes < 0 {
		return newError(KindInvalidInput, "payment deadline cannot be negative")
	}
	window := time.Duration(in.PaymentDeadlineDays)*24*time.Hour +
		time.Duration(in.PaymentDeadlineHours)*time.Hour +
		time.Duration(in.PaymentDeadlineMinutes)*time.Minute
	if window <= 0 {
		return newError(KindInvalidInput, "payment deadline must be positive")
	}
	return nil
}

func (m *Manager) CreateLot(ctx context.Context, seller *models.User, in LotInput) (*models.Lot, error) {
	if err := validateLotInput(in); err != nil {
		return nil, err
	}

	lot := &models.Lot{
		Title:                  strings.TrimSpace(in.Title),
		Description:            in.Description,
		StartPrice:             in.StartPrice,
		MinStep:                in.MinStep,
		PaymentDeadlineDays:    in.PaymentDeadlineDays,
		PaymentDeadlineHours:   in.PaymentDeadlineHours,
		PaymentDeadlineMinutes: in.PaymentDeadlineMinutes,
		ImageURL:               in.ImageURL,
		SellerID:               seller.ID,
	}
	if err := m.lots.Create(ctx, lot); err != nil {
		return nil, err
	}
	return lot, nil
}

// validateBid checks a new or raised bid against the lot. Pure so the
// rules are testable without a database.
func validateBid(lot *models.Lot, bidderID int64, amount decimal.Decimal) error {
	if lot.SellerID == bidderID {
		return newError(KindForbidden, "you cannot bid on your own lot")
	}
	if lot.Status != models.LotStatusActive {
		return newError(KindInvalidState, "lot is not accepting bids")
	}
	min := lot.MinimumBid()
	if amount.LessThan(min) {
		return newError(KindInvalidBid, fmt.Sprintf("bid must be at least %s", min.StringFixed(2)))
	}
	return nil
}

// PlaceBid records or raises a bid and lifts the lot's current price.
func (m *Manager) PlaceBid(ctx context.Context, lotID int64, bidder *models.User, amount decimal.Decimal) (*models.Bid, error) {
	var placed *models.Bid

	err := m.runInTx(ctx, func(tx bun.Tx) error {
		lot, err := m.lockLot(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if err := validateBid(lot, bidder.ID, amount); err != nil {
			return err
		}

		now := m.clock()
		bid, err := m.bids.Upsert(ctx, tx, lot.ID, bidder.ID, amount, now)
		if err != nil {
			return err
		}

		lot.CurrentPrice = amount
		if err := m.lots.Update(ctx, tx, lot); err != nil {
			return err
		}

		placed = bid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// validateCancel checks whether a bidder may withdraw their active bid.
// Pure so the rules are testable without a database. While the lot awaits
// payment only the current leader may withdraw; anyone may withdraw from
// an active lot.
func validateCancel(lot *models.Lot, bid *models.Bid, activeBids []*models.Bid) error {
	if lot.Status == models.LotStatusSold || lot.Status == models.LotStatusClosedUnsold {
		return newError(KindInvalidState, "bidding on this lot has ended")
	}
	if bid == nil {
		return newError(KindNotFound, "you have no active bid on this lot")
	}
	if lot.Status == models.LotStatusPendingPayment {
		leader := leadingBid(activeBids)
		if leader == nil || leader.ID != bid.ID {
			return newError(KindNotLeader, "only the winning bidder can withdraw while payment is pending")
		}
	}
	return nil
}

// CancelBid withdraws the caller's active bid. Withdrawing the leading
// bid hands the win to the next bidder in line.
func (m *Manager) CancelBid(ctx context.Context, lotID int64, userID int64) error {
	return m.runInTx(ctx, func(tx bun.Tx) error {
		lot, err := m.lockLot(ctx, tx, lotID)
		if err != nil {
			return err
		}

		bid, err := m.bids.GetActiveByLotAndUser(ctx, tx, lot.ID, userID)
		if err != nil {
			return err
		}

		activeBids, err := m.bids.GetActiveByLot(ctx, tx, lot.ID)
		if err != nil {
			return err
		}

		if err := validateCancel(lot, bid, activeBids); err != nil {
			return err
		}

		now := m.clock()
		if err := m.bids.Deactivate(ctx, tx, bid.ID, now); err != nil {
			return err
		}

		remaining := withoutBid(activeBids, bid.ID)
		if !wasLeading(bid, remaining) {
			return nil
		}
		outcome := applyWinnerTransfer(lot, remaining, now)
		m.notifyTransfer(ctx, tx, lot, outcome)

		return m.lots.Update(ctx, tx, lot)
	})
}

func withoutBid(bids []*models.Bid, bidID int64) []*models.Bid {
	out := make([]*models.Bid, 0, len(bids))
	for _, b := range bids {
		if b.ID != bidID {
			out = append(out, b)
		}
	}
	return out
}

func (m *Manager) notifyTransfer(ctx context.Context, tx bun.IDB, lot *models.Lot, outcome transferOutcome) {
	switch {
	case outcome.NewLeader != nil && lot.Status == models.LotStatusPendingPayment && lot.PaymentDeadline != nil:
		m.notifier.Notify(ctx, tx, outcome.NewLeader.UserID, msgPromoted(lot, *lot.PaymentDeadline))
	case outcome.Reverted:
		m.notifier.Notify(ctx, tx, lot.SellerID, msgLotReverted(lot))
	}
}

// Close ends bidding. With bids the leader gets a payment window; without
// any the lot parks as closed_unsold.
func (m *Manager) Close(ctx context.Context, lotID int64, actor *models.User) (*models.Lot, error) {
	var closed *models.Lot

	err := m.runInTx(ctx, func(tx bun.Tx) error {
		lot, err := m.lockLot(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if lot.SellerID != actor.ID && !actor.IsAdmin {
			return newError(KindNotOwner, "only the seller can close this lot")
		}
		if lot.Status != models.LotStatusActive {
			return newError(KindInvalidState, "only active lots can be closed")
		}

		activeBids, err := m.bids.GetActiveByLot(ctx, tx, lot.ID)
		if err != nil {
			return err
		}

		now := m.clock()
		if leader := leadingBid(activeBids); leader != nil {
			deadline := now.Add(lot.PaymentWindow())
			lot.Status = models.LotStatusPendingPayment
			lot.PaymentDeadline = &deadline
			lot.CurrentPrice = leader.Amount
			m.notifier.Notify(ctx, tx, leader.UserID, msgWinnerPending(lot, deadline))
		} else {
			lot.Status = models.LotStatusClosedUnsold
			lot.ClosedAt = &now
			lot.PaymentDeadline = nil
		}

		if err := m.lots.Update(ctx, tx, lot); err != nil {
			return err
		}
		closed = lot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// Restore puts an unsold closed lot back on the market.
func (m *Manager) Restore(ctx context.Context, lotID int64, actor *models.User) (*models.Lot, error) {
	var restored *models.Lot

	err := m.runInTx(ctx, func(tx bun.Tx) error {
		lot, err := m.lockLot(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if lot.SellerID != actor.ID && !actor.IsAdmin {
			return newError(KindNotOwner, "only the seller can restore this lot")
		}
		if lot.Status != models.LotStatusClosedUnsold {
			return newError(KindInvalidState, "only unsold closed lots can be restored")
		}

		activeBids, err := m.bids.GetActiveByLot(ctx, tx, lot.ID)
		if err != nil {
			return err
		}

		lot.Status = models.LotStatusActive
		lot.PaymentDeadline = nil
		lot.ClosedAt = nil
		if leader := leadingBid(activeBids); leader != nil {
			lot.CurrentPrice = leader.Amount
		} else {
			lot.CurrentPrice = lot.StartPrice
		}

		if err := m.lots.Update(ctx, tx, lot); err != nil {
			return err
		}
		restored = lot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// Pay settles a pending lot. Only the current leader may pay, and only
// while the deadline has not passed.
func (m *Manager) Pay(ctx context.Context, lotID int64, payer *models.User) (*models.Payment, error) {
	var payment *models.Payment

	err := m.runInTx(ctx, func(tx bun.Tx) error {
		lot, err := m.lockLot(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if lot.Status == models.LotStatusSold {
			return newError(KindAlreadySold, "lot is already sold")
		}
		if lot.Status != models.LotStatusPendingPayment || lot.PaymentDeadline == nil {
			return newError(KindNoDeadline, "lot has no payment due")
		}

		now := m.clock()
		if now.After(*lot.PaymentDeadline) {
			return newError(KindExpired, "payment deadline has passed")
		}

		activeBids, err := m.bids.GetActiveByLot(ctx, tx, lot.ID)
		if err != nil {
			return err
		}
		leader := leadingBid(activeBids)
		if leader == nil || leader.UserID != payer.ID {
			return newError(KindNotWinner, "only the winning bidder can pay for this lot")
		}

		payment = &models.Payment{
			LotID:  lot.ID,
			UserID: payer.ID,
			Amount: leader.Amount,
		}
		if err := m.payments.Create(ctx, tx, payment); err != nil {
			return err
		}

		lot.Status = models.LotStatusSold
		lot.PaymentDeadline = nil
		lot.CurrentPrice = leader.Amount
		if err := m.lots.Update(ctx, tx, lot); err != nil {
			return err
		}

		m.notifier.Notify(ctx, tx, payer.ID, msgPaymentAccepted(lot))
		m.notifier.Notify(ctx, tx, lot.SellerID, msgLotSold(lot))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// LotPatch carries a partial lot update; nil fields are untouched.
type LotPatch struct {
	Title                  *string
	Description            *string
	StartPrice             *decimal.Decimal
	MinStep                *decimal.Decimal
	PaymentDeadlineDays    *int
	PaymentDeadlineHours   *int
	PaymentDeadlineMinutes *int
	ImageURL               *string
}

// Update edits a lot in place. Once any bid has been placed the listing
// is considered published and can no longer be edited.
func (m *Manager) Update(ctx context.Context, lotID int64, actor *models.User, patch LotPatch) (*models.Lot, error) {
	var updated *models.Lot

	err := m.runInTx(ctx, func(tx bun.Tx) error {
		lot, err := m.lockLot(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if lot.SellerID != actor.ID && !actor.IsAdmin {
			return newError(KindNotOwner, "only the seller can edit this lot")
		}
		if lot.Status != models.LotStatusActive {
			return newError(KindInvalidState, "only active lots can be edited")
		}

		count, err := m.bids.CountByLot(ctx, tx, lot.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return newError(KindInvalidState, "lots with bids cannot be edited")
		}

		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return newError(KindInvalidInput, "title is required")
			}
			lot.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			lot.Description = *patch.Description
		}
		if patch.StartPrice != nil {
			if !patch.StartPrice.IsPositive() {
				return newError(KindInvalidInput, "start price must be positive")
			}
			lot.StartPrice = *patch.StartPrice
			lot.CurrentPrice = *patch.StartPrice
		}
		if patch.MinStep != nil {
			if !patch.MinStep.IsPositive() {
				return newError(KindInvalidInput, "minimum step must be positive")
			}
			lot.MinStep = *patch.MinStep
		}
		if patch.PaymentDeadlineDays != nil {
			lot.PaymentDeadlineDays = *patch.PaymentDeadlineDays
		}
		if patch.PaymentDeadlineHours != nil {
			lot.PaymentDeadlineHours = *patch.PaymentDeadlineHours
		}
		if patch.PaymentDeadlineMinutes != nil {
			lot.PaymentDeadlineMinutes = *patch.PaymentDeadlineMinutes
		}
		if lot.PaymentWindow() <= 0 {
			return newError(KindInvalidInput, "payment deadline must be positive")
		}
		if patch.ImageURL != nil {
			lot.ImageURL = *patch.ImageURL
		}

		if err := m.lots.Update(ctx, tx, lot); err != nil {
			return err
		}
		updated = lot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AddImage attaches another image to a lot, up to the per-lot cap.
func (m *Manager) AddImage(ctx context.Context, lotID int64, actor *models.User, imageURL string) (*models.LotImage, error) {
	var image *models.LotImage

	err := m.runInTx(ctx, func(tx bun.Tx) error {
		lot, err := m.lockLot(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if lot.SellerID != actor.ID && !actor.IsAdmin {
			return newError(KindNotOwner, "only the seller can add images to this lot")
		}

		count, err := m.lots.CountImages(ctx, tx, lot.ID)
		if err != nil {
			return err
		}
		if count >= models.MaxLotImages {
			return newError(KindInvalidInput, fmt.Sprintf("a lot can have at most %d images", models.MaxLotImages))
		}

		image = &models.LotImage{LotID: lot.ID, ImageURL: imageURL}
		return m.lots.AddImage(ctx, tx, image)
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// Delete removes a lot and everything attached to it. Sellers may only
// delete lots nobody has ever bid on; admins may delete anything.
func (m *Manager) Delete(ctx context.Context, lotID int64, actor *models.User) error {
	var imageURLs []string

	err := m.runInTx(ctx, func(tx bun.Tx) error {
		lot, err := m.lockLot(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin {
			if lot.SellerID != actor.ID {
				return newError(KindNotOwner, "only the seller can delete this lot")
			}
			count, err := m.bids.CountByLot(ctx, tx, lot.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				return newError(KindInvalidState, "lots with bids cannot be deleted")
			}
		}

		urls, err := m.deleteLotTx(ctx, tx, lot)
		if err != nil {
			return err
		}
		imageURLs = urls
		return nil
	})
	if err != nil {
		return err
	}

	m.deleteBlobs(ctx, imageURLs)
	return nil
}

// deleteLotTx removes a lot's rows inside the caller's transaction and
// returns the blob URLs to clean up after commit. Bidders with an active
// bid are told the lot is gone.
func (m *Manager) deleteLotTx(ctx context.Context, tx bun.Tx, lot *models.Lot) ([]string, error) {
	activeBids, err := m.bids.GetActiveByLot(ctx, tx, lot.ID)
	if err != nil {
		return nil, err
	}
	for _, b := range activeBids {
		m.notifier.Notify(ctx, tx, b.UserID, msgLotDeleted(lot))
	}

	var urls []string
	if lot.ImageURL != "" {
		urls = append(urls, lot.ImageURL)
	}
	images, err := m.lots.ListImages(ctx, tx, lot.ID)
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		urls = append(urls, img.ImageURL)
	}

	if err := m.bids.DeleteByLot(ctx, tx, lot.ID); err != nil {
		return nil, err
	}
	if err := m.payments.DeleteByLot(ctx, tx, lot.ID); err != nil {
		return nil, err
	}
	if err := m.lots.DeleteImages(ctx, tx, lot.ID); err != nil {
		return nil, err
	}
	if err := m.lots.Delete(ctx, tx, lot.ID); err != nil {
		return nil, err
	}
	return urls, nil
}

func (m *Manager) deleteBlobs(ctx context.Context, urls []string) {
	if m.storage == nil {
		return
	}
	for _, url := range urls {
		if err := m.storage.DeleteByURL(ctx, url); err != nil {
			slog.Warn("Failed to delete stored image",
				slog.String("type", "db"),
				slog.String("url", url),
				slog.Any("error", err),
			)
		}
	}
}

// BlockUser bans an account, removes its listings and withdraws its bids,
// re-resolving every lot where one of those bids was leading. The mark and
// the bid withdrawal commit first; each affected lot is then processed in
// its own transaction so unrelated lots never contend, and a failure on
// one lot is logged without stopping the rest.
func (m *Manager) BlockUser(ctx context.Context, userID int64, reason string, until *time.Time) error {
	var ownLotIDs []int64
	var withdrawn []*models.Bid

	err := m.runInTx(ctx, func(tx bun.Tx) error {
		if err := m.users.SetBlock(ctx, tx, userID, true, reason, until); err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return newError(KindNotFound, "user not found")
			}
			return err
		}

		ids, err := m.lots.ListIDsBySeller(ctx, tx, userID)
		if err != nil {
			return err
		}
		ownLotIDs = ids

		bids, err := m.bids.DeactivateByUser(ctx, tx, userID, m.clock())
		if err != nil {
			return err
		}
		withdrawn = bids
		return nil
	})
	if err != nil {
		return err
	}

	for _, lotID := range ownLotIDs {
		if err := m.deleteLotByID(ctx, lotID); err != nil {
			slog.Error("Failed to delete blocked user's lot",
				slog.Int64("lot_id", lotID),
				slog.Any("error", err),
			)
		}
	}

	// One active bid per user per lot, so withdrawn holds each affected
	// lot at most once.
	for _, bid := range withdrawn {
		if err := m.resolveLot(ctx, bid); err != nil {
			slog.Error("Failed to re-resolve lot after block",
				slog.Int64("lot_id", bid.LotID),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

func (m *Manager) deleteLotByID(ctx context.Context, lotID int64) error {
	var imageURLs []string

	err := m.runInTx(ctx, func(tx bun.Tx) error {
		lot, err := m.lots.GetByIDForUpdate(ctx, tx, lotID)
		if errors.Is(err, repositories.ErrLotNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		urls, err := m.deleteLotTx(ctx, tx, lot)
		if err != nil {
			return err
		}
		imageURLs = urls
		return nil
	})
	if err != nil {
		return err
	}

	m.deleteBlobs(ctx, imageURLs)
	return nil
}

// resolveLot recomputes one lot's leader and price after the given bid
// was withdrawn outside the usual cancel path. Lots where the withdrawn
// bid was trailing are left untouched: the leader, the price and any
// running payment deadline still stand.
func (m *Manager) resolveLot(ctx context.Context, withdrawn *models.Bid) error {
	return m.runInTx(ctx, func(tx bun.Tx) error {
		lot, err := m.lots.GetByIDForUpdate(ctx, tx, withdrawn.LotID)
		if errors.Is(err, repositories.ErrLotNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if lot.Status != models.LotStatusActive && lot.Status != models.LotStatusPendingPayment {
			return nil
		}

		remaining, err := m.bids.GetActiveByLot(ctx, tx, lot.ID)
		if err != nil {
			return err
		}
		if !wasLeading(withdrawn, remaining) {
			return nil
		}
		outcome := applyWinnerTransfer(lot, remaining, m.clock())
		m.notifyTransfer(ctx, tx, lot, outcome)
		return m.lots.Update(ctx, tx, lot)
	})
}

// UnblockUser lifts a ban. Removed listings and withdrawn bids stay gone.
func (m *Manager) UnblockUser(ctx context.Context, userID int64) error {
	err := m.users.SetBlock(ctx, m.db, userID, false, "", nil)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return newError(KindNotFound, "user not found")
	}
	return err
}
