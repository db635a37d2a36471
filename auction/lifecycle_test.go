package auction

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/bidnbuy/backend/database/models"
	"github.com/bidnbuy/backend/database/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// In-memory repositories for exercising manager transactions without a
// database. Unimplemented methods come from the embedded interface and
// panic if a test reaches them.

type fakeLotRepo struct {
	repositories.LotRepository
	lots       map[int64]*models.Lot
	sellerLots map[int64][]int64
	updateErr  map[int64]error
}

func (f *fakeLotRepo) GetByIDForUpdate(ctx context.Context, tx bun.IDB, id int64) (*models.Lot, error) {
	lot, ok := f.lots[id]
	if !ok {
		return nil, repositories.ErrLotNotFound
	}
	return lot, nil
}

func (f *fakeLotRepo) Update(ctx context.Context, tx bun.IDB, lot *models.Lot) error {
	if err := f.updateErr[lot.ID]; err != nil {
		return err
	}
	f.lots[lot.ID] = lot
	return nil
}

func (f *fakeLotRepo) ListIDsBySeller(ctx context.Context, tx bun.IDB, sellerID int64) ([]int64, error) {
	return f.sellerLots[sellerID], nil
}

func (f *fakeLotRepo) LockDuePendingLots(ctx context.Context, tx bun.Tx, now time.Time, limit int, exclude []int64) ([]*models.Lot, error) {
	skip := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	var due []*models.Lot
	for _, lot := range f.lots {
		if skip[lot.ID] || lot.Status != models.LotStatusPendingPayment {
			continue
		}
		if lot.PaymentDeadline == nil || lot.PaymentDeadline.After(now) {
			continue
		}
		due = append(due, lot)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].PaymentDeadline.Before(*due[j].PaymentDeadline)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

type fakeBidRepo struct {
	repositories.BidRepository
	byLot     map[int64][]*models.Bid
	activeErr map[int64]error
}

func (f *fakeBidRepo) GetActiveByLot(ctx context.Context, tx bun.IDB, lotID int64) ([]*models.Bid, error) {
	if err := f.activeErr[lotID]; err != nil {
		return nil, err
	}
	var active []*models.Bid
	for _, b := range f.byLot[lotID] {
		if b.IsActive {
			active = append(active, b)
		}
	}
	return rankBids(active), nil
}

func (f *fakeBidRepo) Deactivate(ctx context.Context, tx bun.IDB, bidID int64, now time.Time) error {
	for _, bids := range f.byLot {
		for _, b := range bids {
			if b.ID == bidID {
				b.IsActive = false
				b.DeactivatedAt = &now
			}
		}
	}
	return nil
}

func (f *fakeBidRepo) DeactivateByUser(ctx context.Context, tx bun.IDB, userID int64, now time.Time) ([]*models.Bid, error) {
	var withdrawn []*models.Bid
	for _, bids := range f.byLot {
		for _, b := range bids {
			if b.UserID == userID && b.IsActive {
				b.IsActive = false
				b.DeactivatedAt = &now
				withdrawn = append(withdrawn, b)
			}
		}
	}
	return withdrawn, nil
}

type fakePaymentRepo struct {
	repositories.PaymentRepository
	created []*models.Payment
}

func (f *fakePaymentRepo) Create(ctx context.Context, tx bun.IDB, payment *models.Payment) error {
	f.created = append(f.created, payment)
	return nil
}

type fakeUserRepo struct {
	repositories.UserRepository
	blocked map[int64]bool
}

func (f *fakeUserRepo) SetBlock(ctx context.Context, tx bun.IDB, userID int64, blocked bool, reason string, until *time.Time) error {
	if f.blocked == nil {
		f.blocked = make(map[int64]bool)
	}
	f.blocked[userID] = blocked
	return nil
}

type fakeNotificationRepo struct {
	repositories.NotificationRepository
	created []*models.Notification
	err     error
}

func (f *fakeNotificationRepo) Create(ctx context.Context, tx bun.IDB, notification *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, notification)
	return nil
}

type fixtures struct {
	lots     *fakeLotRepo
	bids     *fakeBidRepo
	payments *fakePaymentRepo
	users    *fakeUserRepo
	notes    *fakeNotificationRepo
	manager  *Manager
}

func newFixtures(now time.Time) *fixtures {
	f := &fixtures{
		lots: &fakeLotRepo{
			lots:       make(map[int64]*models.Lot),
			sellerLots: make(map[int64][]int64),
			updateErr:  make(map[int64]error),
		},
		bids: &fakeBidRepo{
			byLot:     make(map[int64][]*models.Bid),
			activeErr: make(map[int64]error),
		},
		payments: &fakePaymentRepo{},
		users:    &fakeUserRepo{},
		notes:    &fakeNotificationRepo{},
	}

	m := NewManager(nil, f.lots, f.bids, f.payments, f.users, NewNotifier(f.notes), nil)
	m.clock = func() time.Time { return now }
	m.runTx = func(ctx context.Context, fn func(tx bun.Tx) error) error {
		return fn(bun.Tx{})
	}
	f.manager = m
	return f
}

func TestBlockUserLeavesUnchangedLeader(t *testing.T) {
	f := newFixtures(baseTime.Add(2 * time.Hour))

	lot := pendingLot(24 * time.Hour)
	lot.CurrentPrice = decimal.RequireFromString("130.00")
	deadline := *lot.PaymentDeadline

	leader := testBid(1, 12, "130.00", 0)
	trailing := testBid(2, 20, "110.00", time.Minute)
	f.lots.lots[lot.ID] = lot
	f.bids.byLot[lot.ID] = []*models.Bid{leader, trailing}

	require.NoError(t, f.manager.BlockUser(context.Background(), 20, "fraud", nil))

	assert.True(t, f.users.blocked[20])
	assert.False(t, trailing.IsActive)
	assert.True(t, leader.IsActive)

	// The leader never changed, so the lot keeps its price, its deadline
	// and its state, and nobody is told they are "now winning".
	assert.Equal(t, models.LotStatusPendingPayment, lot.Status)
	assert.True(t, lot.CurrentPrice.Equal(decimal.RequireFromString("130.00")))
	require.NotNil(t, lot.PaymentDeadline)
	assert.Equal(t, deadline, *lot.PaymentDeadline)
	assert.Empty(t, f.notes.created)
}

func TestBlockUserHandsLotToNextBidder(t *testing.T) {
	now := baseTime.Add(2 * time.Hour)
	f := newFixtures(now)

	lot := pendingLot(24 * time.Hour)
	lot.CurrentPrice = decimal.RequireFromString("150.00")

	leader := testBid(1, 20, "150.00", 0)
	next := testBid(2, 11, "130.00", time.Minute)
	f.lots.lots[lot.ID] = lot
	f.bids.byLot[lot.ID] = []*models.Bid{leader, next}

	require.NoError(t, f.manager.BlockUser(context.Background(), 20, "fraud", nil))

	assert.False(t, leader.IsActive)
	assert.Equal(t, models.LotStatusPendingPayment, lot.Status)
	assert.True(t, lot.CurrentPrice.Equal(decimal.RequireFromString("130.00")))
	require.NotNil(t, lot.PaymentDeadline)
	assert.Equal(t, now.Add(24*time.Hour), *lot.PaymentDeadline)

	require.Len(t, f.notes.created, 1)
	assert.Equal(t, int64(11), f.notes.created[0].UserID)
}

func TestExpireDuePaymentsSkipsFailingLot(t *testing.T) {
	f := newFixtures(baseTime.Add(30 * time.Hour))

	first := pendingLot(24 * time.Hour)
	second := pendingLot(25 * time.Hour)
	second.ID = 2
	f.lots.lots[1] = first
	f.lots.lots[2] = second

	b2 := testBid(2, 11, "120.00", time.Minute)
	b2.LotID = 2
	f.bids.byLot[1] = []*models.Bid{testBid(1, 10, "150.00", 0)}
	f.bids.byLot[2] = []*models.Bid{b2}

	// The earliest-deadline lot fails every attempt.
	f.bids.activeErr[1] = assert.AnError

	n, err := f.manager.ExpireDuePayments(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The failing lot is set aside untouched.
	assert.Equal(t, models.LotStatusPendingPayment, first.Status)
	require.NotNil(t, first.PaymentDeadline)

	// The lot behind it was still swept: its sole bidder missed payment
	// and it went back on the market.
	assert.Equal(t, models.LotStatusActive, second.Status)
	assert.Nil(t, second.PaymentDeadline)
	assert.False(t, b2.IsActive)
	assert.True(t, second.CurrentPrice.Equal(second.StartPrice))
}

func TestPay(t *testing.T) {
	t.Run("settles the lot and leaves closed_at unset", func(t *testing.T) {
		f := newFixtures(baseTime)

		lot := pendingLot(24 * time.Hour)
		lot.CurrentPrice = decimal.RequireFromString("130.00")
		f.lots.lots[lot.ID] = lot
		f.bids.byLot[lot.ID] = []*models.Bid{testBid(1, 10, "130.00", 0)}

		payment, err := f.manager.Pay(context.Background(), lot.ID, &models.User{ID: 10})

		require.NoError(t, err)
		require.Len(t, f.payments.created, 1)
		assert.True(t, payment.Amount.Equal(decimal.RequireFromString("130.00")))

		assert.Equal(t, models.LotStatusSold, lot.Status)
		assert.Nil(t, lot.PaymentDeadline)
		// closed_at marks closed_unsold lots for retention, never sales.
		assert.Nil(t, lot.ClosedAt)
		assert.Len(t, f.notes.created, 2)
	})

	t.Run("rejects a payer who is not the leader", func(t *testing.T) {
		f := newFixtures(baseTime)

		lot := pendingLot(24 * time.Hour)
		f.lots.lots[lot.ID] = lot
		f.bids.byLot[lot.ID] = []*models.Bid{testBid(1, 10, "130.00", 0)}

		_, err := f.manager.Pay(context.Background(), lot.ID, &models.User{ID: 11})

		assert.True(t, IsKind(err, KindNotWinner), "got %v", err)
		assert.Empty(t, f.payments.created)
	})

	t.Run("rejects payment after the deadline", func(t *testing.T) {
		f := newFixtures(baseTime.Add(30 * time.Hour))

		lot := pendingLot(24 * time.Hour)
		f.lots.lots[lot.ID] = lot
		f.bids.byLot[lot.ID] = []*models.Bid{testBid(1, 10, "130.00", 0)}

		_, err := f.manager.Pay(context.Background(), lot.ID, &models.User{ID: 10})

		assert.True(t, IsKind(err, KindExpired), "got %v", err)
	})
}

func TestNotifierIsBestEffort(t *testing.T) {
	failing := &fakeNotificationRepo{err: assert.AnError}
	NewNotifier(failing).Notify(context.Background(), nil, 10, "hello")
	assert.Empty(t, failing.created)

	ok := &fakeNotificationRepo{}
	NewNotifier(ok).Notify(context.Background(), nil, 10, "hello")
	require.Len(t, ok.created, 1)
	assert.Equal(t, int64(10), ok.created[0].UserID)
	assert.Equal(t, "hello", ok.created[0].Message)
}
