package auction

import (
	"testing"
	"time"

	"github.com/bidnbuy/backend/database/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func activeLot() *models.Lot {
	return &models.Lot{
		ID:                   1,
		Title:                "vintage radio",
		StartPrice:           decimal.RequireFromString("100.00"),
		CurrentPrice:         decimal.RequireFromString("100.00"),
		MinStep:              decimal.RequireFromString("5.00"),
		Status:               models.LotStatusActive,
		PaymentDeadlineHours: 24,
		SellerID:             99,
	}
}

func TestValidateBid(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.Lot)
		bidderID int64
		amount   string
		wantKind Kind
	}{
		{
			name:     "accepts bid at minimum",
			bidderID: 10,
			amount:   "105.00",
		},
		{
			name:     "accepts bid above minimum",
			bidderID: 10,
			amount:   "250.00",
		},
		{
			name:     "rejects seller bidding on own lot",
			bidderID: 99,
			amount:   "105.00",
			wantKind: KindForbidden,
		},
		{
			name:     "rejects bid below minimum step",
			bidderID: 10,
			amount:   "104.99",
			wantKind: KindInvalidBid,
		},
		{
			name:     "rejects bid equal to current price",
			bidderID: 10,
			amount:   "100.00",
			wantKind: KindInvalidBid,
		},
		{
			name:     "rejects pending lot",
			mutate:   func(l *models.Lot) { l.Status = models.LotStatusPendingPayment },
			bidderID: 10,
			amount:   "105.00",
			wantKind: KindInvalidState,
		},
		{
			name:     "rejects sold lot",
			mutate:   func(l *models.Lot) { l.Status = models.LotStatusSold },
			bidderID: 10,
			amount:   "105.00",
			wantKind: KindInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := activeLot()
			if tt.mutate != nil {
				tt.mutate(lot)
			}

			err := validateBid(lot, tt.bidderID, decimal.RequireFromString(tt.amount))

			if tt.wantKind == "" {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsKind(err, tt.wantKind), "got %v", err)
			}
		})
	}
}

func TestValidateLotInput(t *testing.T) {
	valid := LotInput{
		Title:                "vintage radio",
		StartPrice:           decimal.RequireFromString("100.00"),
		MinStep:              decimal.RequireFromString("5.00"),
		PaymentDeadlineHours: 24,
	}

	t.Run("accepts valid input", func(t *testing.T) {
		assert.NoError(t, validateLotInput(valid))
	})

	t.Run("rejects blank title", func(t *testing.T) {
		in := valid
		in.Title = "   "
		assert.True(t, IsKind(validateLotInput(in), KindInvalidInput))
	})

	t.Run("rejects zero start price", func(t *testing.T) {
		in := valid
		in.StartPrice = decimal.Zero
		assert.True(t, IsKind(validateLotInput(in), KindInvalidInput))
	})

	t.Run("rejects negative step", func(t *testing.T) {
		in := valid
		in.MinStep = decimal.RequireFromString("-1.00")
		assert.True(t, IsKind(validateLotInput(in), KindInvalidInput))
	})

	t.Run("rejects zero payment window", func(t *testing.T) {
		in := valid
		in.PaymentDeadlineHours = 0
		assert.True(t, IsKind(validateLotInput(in), KindInvalidInput))
	})

	t.Run("rejects negative window component", func(t *testing.T) {
		in := valid
		in.PaymentDeadlineMinutes = -10
		assert.True(t, IsKind(validateLotInput(in), KindInvalidInput))
	})
}

func TestValidateCancel(t *testing.T) {
	leader := testBid(1, 10, "130.00", 0)
	trailing := testBid(2, 11, "110.00", time.Minute)
	activeBids := []*models.Bid{leader, trailing}

	sold := activeLot()
	sold.Status = models.LotStatusSold
	closed := activeLot()
	closed.Status = models.LotStatusClosedUnsold

	tests := []struct {
		name     string
		lot      *models.Lot
		bid      *models.Bid
		wantKind Kind
	}{
		{
			name: "anyone may withdraw from an active lot",
			lot:  activeLot(),
			bid:  trailing,
		},
		{
			name: "leader may withdraw while payment is pending",
			lot:  pendingLot(24 * time.Hour),
			bid:  leader,
		},
		{
			name:     "trailing bidder may not withdraw while payment is pending",
			lot:      pendingLot(24 * time.Hour),
			bid:      trailing,
			wantKind: KindNotLeader,
		},
		{
			name:     "rejects withdrawal without an active bid",
			lot:      activeLot(),
			bid:      nil,
			wantKind: KindNotFound,
		},
		{
			name:     "rejects sold lot",
			lot:      sold,
			bid:      leader,
			wantKind: KindInvalidState,
		},
		{
			name:     "rejects closed unsold lot",
			lot:      closed,
			bid:      leader,
			wantKind: KindInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCancel(tt.lot, tt.bid, activeBids)

			if tt.wantKind == "" {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsKind(err, tt.wantKind), "got %v", err)
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	err := newError(KindNotWinner, "only the winning bidder can pay for this lot")

	assert.Equal(t, "only the winning bidder can pay for this lot", err.Error())
	assert.True(t, IsKind(err, KindNotWinner))
	assert.False(t, IsKind(err, KindNotFound))
	assert.Equal(t, KindNotWinner, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(assert.AnError))
}

func TestMinimumBidUsesExactDecimals(t *testing.T) {
	lot := activeLot()
	lot.CurrentPrice = decimal.RequireFromString("0.10")
	lot.MinStep = decimal.RequireFromString("0.20")

	// 0.1 + 0.2 must be exactly 0.30.
	assert.Equal(t, "0.30", lot.MinimumBid().StringFixed(2))
}

func TestWithoutBid(t *testing.T) {
	bids := []*models.Bid{
		testBid(1, 10, "100.00", 0),
		testBid(2, 11, "110.00", 0),
	}

	remaining := withoutBid(bids, 2)

	assert.Len(t, remaining, 1)
	assert.Equal(t, int64(1), remaining[0].ID)
	assert.Len(t, withoutBid(bids, 999), 2)
}
