package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPaymentWindow(t *testing.T) {
	lot := &Lot{
		PaymentDeadlineDays:    1,
		PaymentDeadlineHours:   2,
		PaymentDeadlineMinutes: 30,
	}
	assert.Equal(t, 26*time.Hour+30*time.Minute, lot.PaymentWindow())

	assert.Equal(t, time.Duration(0), (&Lot{}).PaymentWindow())
}

func TestBannedAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("not blocked", func(t *testing.T) {
		u := &User{}
		assert.False(t, u.BannedAt(now))
	})

	t.Run("permanent block", func(t *testing.T) {
		u := &User{IsBlocked: true}
		assert.True(t, u.BannedAt(now))
	})

	t.Run("temporary block still running", func(t *testing.T) {
		until := now.Add(time.Hour)
		u := &User{IsBlocked: true, BanUntil: &until}
		assert.True(t, u.BannedAt(now))
	})

	t.Run("temporary block elapsed", func(t *testing.T) {
		until := now.Add(-time.Hour)
		u := &User{IsBlocked: true, BanUntil: &until}
		assert.False(t, u.BannedAt(now))
	})
}
