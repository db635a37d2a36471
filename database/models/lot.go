package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type LotStatus string

const (
	LotStatusActive         LotStatus = "active"
	LotStatusPendingPayment LotStatus = "pending_payment"
	LotStatusSold           LotStatus = "sold"
	LotStatusClosedUnsold   LotStatus = "closed_unsold"
)

// MaxLotImages caps the number of stored images per lot.
const MaxLotImages = 5

type Lot struct {
	bun.BaseModel `bun:"table:lots,alias:l"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Title       string `bun:"title,notnull"`
	Description string `bun:"description"`

	StartPrice   decimal.Decimal `bun:"start_price,notnull,type:numeric(10,2)"`
	CurrentPrice decimal.Decimal `bun:"current_price,notnull,type:numeric(10,2)"`
	MinStep      decimal.Decimal `bun:"min_step,notnull,type:numeric(10,2)"`

	Status   LotStatus `bun:"status,notnull,default:'active'"`
	ImageURL string    `bun:"image_url"`

	// PaymentDeadline is set only while Status is pending_payment.
	PaymentDeadline        *time.Time `bun:"payment_deadline,nullzero"`
	PaymentDeadlineDays    int        `bun:"payment_deadline_days,notnull,default:0"`
	PaymentDeadlineHours   int        `bun:"payment_deadline_hours,notnull,default:24"`
	PaymentDeadlineMinutes int        `bun:"payment_deadline_minutes,notnull,default:0"`

	SellerID int64      `bun:"seller_id,notnull"`
	ClosedAt *time.Time `bun:"closed_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	Images []*LotImage `bun:"rel:has-many,join:id=lot_id"`
}

// PaymentWindow is the operator-configured countdown granted to a leader
// every time a payment deadline is (re)started for this lot.
func (l *Lot) PaymentWindow() time.Duration {
	return time.Duration(l.PaymentDeadlineDays)*24*time.Hour +
		time.Duration(l.PaymentDeadlineHours)*time.Hour +
		time.Duration(l.PaymentDeadlineMinutes)*time.Minute
}

// MinimumBid is the smallest amount a new bid must reach.
func (l *Lot) MinimumBid() decimal.Decimal {
	return l.CurrentPrice.Add(l.MinStep)
}

type LotImage struct {
	bun.BaseModel `bun:"table:lot_images,alias:li"`

	ID       int64  `bun:"id,pk,autoincrement"`
	LotID    int64  `bun:"lot_id,notnull"`
	ImageURL string `bun:"image_url,notnull"`
}
