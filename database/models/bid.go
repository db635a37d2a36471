package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Bid is one bidder's standing offer on a lot. A repeat bid from the same
// bidder updates the existing active row in place, so at most one active
// bid exists per (lot, user) pair.
type Bid struct {
	bun.BaseModel `bun:"table:bids,alias:b"`

	ID     int64           `bun:"id,pk,autoincrement"`
	LotID  int64           `bun:"lot_id,notnull"`
	UserID int64           `bun:"user_id,notnull"`
	Amount decimal.Decimal `bun:"amount,notnull,type:numeric(10,2)"`

	Timestamp time.Time `bun:"timestamp,notnull"`
	IsActive  bool      `bun:"is_active,notnull,default:true"`

	// DeactivatedAt records when the bid was cancelled or disqualified;
	// the retention sweeper purges the row after the grace window.
	DeactivatedAt *time.Time `bun:"deactivated_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`

	Lot *Lot `bun:"rel:belongs-to,join:lot_id=id"`
}
