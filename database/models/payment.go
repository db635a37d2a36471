package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Payment records a completed sale. Exactly one is created per lot, when
// the lot moves from pending_payment to sold, and it is never mutated.
type Payment struct {
	bun.BaseModel `bun:"table:payments,alias:p"`

	ID     int64           `bun:"id,pk,autoincrement"`
	LotID  int64           `bun:"lot_id,notnull"`
	UserID int64           `bun:"user_id,notnull"`
	Amount decimal.Decimal `bun:"amount,notnull,type:numeric(10,2)"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
