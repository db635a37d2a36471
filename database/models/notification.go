package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Notification is a one-way message to a user, written as a side effect of
// lifecycle transitions. Only the recipient mutates it, by marking it read.
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:n"`

	ID      int64  `bun:"id,pk,autoincrement"`
	UserID  int64  `bun:"user_id,notnull"`
	Message string `bun:"message,notnull"`
	IsRead  bool   `bun:"is_read,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
