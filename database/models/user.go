package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Auth0Sub string `bun:"auth0_sub,notnull,unique"`
	Email    string `bun:"email,notnull"`
	Username string `bun:"username"`

	IsAdmin bool `bun:"is_admin,notnull,default:false"`

	IsBlocked bool       `bun:"is_blocked,notnull,default:false"`
	BanReason string     `bun:"ban_reason"`
	BanUntil  *time.Time `bun:"ban_until,nullzero"`

	PhoneNumber string `bun:"phone_number"`
	Bio         string `bun:"bio"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// BannedAt reports whether the block is in force at the given instant.
// A blocked account with a nil BanUntil is banned permanently.
func (u *User) BannedAt(now time.Time) bool {
	if !u.IsBlocked {
		return false
	}
	return u.BanUntil == nil || u.BanUntil.After(now)
}
