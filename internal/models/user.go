package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles a principal can hold. The identity provider puts one of these into
// the token's "role" claim; the users table mirrors it for the admin CLI.
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
	RoleService   = "service"
)

// User is the moderation view of a platform account.
// Only the fields trust scoring and admin alerts need are kept here.
type User struct {
	ID             string `gorm:"primaryKey" json:"id"`
	Role           string `gorm:"type:text;not null;default:member" json:"role"`
	TelegramChatID *int64 `gorm:"uniqueIndex" json:"-"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BeforeCreate generates a UUID for the user if the ID is not set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = RoleMember
	}
	return
}

// AccountAgeDays returns whole days since the account was created.
func (u *User) AccountAgeDays(now time.Time) int {
	if u == nil || u.CreatedAt.IsZero() || now.Before(u.CreatedAt) {
		return 0
	}
	return int(now.Sub(u.CreatedAt) / (24 * time.Hour))
}
