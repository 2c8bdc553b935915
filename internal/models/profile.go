package models

import "time"

// ProfileModel mirrors the identity provider's view of a user with the
// few fields this service owns. UserID is the provider's subject claim.
type ProfileModel struct {
	Base
	UserID      string     `json:"user_id" gorm:"uniqueIndex;not null"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Avatar      string     `json:"avatar"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
}

func (ProfileModel) TableName() string { return "profiles" }
