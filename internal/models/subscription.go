package models

// SubscriptionModel is a user's opt-in state for threat-verification
// emails. A row exists only after the user auto- or explicitly
// subscribed at least once; absence reads as "not subscribed".
type SubscriptionModel struct {
	Base
	UserID     string `json:"user_id"    gorm:"uniqueIndex;not null"`
	Email      string `json:"email"      gorm:"not null"`
	Subscribed bool   `json:"subscribed" gorm:"default:false"`
}

func (SubscriptionModel) TableName() string { return "subscriptions" }
