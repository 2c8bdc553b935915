package models

import "time"

// ThreatType classifies the suspect artifact.
type ThreatType string

const (
	ThreatTypeURL   ThreatType = "url"
	ThreatTypePhone ThreatType = "phone"
	ThreatTypeEmail ThreatType = "email"
)

// ThreatStatus is the verification lifecycle state.
type ThreatStatus string

const (
	ThreatPending   ThreatStatus = "pending"
	ThreatVerified  ThreatStatus = "verified"
	ThreatDismissed ThreatStatus = "dismissed"
)

// ThreatModel is a reported digital threat (phishing link, scam phone
// number, fraudulent email address).
type ThreatModel struct {
	Base
	Type        ThreatType   `json:"type"         gorm:"type:varchar(16);not null;uniqueIndex:idx_threat_artifact,priority:1"`
	Value       string       `json:"value"        gorm:"type:varchar(191);not null;uniqueIndex:idx_threat_artifact,priority:2"`
	Description string       `json:"description"  gorm:"type:text"`
	Status      ThreatStatus `json:"status"       gorm:"type:varchar(16);index;default:'pending'"`
	Severity    int          `json:"severity"     gorm:"default:0"`
	ReportCount int          `json:"report_count" gorm:"default:0"`
	VerifiedAt  *time.Time   `json:"verified_at"`
	VerifiedBy  string       `json:"verified_by"`
}

func (ThreatModel) TableName() string { return "threats" }
