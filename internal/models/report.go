package models

// ReportModel is a single user's account of encountering a threat.
// Many reports may point at the same threat row.
type ReportModel struct {
	Base
	ThreatID    string `json:"threat_id"    gorm:"type:char(36);index;not null"`
	ReporterID  string `json:"reporter_id"  gorm:"index;not null"`
	Narrative   string `json:"narrative"    gorm:"type:text"`
	EvidenceKey string `json:"evidence_key"` // object-storage key of uploaded evidence, optional
	ContactOK   bool   `json:"contact_ok"   gorm:"default:false"`

	Threat *ThreatModel `json:"threat,omitempty" gorm:"foreignKey:ThreatID"`
}

func (ReportModel) TableName() string { return "reports" }
