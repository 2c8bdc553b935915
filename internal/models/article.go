package models

// ArticleModel is a literacy-hub article. Text holds the markdown
// source; Rendered is derived from it on every write.
type ArticleModel struct {
	Base
	Slug      string `json:"slug"      gorm:"uniqueIndex;not null"`
	Title     string `json:"title"     gorm:"not null"`
	Summary   string `json:"summary"`
	Text      string `json:"text"      gorm:"type:longtext"`
	Rendered  string `json:"rendered"  gorm:"type:longtext"`
	Published bool   `json:"published" gorm:"default:false;index"`
	ReadCount int    `json:"read"      gorm:"column:read_count;default:0"`
}

func (ArticleModel) TableName() string { return "articles" }
