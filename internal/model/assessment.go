package model

import (
	"time"
)

// swagger:model Assessment
type Assessment struct {
	BaseModel
	Title          string     `gorm:"size:255;not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	TimeLimit      int        `gorm:"default:0" json:"timeLimit"` // Minutes, 0 = unlimited
	MaxAttempts    int        `gorm:"default:1" json:"maxAttempts"`
	TotalPoints    float64    `gorm:"default:0" json:"totalPoints"` // Declared total, may trail the live question set
	IsPublished    bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
	AvailableFrom  *time.Time `json:"availableFrom,omitempty"`
	AvailableUntil *time.Time `json:"availableUntil,omitempty"`
	CreatorID      uint       `gorm:"index;type:bigint unsigned" json:"creatorId"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// AvailableAt reports whether t falls inside the optional scheduling window.
func (a *Assessment) AvailableAt(t time.Time) bool {
	if a.AvailableFrom != nil && t.Before(*a.AvailableFrom) {
		return false
	}
	if a.AvailableUntil != nil && t.After(*a.AvailableUntil) {
		return false
	}
	return true
}
