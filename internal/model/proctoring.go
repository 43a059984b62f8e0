package model

import (
	"time"

	"gorm.io/datatypes"
)

// ProctoringEvent is a violation or consent record forwarded from the client.
// The core only correlates events to a submission; detection lives elsewhere.
type ProctoringEvent struct {
	BaseModel
	SubmissionID string         `gorm:"index;type:varchar(36)" json:"submissionId"`
	StudentID    uint           `gorm:"index;type:bigint unsigned" json:"studentId"`
	EventType    string         `gorm:"size:50;not null" json:"eventType"` // tab_switch, fullscreen_exit, consent, ...
	Payload      datatypes.JSON `gorm:"type:json" json:"payload,omitempty"`
	OccurredAt   time.Time      `json:"occurredAt"`
}

func (ProctoringEvent) TableName() string {
	return "proctoring_events"
}

// AccessLog records who opened which submission. Writes are best-effort:
// failures are logged and swallowed so they never block a primary use case.
type AccessLog struct {
	BaseModel
	SubmissionID string `gorm:"index;type:varchar(36)" json:"submissionId"`
	StudentID    uint   `gorm:"index;type:bigint unsigned" json:"studentId"`
	Action       string `gorm:"size:50" json:"action"` // start, save, submit, view_results
	IPAddress    string `gorm:"size:45" json:"-"`
	UserAgent    string `gorm:"size:512" json:"-"`
}

func (AccessLog) TableName() string {
	return "access_logs"
}
