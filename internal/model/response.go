package model

import (
	"time"

	"gorm.io/datatypes"
)

// Response is one student's answer to one question within a submission.
// Rows are upserted on the (submission_id, question_id) natural key; the last
// write wins by server-stamped UpdatedAt, never by client-reported time.
// A nil IsCorrect means the answer awaits manual grading.
//
// swagger:model Response
type Response struct {
	UUIDBase
	SubmissionID    string         `gorm:"index;uniqueIndex:idx_response_question;type:varchar(36)" json:"submissionId"`
	QuestionID      uint           `gorm:"uniqueIndex:idx_response_question;type:bigint unsigned" json:"questionId"`
	StudentAnswer   string         `gorm:"type:text" json:"studentAnswer"`
	SelectedOptions datatypes.JSON `gorm:"type:json" json:"selectedOptions,omitempty"`
	TimeSpent       int            `json:"timeSpent"` // Seconds, server-validated
	IsCorrect       *bool          `json:"isCorrect"`
	PointsEarned    float64        `json:"pointsEarned"`
	IsFlagged       bool           `gorm:"default:false" json:"isFlagged"`
	GradedBy        *uint          `gorm:"type:bigint unsigned" json:"gradedBy,omitempty"`
	GradedAt        *time.Time     `json:"gradedAt,omitempty"`
	Feedback        string         `gorm:"type:text" json:"feedback,omitempty"`
}

func (Response) TableName() string {
	return "responses"
}
