package model

import (
	"time"
)

type SubmissionStatus string

const (
	SubmissionInProgress   SubmissionStatus = "in_progress"
	SubmissionSubmitted    SubmissionStatus = "submitted"
	SubmissionGraded       SubmissionStatus = "graded"
	SubmissionLate         SubmissionStatus = "late"
	SubmissionDisqualified SubmissionStatus = "disqualified"
)

// CanTransition reports whether a submission may move from one status to
// another. Transitions only move forward; late/disqualified are administrative
// end states reachable from in_progress only.
func CanTransition(from, to SubmissionStatus) bool {
	switch from {
	case SubmissionInProgress:
		return to == SubmissionSubmitted || to == SubmissionLate || to == SubmissionDisqualified
	case SubmissionSubmitted:
		return to == SubmissionGraded
	default:
		return false
	}
}

// IsTerminal reports whether no further student activity is legal.
func (s SubmissionStatus) IsTerminal() bool {
	return s != SubmissionInProgress
}

// Submission is one student's attempt at an assessment, start to terminal
// status. At most one in_progress row may exist per (assessment, student);
// the aggregate fields are written exactly once, under the submit row lock.
//
// swagger:model Submission
type Submission struct {
	UUIDBase
	AssessmentID  uint             `gorm:"index;uniqueIndex:idx_submission_attempt;type:bigint unsigned" json:"assessmentId"`
	StudentID     uint             `gorm:"uniqueIndex:idx_submission_attempt;type:bigint unsigned" json:"studentId"`
	AttemptNumber int              `gorm:"uniqueIndex:idx_submission_attempt;not null" json:"attemptNumber"`
	Status        SubmissionStatus `gorm:"size:20;default:'in_progress';index" json:"status"`
	StartedAt     time.Time        `json:"startedAt"`
	SubmittedAt   *time.Time       `json:"submittedAt,omitempty"`
	TotalScore    float64          `json:"totalScore"`
	Percentage    float64          `json:"percentage"`
	Grade         string           `gorm:"size:2" json:"grade"`
	TimeTaken     int              `json:"timeTakenMinutes"`
	IPAddress     string           `gorm:"size:45" json:"-"`
	UserAgent     string           `gorm:"size:512" json:"-"`
}

func (Submission) TableName() string {
	return "submissions"
}
