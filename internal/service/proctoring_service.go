package service

import (
	"assessly_backend/internal/model"
	"assessly_backend/internal/repository"
	"assessly_backend/internal/util"
	"assessly_backend/pkg/logger"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProctoringService struct {
	Repo        *repository.ProctoringRepository
	Submissions SubmissionStore

	now func() time.Time
}

func NewProctoringService(repo *repository.ProctoringRepository, submissions SubmissionStore) *ProctoringService {
	return &ProctoringService{Repo: repo, Submissions: submissions, now: time.Now}
}

type ProctoringEventRequest struct {
	EventType  string          `json:"eventType" binding:"required"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt *time.Time      `json:"occurredAt"`
}

// ReportEvent stores a client-side proctoring event against an in-progress
// submission. The timestamp of record is the server clock; a client-supplied
// one is kept only when it is not in the future.
func (s *ProctoringService) ReportEvent(submissionID string, req ProctoringEventRequest, studentID uint) (*model.ProctoringEvent, error) {
	sub, err := s.Submissions.FindByID(submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}
	if sub.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	if sub.Status != model.SubmissionInProgress {
		return nil, util.ErrInvalidStatus
	}

	now := s.now()
	occurred := now
	if req.OccurredAt != nil && !req.OccurredAt.After(now) {
		occurred = *req.OccurredAt
	}

	event := &model.ProctoringEvent{
		SubmissionID: submissionID,
		StudentID:    studentID,
		EventType:    req.EventType,
		Payload:      []byte(req.Payload),
		OccurredAt:   occurred,
	}
	if err := s.Repo.CreateEvent(event); err != nil {
		return nil, err
	}
	logger.Log.Info("proctoring event recorded",
		zap.String("submission_id", submissionID),
		zap.String("event_type", req.EventType))
	return event, nil
}

// ListEvents is the reviewer view; the owning student may also audit their
// own trail.
func (s *ProctoringService) ListEvents(submissionID string, userID uint, role model.UserRole) ([]model.ProctoringEvent, error) {
	sub, err := s.Submissions.FindByID(submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}
	if role == model.RoleStudent && sub.StudentID != userID {
		return nil, util.ErrPermissionDenied
	}
	return s.Repo.ListEvents(submissionID)
}
