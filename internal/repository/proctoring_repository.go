package repository

import (
	"assessly_backend/internal/model"

	"gorm.io/gorm"
)

type ProctoringRepository struct {
	DB *gorm.DB
}

func NewProctoringRepository(db *gorm.DB) *ProctoringRepository {
	return &ProctoringRepository{DB: db}
}

func (r *ProctoringRepository) CreateEvent(event *model.ProctoringEvent) error {
	return r.DB.Create(event).Error
}

func (r *ProctoringRepository) ListEvents(submissionID string) ([]model.ProctoringEvent, error) {
	var events []model.ProctoringEvent
	err := r.DB.Where("submission_id = ?", submissionID).
		Order("occurred_at asc").Find(&events).Error
	return events, err
}
