package repository

import (
	"assessly_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) CreateAssessment(a *model.Assessment) error {
	return r.DB.Create(a).Error
}

func (r *AssessmentRepository) FindAssessmentByID(id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.First(&a, id).Error
	return &a, err
}

func (r *AssessmentRepository) UpdateAssessment(a *model.Assessment) error {
	return r.DB.Save(a).Error
}

func (r *AssessmentRepository) DeleteAssessment(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assessment_id = ?", id).Delete(&model.AssessmentQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Assessment{}, id).Error
	})
}

func (r *AssessmentRepository) ListAssessments(page, limit int, publishedOnly bool) ([]model.Assessment, int64, error) {
	var as []model.Assessment
	var total int64
	query := r.DB.Model(&model.Assessment{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&as).Error
	return as, total, err
}

func (r *AssessmentRepository) CreateQuestion(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *AssessmentRepository) FindQuestionByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, id).Error
	return &q, err
}

func (r *AssessmentRepository) UpdateQuestion(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *AssessmentRepository) DeleteQuestion(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&model.AssessmentQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Question{}, id).Error
	})
}

func (r *AssessmentRepository) AttachQuestion(link *model.AssessmentQuestion) error {
	return r.DB.Create(link).Error
}

func (r *AssessmentRepository) DetachQuestion(assessmentID, questionID uint) error {
	return r.DB.Where("assessment_id = ? AND question_id = ?", assessmentID, questionID).
		Delete(&model.AssessmentQuestion{}).Error
}

// ResolvedQuestion is a bank question attached to an assessment with its
// effective point value: the join-row override when present, the base question
// points otherwise.
type ResolvedQuestion struct {
	Question model.Question
	Points   float64
	Position int
}

// ListResolvedQuestions returns the current question set of an assessment in
// display order with overrides applied. This is the authoritative input for
// the scoring aggregation denominator.
func (r *AssessmentRepository) ListResolvedQuestions(assessmentID uint) ([]ResolvedQuestion, error) {
	var links []model.AssessmentQuestion
	if err := r.DB.Where("assessment_id = ?", assessmentID).
		Order("position asc, created_at asc").Find(&links).Error; err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(links))
	for i, l := range links {
		ids[i] = l.QuestionID
	}

	var questions []model.Question
	if err := r.DB.Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	resolved := make([]ResolvedQuestion, 0, len(links))
	for _, l := range links {
		q, ok := byID[l.QuestionID]
		if !ok {
			continue // question deleted from the bank after attachment
		}
		points := q.Points
		if l.PointsOverride != nil {
			points = *l.PointsOverride
		}
		resolved = append(resolved, ResolvedQuestion{Question: q, Points: points, Position: l.Position})
	}
	return resolved, nil
}

// QuestionAttached reports whether the question currently belongs to the
// assessment.
func (r *AssessmentRepository) QuestionAttached(assessmentID, questionID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.AssessmentQuestion{}).
		Where("assessment_id = ? AND question_id = ?", assessmentID, questionID).
		Count(&count).Error
	return count > 0, err
}
