package service

import (
	"assessly_backend/internal/model"
	"assessly_backend/internal/repository"
	"assessly_backend/internal/util"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type AssessmentService struct {
	Repo *repository.AssessmentRepository

	now func() time.Time
}

func NewAssessmentService(repo *repository.AssessmentRepository) *AssessmentService {
	return &AssessmentService{Repo: repo, now: time.Now}
}

type CreateAssessmentRequest struct {
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description"`
	TimeLimit      int        `json:"timeLimit"`
	MaxAttempts    int        `json:"maxAttempts"`
	TotalPoints    float64    `json:"totalPoints"`
	AvailableFrom  *time.Time `json:"availableFrom"`
	AvailableUntil *time.Time `json:"availableUntil"`
}

func (s *AssessmentService) CreateAssessment(req CreateAssessmentRequest, creatorID uint) (*model.Assessment, error) {
	a := &model.Assessment{
		Title:          req.Title,
		Description:    req.Description,
		TimeLimit:      req.TimeLimit,
		MaxAttempts:    req.MaxAttempts,
		TotalPoints:    req.TotalPoints,
		AvailableFrom:  req.AvailableFrom,
		AvailableUntil: req.AvailableUntil,
		CreatorID:      creatorID,
	}
	if a.MaxAttempts == 0 {
		a.MaxAttempts = 1
	}
	if err := s.Repo.CreateAssessment(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) GetAssessment(id uint) (*model.Assessment, error) {
	a, err := s.Repo.FindAssessmentByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}
	return a, nil
}

// ownedBy gates authoring mutations: only the creator or an admin may touch an
// assessment.
func ownedBy(a *model.Assessment, userID uint, role model.UserRole) bool {
	return a.CreatorID == userID || role == model.RoleAdmin
}

func (s *AssessmentService) UpdateAssessment(id uint, req CreateAssessmentRequest, userID uint, role model.UserRole) (*model.Assessment, error) {
	a, err := s.GetAssessment(id)
	if err != nil {
		return nil, err
	}
	if !ownedBy(a, userID, role) {
		return nil, util.ErrPermissionDenied
	}
	a.Title = req.Title
	a.Description = req.Description
	a.TimeLimit = req.TimeLimit
	a.MaxAttempts = req.MaxAttempts
	a.TotalPoints = req.TotalPoints
	a.AvailableFrom = req.AvailableFrom
	a.AvailableUntil = req.AvailableUntil
	if err := s.Repo.UpdateAssessment(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) DeleteAssessment(id uint, userID uint, role model.UserRole) error {
	a, err := s.GetAssessment(id)
	if err != nil {
		return err
	}
	if !ownedBy(a, userID, role) {
		return util.ErrPermissionDenied
	}
	return s.Repo.DeleteAssessment(id)
}

// Publish snapshots the resolved question total into TotalPoints so the
// declared denominator matches the question set at publish time.
func (s *AssessmentService) Publish(id uint, userID uint, role model.UserRole) (*model.Assessment, error) {
	a, err := s.GetAssessment(id)
	if err != nil {
		return nil, err
	}
	if !ownedBy(a, userID, role) {
		return nil, util.ErrPermissionDenied
	}
	resolved, err := s.Repo.ListResolvedQuestions(id)
	if err != nil {
		return nil, err
	}
	var total float64
	for _, rq := range resolved {
		total += rq.Points
	}
	if total > 0 {
		a.TotalPoints = total
	}
	now := s.now()
	a.IsPublished = true
	a.PublishedAt = &now
	if err := s.Repo.UpdateAssessment(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) Unpublish(id uint, userID uint, role model.UserRole) (*model.Assessment, error) {
	a, err := s.GetAssessment(id)
	if err != nil {
		return nil, err
	}
	if !ownedBy(a, userID, role) {
		return nil, util.ErrPermissionDenied
	}
	a.IsPublished = false
	if err := s.Repo.UpdateAssessment(a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssessments pages assessments. Students only see published ones.
func (s *AssessmentService) ListAssessments(page, limit int, role model.UserRole) ([]model.Assessment, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Repo.ListAssessments(page, limit, role == model.RoleStudent)
}

type QuestionRequest struct {
	QuestionType  model.QuestionType `json:"questionType" binding:"required"`
	Title         string             `json:"title" binding:"required"`
	Content       string             `json:"content"`
	Options       json.RawMessage    `json:"options"`
	CorrectAnswer json.RawMessage    `json:"correctAnswer"`
	Points        float64            `json:"points"`
	Required      bool               `json:"required"`
	Explanation   string             `json:"explanation"`
}

func (s *AssessmentService) CreateQuestion(req QuestionRequest, creatorID uint) (*model.Question, error) {
	if !req.QuestionType.Valid() {
		return nil, util.ErrInvalidQuestionType
	}
	q := &model.Question{
		QuestionType:  req.QuestionType,
		Title:         req.Title,
		Content:       req.Content,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Points:        req.Points,
		Required:      req.Required,
		Explanation:   req.Explanation,
		CreatorID:     creatorID,
	}
	if err := s.Repo.CreateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *AssessmentService) UpdateQuestion(id uint, req QuestionRequest, userID uint, role model.UserRole) (*model.Question, error) {
	q, err := s.Repo.FindQuestionByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	if q.CreatorID != userID && role != model.RoleAdmin {
		return nil, util.ErrPermissionDenied
	}
	q.QuestionType = req.QuestionType
	q.Title = req.Title
	q.Content = req.Content
	q.Options = req.Options
	q.CorrectAnswer = req.CorrectAnswer
	q.Points = req.Points
	q.Required = req.Required
	q.Explanation = req.Explanation
	if err := s.Repo.UpdateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *AssessmentService) DeleteQuestion(id uint, userID uint, role model.UserRole) error {
	q, err := s.Repo.FindQuestionByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuestionNotFound
		}
		return err
	}
	if q.CreatorID != userID && role != model.RoleAdmin {
		return util.ErrPermissionDenied
	}
	return s.Repo.DeleteQuestion(id)
}

type AttachQuestionRequest struct {
	QuestionID     uint     `json:"questionId" binding:"required"`
	PointsOverride *float64 `json:"pointsOverride"`
	Position       int      `json:"position"`
}

func (s *AssessmentService) AttachQuestion(assessmentID uint, req AttachQuestionRequest, userID uint, role model.UserRole) error {
	a, err := s.GetAssessment(assessmentID)
	if err != nil {
		return err
	}
	if !ownedBy(a, userID, role) {
		return util.ErrPermissionDenied
	}
	if _, err := s.Repo.FindQuestionByID(req.QuestionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuestionNotFound
		}
		return err
	}
	return s.Repo.AttachQuestion(&model.AssessmentQuestion{
		AssessmentID:   assessmentID,
		QuestionID:     req.QuestionID,
		PointsOverride: req.PointsOverride,
		Position:       req.Position,
	})
}

func (s *AssessmentService) DetachQuestion(assessmentID, questionID uint, userID uint, role model.UserRole) error {
	a, err := s.GetAssessment(assessmentID)
	if err != nil {
		return err
	}
	if !ownedBy(a, userID, role) {
		return util.ErrPermissionDenied
	}
	return s.Repo.DetachQuestion(assessmentID, questionID)
}

// ListQuestions returns the full resolved question set including correct
// answers, for authors only.
func (s *AssessmentService) ListQuestions(assessmentID uint, userID uint, role model.UserRole) ([]repository.ResolvedQuestion, error) {
	a, err := s.GetAssessment(assessmentID)
	if err != nil {
		return nil, err
	}
	if !ownedBy(a, userID, role) {
		return nil, util.ErrPermissionDenied
	}
	return s.Repo.ListResolvedQuestions(assessmentID)
}
