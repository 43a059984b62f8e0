package service

import (
	"assessly_backend/internal/model"
	"assessly_backend/internal/util"
	"assessly_backend/pkg/cache"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// GradingStore extends the submission store with the teacher-side grading
// write.
type GradingStore interface {
	SubmissionStore
	UpdateResponseGrade(submissionID string, questionID uint, points float64, correct *bool, graderID uint, feedback string) error
}

type GradingService struct {
	Assessments  AssessmentReader
	Submissions  GradingStore
	Cache        ResultCache
	DefaultTotal float64

	now func() time.Time
}

func NewGradingService(assessments AssessmentReader, submissions GradingStore, resultCache ResultCache, defaultTotal float64) *GradingService {
	if resultCache == nil {
		resultCache = (*cache.Cache)(nil)
	}
	return &GradingService{
		Assessments:  assessments,
		Submissions:  submissions,
		Cache:        resultCache,
		DefaultTotal: defaultTotal,
		now:          time.Now,
	}
}

type GradeRequest struct {
	QuestionID   uint    `json:"questionId" binding:"required"`
	PointsEarned float64 `json:"pointsEarned"`
	IsCorrect    *bool   `json:"isCorrect"`
	Feedback     string  `json:"feedback"`
}

// GradeResponse records a manual grade for one response and re-aggregates the
// submission total under the same lock discipline as submit. Once every
// manual-grading question holds a grade the submission moves to graded.
func (s *GradingService) GradeResponse(submissionID string, req GradeRequest, graderID uint) (*model.Submission, error) {
	sub, err := s.Submissions.FindByID(submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}
	if sub.Status == model.SubmissionInProgress {
		return nil, util.ErrInvalidStatus
	}

	q, err := s.Assessments.FindQuestionByID(req.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	if _, err := s.Submissions.FindResponse(submissionID, req.QuestionID); err != nil {
		return nil, util.ErrQuestionNotFound
	}

	a, err := s.Assessments.FindAssessmentByID(sub.AssessmentID)
	if err != nil {
		return nil, err
	}
	questions, err := s.Assessments.ListResolvedQuestions(sub.AssessmentID)
	if err != nil {
		return nil, err
	}

	maxPoints := q.Points
	for _, rq := range questions {
		if rq.Question.ID == q.ID {
			maxPoints = rq.Points
		}
	}
	points := req.PointsEarned
	if points < 0 {
		points = 0
	}
	if points > maxPoints {
		points = maxPoints
	}
	correct := req.IsCorrect
	if correct == nil {
		full := points >= maxPoints
		correct = &full
	}

	if err := s.Submissions.UpdateResponseGrade(submissionID, req.QuestionID, points, correct, graderID, req.Feedback); err != nil {
		return nil, err
	}

	var final *model.Submission
	err = s.Submissions.FinalizeSubmission(submissionID, func(locked *model.Submission, responses []model.Response) error {
		agg := AggregateScores(questions, responses, a.TotalPoints, s.DefaultTotal)
		locked.TotalScore = agg.TotalScore
		locked.Percentage = agg.Percentage
		locked.Grade = agg.Grade
		if locked.Status == model.SubmissionSubmitted && allGraded(responses) {
			locked.Status = model.SubmissionGraded
		}
		final = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Cache.InvalidatePrefix(context.Background(), resultCachePrefix(sub.StudentID, sub.AssessmentID))
	s.Cache.InvalidatePrefix(context.Background(), resultCachePrefix(sub.StudentID, 0))
	return final, nil
}

func allGraded(responses []model.Response) bool {
	for _, r := range responses {
		if r.IsCorrect == nil {
			return false
		}
	}
	return true
}

// PendingResponses lists responses of a submission still awaiting manual
// review.
func (s *GradingService) PendingResponses(submissionID string) ([]model.Response, error) {
	if _, err := s.Submissions.FindByID(submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}
	responses, err := s.Submissions.ListResponses(submissionID)
	if err != nil {
		return nil, err
	}
	pending := make([]model.Response, 0)
	for _, r := range responses {
		if r.IsCorrect == nil {
			pending = append(pending, r)
		}
	}
	return pending, nil
}
