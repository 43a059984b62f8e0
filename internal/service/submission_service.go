package service

import (
	"assessly_backend/internal/config"
	"assessly_backend/internal/model"
	"assessly_backend/internal/repository"
	"assessly_backend/internal/util"
	"assessly_backend/pkg/cache"
	"assessly_backend/pkg/logger"
	"assessly_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssessmentReader is the read surface of the assessment/question store the
// orchestrator depends on.
type AssessmentReader interface {
	FindAssessmentByID(id uint) (*model.Assessment, error)
	FindQuestionByID(id uint) (*model.Question, error)
	ListResolvedQuestions(assessmentID uint) ([]repository.ResolvedQuestion, error)
	QuestionAttached(assessmentID, questionID uint) (bool, error)
}

// SubmissionStore is the submission/response persistence surface. The
// concurrency-sensitive operations (CreateAttempt, FinalizeSubmission,
// UpsertResponse) carry the locking and conflict-resolution semantics
// documented on repository.SubmissionRepository.
type SubmissionStore interface {
	CreateAttempt(sub *model.Submission) (*model.Submission, bool, error)
	FindActive(assessmentID, studentID uint) (*model.Submission, error)
	FindByID(id string) (*model.Submission, error)
	CountAttempts(assessmentID, studentID uint) (int64, error)
	ListByStudent(assessmentID, studentID uint) ([]model.Submission, error)
	UpsertResponse(resp *model.Response) error
	FindResponse(submissionID string, questionID uint) (*model.Response, error)
	ListResponses(submissionID string) ([]model.Response, error)
	FinalizeSubmission(id string, fn func(sub *model.Submission, responses []model.Response) error) error
	LogAccess(log *model.AccessLog) error
}

// ResultCache is the slice of pkg/cache the engine uses. Misses and failed
// invalidations only cost latency, never correctness.
type ResultCache interface {
	Get(ctx context.Context, key string, out interface{}) bool
	Set(ctx context.Context, key string, value interface{})
	InvalidatePrefix(ctx context.Context, prefix string)
}

type SubmissionService struct {
	Assessments AssessmentReader
	Submissions SubmissionStore
	Cache       ResultCache
	Cfg         *config.AssessmentConfig

	now func() time.Time
}

func NewSubmissionService(assessments AssessmentReader, submissions SubmissionStore, resultCache ResultCache, cfg *config.AssessmentConfig) *SubmissionService {
	if resultCache == nil {
		resultCache = (*cache.Cache)(nil)
	}
	return &SubmissionService{
		Assessments: assessments,
		Submissions: submissions,
		Cache:       resultCache,
		Cfg:         cfg,
		now:         time.Now,
	}
}

func (s *SubmissionService) limits() AnswerLimits {
	return AnswerLimits{
		MaxAnswerBytes: s.Cfg.MaxAnswerBytes,
		MaxEssayBytes:  s.Cfg.MaxEssayBytes,
		MaxCodeBytes:   s.Cfg.MaxCodeBytes,
	}
}

func (s *SubmissionService) grace() time.Duration {
	return time.Duration(s.Cfg.GracePeriodSeconds) * time.Second
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func resultCachePrefix(studentID, assessmentID uint) string {
	return fmt.Sprintf("results:%d:%d:", studentID, assessmentID)
}

type AttemptMeta struct {
	IPAddress string
	UserAgent string
}

// StudentQuestion is the sanitized question view handed to students. It never
// carries the correct answer.
type StudentQuestion struct {
	ID           uint               `json:"id"`
	QuestionType model.QuestionType `json:"questionType"`
	Title        string             `json:"title"`
	Content      string             `json:"content"`
	Options      json.RawMessage    `json:"options,omitempty"`
	Points       float64            `json:"points"`
	Position     int                `json:"position"`
	Required     bool               `json:"required"`
}

type StartResult struct {
	SubmissionID     string            `json:"submissionId"`
	AttemptNumber    int               `json:"attemptNumber"`
	Resumed          bool              `json:"resumed"`
	Title            string            `json:"title"`
	TimeLimit        int               `json:"timeLimit"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Questions        []StudentQuestion `json:"questions"`
}

// StartAssessment opens a new attempt, or resumes the pending in_progress one.
// A concurrent duplicate start resolves to the winner's submission through the
// store's get-or-create: the caller can never end up with two active attempts.
func (s *SubmissionService) StartAssessment(assessmentID, studentID uint, meta AttemptMeta) (*StartResult, error) {
	a, err := s.Assessments.FindAssessmentByID(assessmentID)
	if err != nil {
		return nil, notFound(err, util.ErrAssessmentNotFound)
	}
	if !a.IsPublished {
		return nil, util.ErrAssessmentNotPublished
	}
	now := s.now()
	if !a.AvailableAt(now) {
		return nil, util.ErrOutsideSchedule
	}

	// Resume before consuming a fresh attempt slot.
	if existing, err := s.Submissions.FindActive(assessmentID, studentID); err == nil {
		return s.startResult(a, existing, true, now)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if a.MaxAttempts > 0 {
		used, err := s.Submissions.CountAttempts(assessmentID, studentID)
		if err != nil {
			return nil, err
		}
		if used >= int64(a.MaxAttempts) {
			return nil, util.ErrMaxAttemptsReached
		}
	}

	sub := &model.Submission{
		AssessmentID: assessmentID,
		StudentID:    studentID,
		Status:       model.SubmissionInProgress,
		StartedAt:    now,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
	created, wonRace, err := s.Submissions.CreateAttempt(sub)
	if err != nil {
		return nil, err
	}
	if wonRace {
		monitoring.SubmissionCounter.WithLabelValues("started").Inc()
	} else {
		monitoring.SubmissionCounter.WithLabelValues("start_recovered").Inc()
		logger.Log.Info("start recovered concurrent attempt",
			zap.String("submission_id", created.ID),
			zap.Uint("student_id", studentID))
	}

	s.logAccess(created.ID, studentID, "start", meta)
	return s.startResult(a, created, !wonRace, now)
}

func (s *SubmissionService) startResult(a *model.Assessment, sub *model.Submission, resumed bool, now time.Time) (*StartResult, error) {
	resolved, err := s.Assessments.ListResolvedQuestions(a.ID)
	if err != nil {
		return nil, err
	}
	questions := make([]StudentQuestion, len(resolved))
	for i, rq := range resolved {
		questions[i] = StudentQuestion{
			ID:           rq.Question.ID,
			QuestionType: rq.Question.QuestionType,
			Title:        rq.Question.Title,
			Content:      rq.Question.Content,
			Options:      rq.Question.Options,
			Points:       rq.Points,
			Position:     rq.Position,
			Required:     rq.Question.Required,
		}
	}
	return &StartResult{
		SubmissionID:     sub.ID,
		AttemptNumber:    sub.AttemptNumber,
		Resumed:          resumed,
		Title:            a.Title,
		TimeLimit:        a.TimeLimit,
		RemainingSeconds: RemainingSeconds(a, sub, now),
		Questions:        questions,
	}, nil
}

// SaveAnswer validates, normalizes, scores (for objective types) and upserts
// one answer. The persisted time_spent is the server-validated value; an
// inflated client claim is clamped to the wall clock since the attempt began.
// A standalone save is strictly blocked past the time limit.
func (s *SubmissionService) SaveAnswer(submissionID string, questionID uint, raw json.RawMessage, claimedTimeSpent int, flagged bool, studentID uint) (*model.Response, error) {
	return s.saveAnswer(submissionID, questionID, raw, claimedTimeSpent, flagged, studentID, 0)
}

// saveAnswer carries the shared save path. A non-zero grace loosens the window
// check to the submit rule, for trailing answers replayed as part of a submit
// that was itself admitted within grace.
func (s *SubmissionService) saveAnswer(submissionID string, questionID uint, raw json.RawMessage, claimedTimeSpent int, flagged bool, studentID uint, grace time.Duration) (*model.Response, error) {
	sub, err := s.Submissions.FindByID(submissionID)
	if err != nil {
		return nil, notFound(err, util.ErrSubmissionNotFound)
	}
	if sub.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	if sub.Status != model.SubmissionInProgress {
		return nil, util.ErrInvalidStatus
	}

	a, err := s.Assessments.FindAssessmentByID(sub.AssessmentID)
	if err != nil {
		return nil, notFound(err, util.ErrAssessmentNotFound)
	}
	now := s.now()
	if grace > 0 {
		if _, err := CheckSubmitWindow(a, sub, now, grace); err != nil {
			return nil, err
		}
	} else if err := CheckSaveWindow(a, sub, now); err != nil {
		return nil, err
	}

	attached, err := s.Assessments.QuestionAttached(sub.AssessmentID, questionID)
	if err != nil {
		return nil, err
	}
	if !attached {
		// A question removed from the assessment mid-attempt stays answerable
		// if this student already has a response for it.
		if _, err := s.Submissions.FindResponse(submissionID, questionID); err != nil {
			return nil, util.ErrQuestionNotFound
		}
	}

	q, err := s.Assessments.FindQuestionByID(questionID)
	if err != nil {
		return nil, notFound(err, util.ErrQuestionNotFound)
	}

	normalized, err := NormalizeAnswer(q, raw, s.limits())
	if err != nil {
		return nil, err
	}

	points := s.resolvedPoints(sub.AssessmentID, q)
	score := ScoreAnswer(q, points, normalized)

	selected, _ := json.Marshal(normalized.Selected)
	resp := &model.Response{
		SubmissionID:    submissionID,
		QuestionID:      questionID,
		StudentAnswer:   normalized.Text,
		SelectedOptions: selected,
		TimeSpent:       ValidateTimeSpent(claimedTimeSpent, sub.StartedAt, now, time.Duration(s.Cfg.MaxTimeSpentHours)*time.Hour),
		IsCorrect:       score.IsCorrect,
		PointsEarned:    score.PointsEarned,
		IsFlagged:       flagged,
	}
	if err := s.Submissions.UpsertResponse(resp); err != nil {
		return nil, err
	}
	monitoring.SubmissionCounter.WithLabelValues("answer_saved").Inc()
	return resp, nil
}

func (s *SubmissionService) resolvedPoints(assessmentID uint, q *model.Question) float64 {
	resolved, err := s.Assessments.ListResolvedQuestions(assessmentID)
	if err == nil {
		for _, rq := range resolved {
			if rq.Question.ID == q.ID {
				return rq.Points
			}
		}
	}
	return q.Points
}

// InlineAnswer is a trailing answer replayed during submit.
type InlineAnswer struct {
	QuestionID uint            `json:"questionId"`
	Answer     json.RawMessage `json:"answer"`
	TimeSpent  int             `json:"timeSpent"`
}

type SubmitRequest struct {
	Answers []InlineAnswer `json:"answers,omitempty"`
}

type SubmitResult struct {
	Submission *model.Submission `json:"submission"`
	Warning    string            `json:"warning,omitempty"`
}

// SubmitAssessment finalizes an attempt: replay trailing answers, then score
// the persisted responses under a REPEATABLE READ transaction and an
// exclusive row lock, re-checking status under that lock so two concurrent
// submits commit exactly one aggregate. Replayed answer upserts are
// idempotent and deliberately stay outside the protected transaction.
func (s *SubmissionService) SubmitAssessment(submissionID string, req SubmitRequest, studentID uint, meta AttemptMeta) (*SubmitResult, error) {
	sub, err := s.Submissions.FindByID(submissionID)
	if err != nil {
		return nil, notFound(err, util.ErrSubmissionNotFound)
	}
	if sub.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	if sub.Status != model.SubmissionInProgress {
		return nil, util.ErrAlreadySubmitted
	}

	a, err := s.Assessments.FindAssessmentByID(sub.AssessmentID)
	if err != nil {
		return nil, notFound(err, util.ErrAssessmentNotFound)
	}
	now := s.now()
	warning, err := CheckSubmitWindow(a, sub, now, s.grace())
	if err != nil {
		return nil, err
	}
	if warning != "" {
		logger.Log.Warn("late submission accepted within grace",
			zap.String("submission_id", submissionID),
			zap.String("warning", warning))
	}

	// Last-chance save of answers the client still held locally. They share
	// the grace the submit itself was admitted under; individual failures must
	// not block the submit.
	for _, ans := range req.Answers {
		if _, err := s.saveAnswer(submissionID, ans.QuestionID, ans.Answer, ans.TimeSpent, false, studentID, s.grace()); err != nil {
			logger.Log.Warn("trailing answer rejected at submit",
				zap.String("submission_id", submissionID),
				zap.Uint("question_id", ans.QuestionID),
				zap.Error(err))
		}
	}

	questions, err := s.Assessments.ListResolvedQuestions(sub.AssessmentID)
	if err != nil {
		return nil, err
	}

	var final *model.Submission
	err = s.Submissions.FinalizeSubmission(submissionID, func(locked *model.Submission, responses []model.Response) error {
		// Authoritative status check under the row lock: the loser of a
		// double-submit race must see the transition and abort here.
		if locked.Status != model.SubmissionInProgress {
			return util.ErrAlreadySubmitted
		}
		if !model.CanTransition(locked.Status, model.SubmissionSubmitted) {
			return util.ErrInvalidStatus
		}

		agg := AggregateScores(questions, responses, a.TotalPoints, float64(s.Cfg.DefaultTotalPoints))
		submittedAt := s.now()
		locked.Status = model.SubmissionSubmitted
		locked.SubmittedAt = &submittedAt
		locked.TotalScore = agg.TotalScore
		locked.Percentage = agg.Percentage
		locked.Grade = agg.Grade
		locked.TimeTaken = int(submittedAt.Sub(locked.StartedAt).Minutes())
		final = locked
		return nil
	})
	if err != nil {
		if errors.Is(err, util.ErrAlreadySubmitted) {
			monitoring.SubmissionCounter.WithLabelValues("submit_conflict").Inc()
		}
		return nil, err
	}
	monitoring.SubmissionCounter.WithLabelValues("submitted").Inc()

	// Both the per-assessment entries and the all-assessments history list
	// (cached under assessment id 0) are stale now.
	s.Cache.InvalidatePrefix(context.Background(), resultCachePrefix(studentID, sub.AssessmentID))
	s.Cache.InvalidatePrefix(context.Background(), resultCachePrefix(studentID, 0))
	s.logAccess(submissionID, studentID, "submit", meta)

	logger.Log.Info("submission scored",
		zap.String("submission_id", submissionID),
		zap.Float64("total_score", final.TotalScore),
		zap.Float64("percentage", final.Percentage),
		zap.String("grade", final.Grade))

	return &SubmitResult{Submission: final, Warning: warning}, nil
}

// ResponseDetail pairs a stored response with its reviewed question.
type ResponseDetail struct {
	Question     StudentQuestion `json:"question"`
	Response     model.Response  `json:"response"`
	Explanation  string          `json:"explanation,omitempty"`
	PendingGrade bool            `json:"pendingGrade"`
}

type ResultDetail struct {
	Submission *model.Submission `json:"submission"`
	Responses  []ResponseDetail  `json:"responses"`
}

// GetResults returns the scored submission with per-question breakdown.
// Results exist only after submit; in-progress attempts are refused.
func (s *SubmissionService) GetResults(submissionID string, studentID uint) (*ResultDetail, error) {
	sub, err := s.Submissions.FindByID(submissionID)
	if err != nil {
		return nil, notFound(err, util.ErrSubmissionNotFound)
	}
	if sub.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	if sub.Status == model.SubmissionInProgress {
		return nil, util.ErrInvalidStatus
	}

	ctx := context.Background()
	cacheKey := resultCachePrefix(studentID, sub.AssessmentID) + submissionID
	var cached ResultDetail
	if s.Cache.Get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	responses, err := s.Submissions.ListResponses(submissionID)
	if err != nil {
		return nil, err
	}
	resolved, err := s.Assessments.ListResolvedQuestions(sub.AssessmentID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]repository.ResolvedQuestion, len(resolved))
	for _, rq := range resolved {
		byID[rq.Question.ID] = rq
	}

	details := make([]ResponseDetail, 0, len(responses))
	for _, resp := range responses {
		d := ResponseDetail{Response: resp, PendingGrade: resp.IsCorrect == nil}
		if rq, ok := byID[resp.QuestionID]; ok {
			d.Question = StudentQuestion{
				ID:           rq.Question.ID,
				QuestionType: rq.Question.QuestionType,
				Title:        rq.Question.Title,
				Content:      rq.Question.Content,
				Options:      rq.Question.Options,
				Points:       rq.Points,
				Position:     rq.Position,
				Required:     rq.Question.Required,
			}
			d.Explanation = rq.Question.Explanation
		}
		details = append(details, d)
	}

	result := &ResultDetail{Submission: sub, Responses: details}
	s.Cache.Set(ctx, cacheKey, result)
	return result, nil
}

// GetHistory lists a student's past attempts, newest first. assessmentID 0
// means all assessments.
func (s *SubmissionService) GetHistory(assessmentID, studentID uint) ([]model.Submission, error) {
	ctx := context.Background()
	cacheKey := resultCachePrefix(studentID, assessmentID) + "history"
	var cached []model.Submission
	if s.Cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	subs, err := s.Submissions.ListByStudent(assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, cacheKey, subs)
	return subs, nil
}

// logAccess is best-effort: a failed auxiliary write never blocks the primary
// use case.
func (s *SubmissionService) logAccess(submissionID string, studentID uint, action string, meta AttemptMeta) {
	err := s.Submissions.LogAccess(&model.AccessLog{
		SubmissionID: submissionID,
		StudentID:    studentID,
		Action:       action,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
	if err != nil {
		logger.Log.Warn("access log write failed",
			zap.String("submission_id", submissionID),
			zap.Error(err))
	}
}
