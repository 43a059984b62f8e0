package service

import (
	"assessly_backend/internal/config"
	"assessly_backend/internal/model"
	"assessly_backend/internal/repository"
	"assessly_backend/internal/util"
	"assessly_backend/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	m.Run()
}

type fakeAssessments struct {
	assessments map[uint]*model.Assessment
	questions   map[uint]*model.Question
	attached    map[uint][]uint // assessmentID -> question ids in order
}

func (f *fakeAssessments) FindAssessmentByID(id uint) (*model.Assessment, error) {
	if a, ok := f.assessments[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAssessments) FindQuestionByID(id uint) (*model.Question, error) {
	if q, ok := f.questions[id]; ok {
		copied := *q
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAssessments) ListResolvedQuestions(assessmentID uint) ([]repository.ResolvedQuestion, error) {
	var out []repository.ResolvedQuestion
	for pos, qid := range f.attached[assessmentID] {
		q, ok := f.questions[qid]
		if !ok {
			continue
		}
		out = append(out, repository.ResolvedQuestion{Question: *q, Points: q.Points, Position: pos})
	}
	return out, nil
}

func (f *fakeAssessments) QuestionAttached(assessmentID, questionID uint) (bool, error) {
	for _, qid := range f.attached[assessmentID] {
		if qid == questionID {
			return true, nil
		}
	}
	return false, nil
}

type fakeStore struct {
	mu          sync.Mutex
	nextID      int
	submissions map[string]*model.Submission
	responses   map[string]map[uint]*model.Response
	accessLogs  []model.AccessLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		submissions: make(map[string]*model.Submission),
		responses:   make(map[string]map[uint]*model.Response),
	}
}

func (f *fakeStore) CreateAttempt(sub *model.Submission) (*model.Submission, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Mirror the store's get-or-create: a pending attempt wins over a new row.
	for _, existing := range f.submissions {
		if existing.AssessmentID == sub.AssessmentID &&
			existing.StudentID == sub.StudentID &&
			existing.Status == model.SubmissionInProgress {
			copied := *existing
			return &copied, false, nil
		}
	}
	f.nextID++
	sub.ID = fmt.Sprintf("sub-%d", f.nextID)
	attempt := 0
	for _, existing := range f.submissions {
		if existing.AssessmentID == sub.AssessmentID && existing.StudentID == sub.StudentID {
			attempt++
		}
	}
	sub.AttemptNumber = attempt + 1
	copied := *sub
	f.submissions[sub.ID] = &copied
	result := *sub
	return &result, true, nil
}

func (f *fakeStore) FindActive(assessmentID, studentID uint) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.submissions {
		if s.AssessmentID == assessmentID && s.StudentID == studentID && s.Status == model.SubmissionInProgress {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) FindByID(id string) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.submissions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) CountAttempts(assessmentID, studentID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.submissions {
		if s.AssessmentID == assessmentID && s.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListByStudent(assessmentID, studentID uint) ([]model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Submission
	for _, s := range f.submissions {
		if s.StudentID != studentID {
			continue
		}
		if assessmentID > 0 && s.AssessmentID != assessmentID {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeStore) UpsertResponse(resp *model.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.responses[resp.SubmissionID] == nil {
		f.responses[resp.SubmissionID] = make(map[uint]*model.Response)
	}
	copied := *resp
	f.responses[resp.SubmissionID][resp.QuestionID] = &copied
	return nil
}

func (f *fakeStore) FindResponse(submissionID string, questionID uint) (*model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.responses[submissionID][questionID]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) ListResponses(submissionID string) ([]model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Response
	for _, r := range f.responses[submissionID] {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) FinalizeSubmission(id string, fn func(sub *model.Submission, responses []model.Response) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	var responses []model.Response
	for _, r := range f.responses[id] {
		responses = append(responses, *r)
	}
	copied := *sub
	if err := fn(&copied, responses); err != nil {
		return err
	}
	f.submissions[id] = &copied
	return nil
}

func (f *fakeStore) LogAccess(log *model.AccessLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessLogs = append(f.accessLogs, *log)
	return nil
}

// spyCache is an in-memory ResultCache recording invalidated prefixes.
type spyCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated []string
}

func newSpyCache() *spyCache {
	return &spyCache{entries: make(map[string][]byte)}
}

func (c *spyCache) Get(ctx context.Context, key string, out interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (c *spyCache) Set(ctx context.Context, key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.entries[key] = raw
}

func (c *spyCache) InvalidatePrefix(ctx context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, prefix)
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

func testCfg() *config.AssessmentConfig {
	cfg := &config.AssessmentConfig{}
	cfg.GracePeriodSeconds = 120
	cfg.MaxAnswerBytes = 8192
	cfg.MaxEssayBytes = 65536
	cfg.MaxCodeBytes = 262144
	cfg.DefaultTotalPoints = 100
	cfg.MaxTimeSpentHours = 24
	return cfg
}

// newEngine builds a SubmissionService over in-memory fakes with one published
// assessment (id 1): a 5-point single choice, a 5-point multiple choice and a
// 10-point essay.
func newEngine(t *testing.T) (*SubmissionService, *fakeAssessments, *fakeStore) {
	t.Helper()
	assessments := &fakeAssessments{
		assessments: map[uint]*model.Assessment{
			1: {
				BaseModel:   model.BaseModel{ID: 1},
				Title:       "Quiz",
				TimeLimit:   30,
				MaxAttempts: 2,
				IsPublished: true,
			},
		},
		questions: map[uint]*model.Question{
			10: {
				BaseModel:     model.BaseModel{ID: 10},
				QuestionType:  model.QuestionSingleChoice,
				CorrectAnswer: json.RawMessage(`"Paris"`),
				Points:        5,
			},
			11: {
				BaseModel:     model.BaseModel{ID: 11},
				QuestionType:  model.QuestionMultipleChoice,
				CorrectAnswer: json.RawMessage(`["2","3"]`),
				Points:        5,
			},
			12: {
				BaseModel:    model.BaseModel{ID: 12},
				QuestionType: model.QuestionEssay,
				Points:       10,
			},
		},
		attached: map[uint][]uint{1: {10, 11, 12}},
	}
	store := newFakeStore()
	svc := NewSubmissionService(assessments, store, nil, testCfg())
	svc.now = func() time.Time { return baseTime }
	return svc, assessments, store
}

func startAttempt(t *testing.T, svc *SubmissionService, studentID uint) *StartResult {
	t.Helper()
	result, err := svc.StartAssessment(1, studentID, AttemptMeta{})
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestStartAssessment(t *testing.T) {
	t.Run("creates first attempt with sanitized questions", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		result := startAttempt(t, svc, 7)
		if result.AttemptNumber != 1 || result.Resumed {
			t.Fatalf("got %+v, want fresh attempt 1", result)
		}
		if len(result.Questions) != 3 {
			t.Fatalf("Questions = %d, want 3", len(result.Questions))
		}
		if result.RemainingSeconds != 30*60 {
			t.Fatalf("RemainingSeconds = %d, want 1800", result.RemainingSeconds)
		}
	})

	t.Run("second start resumes the pending attempt", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		first := startAttempt(t, svc, 7)
		second := startAttempt(t, svc, 7)
		if !second.Resumed {
			t.Fatal("expected resume of the pending attempt")
		}
		if second.SubmissionID != first.SubmissionID {
			t.Fatalf("resumed %s, want %s", second.SubmissionID, first.SubmissionID)
		}
	})

	t.Run("max attempts enforced after finished attempts", func(t *testing.T) {
		svc, _, store := newEngine(t)
		for i := 0; i < 2; i++ {
			result := startAttempt(t, svc, 7)
			done := baseTime
			store.submissions[result.SubmissionID].Status = model.SubmissionSubmitted
			store.submissions[result.SubmissionID].SubmittedAt = &done
		}
		_, err := svc.StartAssessment(1, 7, AttemptMeta{})
		if !errors.Is(err, util.ErrMaxAttemptsReached) {
			t.Fatalf("err = %v, want ErrMaxAttemptsReached", err)
		}
	})

	t.Run("unpublished assessment rejected", func(t *testing.T) {
		svc, assessments, _ := newEngine(t)
		assessments.assessments[1].IsPublished = false
		_, err := svc.StartAssessment(1, 7, AttemptMeta{})
		if !errors.Is(err, util.ErrAssessmentNotPublished) {
			t.Fatalf("err = %v, want ErrAssessmentNotPublished", err)
		}
	})

	t.Run("outside schedule rejected", func(t *testing.T) {
		svc, assessments, _ := newEngine(t)
		from := baseTime.Add(time.Hour)
		assessments.assessments[1].AvailableFrom = &from
		_, err := svc.StartAssessment(1, 7, AttemptMeta{})
		if !errors.Is(err, util.ErrOutsideSchedule) {
			t.Fatalf("err = %v, want ErrOutsideSchedule", err)
		}
	})

	t.Run("concurrent starts converge on one attempt", func(t *testing.T) {
		svc, _, store := newEngine(t)
		const n = 8
		results := make([]*StartResult, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r, err := svc.StartAssessment(1, 7, AttemptMeta{})
				if err != nil {
					t.Error(err)
					return
				}
				results[i] = r
			}(i)
		}
		wg.Wait()

		if got, _ := store.CountAttempts(1, 7); got != 1 {
			t.Fatalf("attempts created = %d, want exactly 1", got)
		}
		for _, r := range results {
			if r == nil || r.SubmissionID != results[0].SubmissionID {
				t.Fatalf("divergent submission ids: %+v", results)
			}
		}
	})
}

func TestSaveAnswer(t *testing.T) {
	t.Run("objective answer scored on save", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)

		resp, err := svc.SaveAnswer(sub.SubmissionID, 10, json.RawMessage(`"Paris"`), 60, false, 7)
		if err != nil {
			t.Fatal(err)
		}
		if resp.IsCorrect == nil || !*resp.IsCorrect || resp.PointsEarned != 5 {
			t.Fatalf("got %+v, want correct with 5 points", resp)
		}
	})

	t.Run("essay stays ungraded", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)

		resp, err := svc.SaveAnswer(sub.SubmissionID, 12, json.RawMessage(`"my essay"`), 60, false, 7)
		if err != nil {
			t.Fatal(err)
		}
		if resp.IsCorrect != nil || resp.PointsEarned != 0 {
			t.Fatalf("got %+v, want pending manual grade", resp)
		}
	})

	t.Run("resave overwrites previous answer", func(t *testing.T) {
		svc, _, store := newEngine(t)
		sub := startAttempt(t, svc, 7)

		if _, err := svc.SaveAnswer(sub.SubmissionID, 10, json.RawMessage(`"London"`), 10, false, 7); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.SaveAnswer(sub.SubmissionID, 10, json.RawMessage(`"Paris"`), 20, false, 7); err != nil {
			t.Fatal(err)
		}
		saved, err := store.FindResponse(sub.SubmissionID, 10)
		if err != nil {
			t.Fatal(err)
		}
		if saved.IsCorrect == nil || !*saved.IsCorrect {
			t.Fatalf("stored response = %+v, want latest answer", saved)
		}
		if len(store.responses[sub.SubmissionID]) != 1 {
			t.Fatal("expected a single row per (submission, question)")
		}
	})

	t.Run("inflated time claim clamped to elapsed", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		svc.now = func() time.Time { return baseTime.Add(5 * time.Minute) }

		resp, err := svc.SaveAnswer(sub.SubmissionID, 10, json.RawMessage(`"Paris"`), 999999, false, 7)
		if err != nil {
			t.Fatal(err)
		}
		if resp.TimeSpent != 300 {
			t.Fatalf("TimeSpent = %d, want 300", resp.TimeSpent)
		}
	})

	t.Run("foreign submission denied", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		_, err := svc.SaveAnswer(sub.SubmissionID, 10, json.RawMessage(`"Paris"`), 10, false, 99)
		if !errors.Is(err, util.ErrPermissionDenied) {
			t.Fatalf("err = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("detached question rejected without prior answer", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		_, err := svc.SaveAnswer(sub.SubmissionID, 999, json.RawMessage(`"x"`), 10, false, 7)
		if !errors.Is(err, util.ErrQuestionNotFound) {
			t.Fatalf("err = %v, want ErrQuestionNotFound", err)
		}
	})

	t.Run("detached question grandfathered with prior answer", func(t *testing.T) {
		svc, assessments, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		if _, err := svc.SaveAnswer(sub.SubmissionID, 10, json.RawMessage(`"London"`), 10, false, 7); err != nil {
			t.Fatal(err)
		}
		assessments.attached[1] = []uint{11, 12}

		if _, err := svc.SaveAnswer(sub.SubmissionID, 10, json.RawMessage(`"Paris"`), 20, false, 7); err != nil {
			t.Fatalf("revising an already-answered removed question failed: %v", err)
		}
	})

	t.Run("save past time limit rejected", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		svc.now = func() time.Time { return baseTime.Add(31 * time.Minute) }

		_, err := svc.SaveAnswer(sub.SubmissionID, 10, json.RawMessage(`"Paris"`), 10, false, 7)
		if !errors.Is(err, util.ErrTimeLimitExceeded) {
			t.Fatalf("err = %v, want ErrTimeLimitExceeded", err)
		}
	})
}

func TestSubmitAssessment(t *testing.T) {
	t.Run("aggregates persisted responses", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		if _, err := svc.SaveAnswer(sub.SubmissionID, 10, json.RawMessage(`"Paris"`), 30, false, 7); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.SaveAnswer(sub.SubmissionID, 11, json.RawMessage(`{"selected_options":["2","3"]}`), 30, false, 7); err != nil {
			t.Fatal(err)
		}

		result, err := svc.SubmitAssessment(sub.SubmissionID, SubmitRequest{}, 7, AttemptMeta{})
		if err != nil {
			t.Fatal(err)
		}
		final := result.Submission
		if final.Status != model.SubmissionSubmitted {
			t.Fatalf("Status = %s, want submitted", final.Status)
		}
		// 10 of 20 points: the ungraded essay stays in the denominator.
		if final.TotalScore != 10 || final.Percentage != 50 || final.Grade != "F" {
			t.Fatalf("score=%v pct=%v grade=%s, want 10/50%%/F", final.TotalScore, final.Percentage, final.Grade)
		}
	})

	t.Run("trailing answers replayed at submit", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)

		req := SubmitRequest{Answers: []InlineAnswer{
			{QuestionID: 10, Answer: json.RawMessage(`"Paris"`), TimeSpent: 30},
		}}
		result, err := svc.SubmitAssessment(sub.SubmissionID, req, 7, AttemptMeta{})
		if err != nil {
			t.Fatal(err)
		}
		if result.Submission.TotalScore != 5 {
			t.Fatalf("TotalScore = %v, want 5 from the inline answer", result.Submission.TotalScore)
		}
	})

	t.Run("trailing answers share the submit grace", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		svc.now = func() time.Time { return baseTime.Add(31 * time.Minute) }

		req := SubmitRequest{Answers: []InlineAnswer{
			{QuestionID: 10, Answer: json.RawMessage(`"Paris"`), TimeSpent: 1850},
		}}
		result, err := svc.SubmitAssessment(sub.SubmissionID, req, 7, AttemptMeta{})
		if err != nil {
			t.Fatal(err)
		}
		if result.Warning == "" {
			t.Fatal("expected late-submit warning")
		}
		if result.Submission.TotalScore != 5 {
			t.Fatalf("TotalScore = %v, want the trailing answer scored within grace", result.Submission.TotalScore)
		}
	})

	t.Run("second submit conflicts", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)

		if _, err := svc.SubmitAssessment(sub.SubmissionID, SubmitRequest{}, 7, AttemptMeta{}); err != nil {
			t.Fatal(err)
		}
		_, err := svc.SubmitAssessment(sub.SubmissionID, SubmitRequest{}, 7, AttemptMeta{})
		if !errors.Is(err, util.ErrAlreadySubmitted) {
			t.Fatalf("err = %v, want ErrAlreadySubmitted", err)
		}
	})

	t.Run("concurrent submits score exactly once", func(t *testing.T) {
		svc, _, store := newEngine(t)
		sub := startAttempt(t, svc, 7)
		if _, err := svc.SaveAnswer(sub.SubmissionID, 10, json.RawMessage(`"Paris"`), 30, false, 7); err != nil {
			t.Fatal(err)
		}

		const n = 6
		var wg sync.WaitGroup
		var okCount, conflictCount int32
		var mu sync.Mutex
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.SubmitAssessment(sub.SubmissionID, SubmitRequest{}, 7, AttemptMeta{})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					okCount++
				} else if errors.Is(err, util.ErrAlreadySubmitted) {
					conflictCount++
				}
			}()
		}
		wg.Wait()

		if okCount != 1 {
			t.Fatalf("successful submits = %d, want exactly 1", okCount)
		}
		if okCount+conflictCount != n {
			t.Fatalf("ok=%d conflict=%d, want all %d accounted for", okCount, conflictCount, n)
		}
		final, _ := store.FindByID(sub.SubmissionID)
		if final.TotalScore != 5 {
			t.Fatalf("TotalScore = %v, want single aggregate of 5", final.TotalScore)
		}
	})

	t.Run("submit within grace carries warning", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		svc.now = func() time.Time { return baseTime.Add(31 * time.Minute) }

		result, err := svc.SubmitAssessment(sub.SubmissionID, SubmitRequest{}, 7, AttemptMeta{})
		if err != nil {
			t.Fatal(err)
		}
		if result.Warning == "" {
			t.Fatal("expected late-submit warning")
		}
	})

	t.Run("submit past grace refused", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		svc.now = func() time.Time { return baseTime.Add(40 * time.Minute) }

		_, err := svc.SubmitAssessment(sub.SubmissionID, SubmitRequest{}, 7, AttemptMeta{})
		if !errors.Is(err, util.ErrTimeLimitExceeded) {
			t.Fatalf("err = %v, want ErrTimeLimitExceeded", err)
		}
	})
}

func TestGetResults(t *testing.T) {
	t.Run("refused while in progress", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		_, err := svc.GetResults(sub.SubmissionID, 7)
		if !errors.Is(err, util.ErrInvalidStatus) {
			t.Fatalf("err = %v, want ErrInvalidStatus", err)
		}
	})

	t.Run("breakdown after submit", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		if _, err := svc.SaveAnswer(sub.SubmissionID, 10, json.RawMessage(`"Paris"`), 30, false, 7); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.SaveAnswer(sub.SubmissionID, 12, json.RawMessage(`"essay text"`), 30, false, 7); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.SubmitAssessment(sub.SubmissionID, SubmitRequest{}, 7, AttemptMeta{}); err != nil {
			t.Fatal(err)
		}

		detail, err := svc.GetResults(sub.SubmissionID, 7)
		if err != nil {
			t.Fatal(err)
		}
		if len(detail.Responses) != 2 {
			t.Fatalf("Responses = %d, want 2", len(detail.Responses))
		}
		pending := 0
		for _, d := range detail.Responses {
			if d.PendingGrade {
				pending++
			}
		}
		if pending != 1 {
			t.Fatalf("pending grades = %d, want the essay only", pending)
		}
	})

	t.Run("other students denied", func(t *testing.T) {
		svc, _, _ := newEngine(t)
		sub := startAttempt(t, svc, 7)
		if _, err := svc.SubmitAssessment(sub.SubmissionID, SubmitRequest{}, 7, AttemptMeta{}); err != nil {
			t.Fatal(err)
		}
		_, err := svc.GetResults(sub.SubmissionID, 99)
		if !errors.Is(err, util.ErrPermissionDenied) {
			t.Fatalf("err = %v, want ErrPermissionDenied", err)
		}
	})
}

func TestGetHistory(t *testing.T) {
	svc, _, store := newEngine(t)
	first := startAttempt(t, svc, 7)
	store.submissions[first.SubmissionID].Status = model.SubmissionSubmitted
	second := startAttempt(t, svc, 7)
	if second.SubmissionID == first.SubmissionID {
		t.Fatal("expected a new attempt after the first was submitted")
	}

	subs, err := svc.GetHistory(1, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Fatalf("history = %d entries, want 2", len(subs))
	}
}

func TestSubmitInvalidatesHistoryCaches(t *testing.T) {
	svc, _, _ := newEngine(t)
	spy := newSpyCache()
	svc.Cache = spy
	sub := startAttempt(t, svc, 7)

	// Warm both the per-assessment and the all-assessments history views.
	if _, err := svc.GetHistory(1, 7); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetHistory(0, 7); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SubmitAssessment(sub.SubmissionID, SubmitRequest{}, 7, AttemptMeta{}); err != nil {
		t.Fatal(err)
	}

	want := map[string]bool{"results:7:1:": false, "results:7:0:": false}
	for _, p := range spy.invalidated {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for p, seen := range want {
		if !seen {
			t.Errorf("prefix %q not invalidated at submit", p)
		}
	}

	all, err := svc.GetHistory(0, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Status != model.SubmissionSubmitted {
		t.Fatalf("all-assessments history = %+v, want the submitted attempt", all)
	}
}
