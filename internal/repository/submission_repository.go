package repository

import (
	"assessly_backend/internal/model"
	"assessly_backend/internal/util"
	"database/sql"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository struct {
	DB         *gorm.DB
	Caps       *Capabilities
	RetryDelay time.Duration
}

func NewSubmissionRepository(db *gorm.DB, caps *Capabilities) *SubmissionRepository {
	return &SubmissionRepository{DB: db, Caps: caps, RetryDelay: 50 * time.Millisecond}
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "Duplicate entry")
}

// isLockConflict matches the InnoDB errors a lost lock race surfaces as: two
// empty-set locking reads for the same pair hold gap locks, so the second
// insert reports a deadlock rather than a duplicate key.
func isLockConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Deadlock found") ||
		strings.Contains(msg, "Lock wait timeout")
}

// resolveAttempt inspects the locked rows of one (assessment, student) pair.
// It returns the in_progress row to resume if one exists, otherwise the next
// attempt number to allocate.
func resolveAttempt(rows []model.Submission) (*model.Submission, int) {
	maxAttempt := 0
	var active *model.Submission
	for i := range rows {
		if rows[i].AttemptNumber > maxAttempt {
			maxAttempt = rows[i].AttemptNumber
		}
		if active == nil && rows[i].Status == model.SubmissionInProgress {
			active = &rows[i]
		}
	}
	return active, maxAttempt + 1
}

// CreateAttempt is the get-or-create behind start. It locks every row of the
// (assessment, student) pair, so a concurrent start that already committed an
// in_progress row is seen here and handed back with created=false instead of
// allocating a second active attempt. When neither caller can see the other's
// row yet, the two inserts collide on the gap/unique locks; that loser retries
// once after a short delay and then recovers the winner's row. The returned
// bool reports whether this call created the row.
func (r *SubmissionRepository) CreateAttempt(sub *model.Submission) (*model.Submission, bool, error) {
	var out *model.Submission
	var created bool
	attempt := func() error {
		out, created = nil, false
		return r.DB.Transaction(func(tx *gorm.DB) error {
			var rows []model.Submission
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("assessment_id = ? AND student_id = ?", sub.AssessmentID, sub.StudentID).
				Find(&rows).Error
			if err != nil {
				return err
			}

			existing, next := resolveAttempt(rows)
			if existing != nil {
				out = existing
				return nil
			}
			sub.AttemptNumber = next

			create := tx
			if !r.Caps.SubmissionMeta {
				create = create.Omit("ip_address", "user_agent")
			}
			if err := create.Create(sub).Error; err != nil {
				return err
			}
			out, created = sub, true
			return nil
		})
	}

	err := attempt()
	if err != nil && (isDuplicateKey(err) || isLockConflict(err)) {
		// Lost the allocation race; one bounded retry after a short delay.
		time.Sleep(r.RetryDelay)
		sub.ID = ""
		err = attempt()
	}
	if err == nil {
		return out, created, nil
	}
	if !isDuplicateKey(err) && !isLockConflict(err) {
		return nil, false, err
	}

	// The retry collided too: the winner's row is committed by now.
	// Idempotent-by-recovery, hand back the winner's state.
	existing, ferr := r.FindActive(sub.AssessmentID, sub.StudentID)
	if ferr != nil {
		return nil, false, util.ErrAttemptConflict
	}
	return existing, false, nil
}

// FindActive returns the single in_progress submission for the pair, if any.
func (r *SubmissionRepository) FindActive(assessmentID, studentID uint) (*model.Submission, error) {
	var sub model.Submission
	err := r.DB.Where("assessment_id = ? AND student_id = ? AND status = ?",
		assessmentID, studentID, model.SubmissionInProgress).
		Order("attempt_number desc").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubmissionRepository) FindByID(id string) (*model.Submission, error) {
	var sub model.Submission
	err := r.DB.First(&sub, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubmissionRepository) CountAttempts(assessmentID, studentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Submission{}).
		Where("assessment_id = ? AND student_id = ?", assessmentID, studentID).
		Count(&count).Error
	return count, err
}

func (r *SubmissionRepository) ListByStudent(assessmentID, studentID uint) ([]model.Submission, error) {
	var subs []model.Submission
	query := r.DB.Where("student_id = ?", studentID)
	if assessmentID > 0 {
		query = query.Where("assessment_id = ?", assessmentID)
	}
	err := query.Order("started_at desc").Find(&subs).Error
	return subs, err
}

// UpsertResponse writes an answer keyed on (submission_id, question_id).
// Concurrent saves to the same question resolve through the store's conflict
// handling; updated_at is stamped server-side so the last server write wins.
func (r *SubmissionRepository) UpsertResponse(resp *model.Response) error {
	assignments := []string{"student_answer", "selected_options", "time_spent",
		"is_correct", "points_earned", "is_flagged", "updated_at"}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns(assignments),
	}).Create(resp).Error
}

func (r *SubmissionRepository) FindResponse(submissionID string, questionID uint) (*model.Response, error) {
	var resp model.Response
	err := r.DB.Where("submission_id = ? AND question_id = ?", submissionID, questionID).
		First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *SubmissionRepository) ListResponses(submissionID string) ([]model.Response, error) {
	var responses []model.Response
	err := r.DB.Where("submission_id = ?", submissionID).Find(&responses).Error
	return responses, err
}

// FinalizeSubmission runs fn inside a REPEATABLE READ transaction holding an
// exclusive row lock on the submission, then persists the mutated row. fn
// receives the locked submission and its responses; it must re-check status
// itself, which is the defense against a concurrent double submit. Any error
// from fn rolls the whole transaction back.
func (r *SubmissionRepository) FinalizeSubmission(id string, fn func(sub *model.Submission, responses []model.Response) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var sub model.Submission
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sub, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrSubmissionNotFound
			}
			return err
		}

		var responses []model.Response
		if err := tx.Where("submission_id = ?", id).Find(&responses).Error; err != nil {
			return err
		}

		if err := fn(&sub, responses); err != nil {
			return err
		}

		return tx.Save(&sub).Error
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
}

// UpdateResponseGrade applies a manual grade to one response.
func (r *SubmissionRepository) UpdateResponseGrade(submissionID string, questionID uint, points float64, correct *bool, graderID uint, feedback string) error {
	updates := map[string]interface{}{
		"points_earned": points,
		"is_correct":    correct,
		"feedback":      feedback,
	}
	if r.Caps.ResponseGrading {
		now := time.Now()
		updates["graded_by"] = graderID
		updates["graded_at"] = &now
	}
	return r.DB.Model(&model.Response{}).
		Where("submission_id = ? AND question_id = ?", submissionID, questionID).
		Updates(updates).Error
}

// LogAccess records submission access when the schema carries the table.
// Callers treat failures as non-fatal.
func (r *SubmissionRepository) LogAccess(log *model.AccessLog) error {
	if !r.Caps.AccessLogs {
		return nil
	}
	return r.DB.Create(log).Error
}
