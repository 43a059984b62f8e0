package util

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailRegistered        = errors.New("email already registered")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrAssessmentNotFound     = errors.New("assessment not found")
	ErrQuestionNotFound       = errors.New("question not found")
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrAssessmentNotPublished = errors.New("assessment not published or not accessible")
	ErrOutsideSchedule        = errors.New("assessment not available at this time")
	ErrMaxAttemptsReached     = errors.New("maximum attempts reached")
	ErrAlreadySubmitted       = errors.New("submission already submitted")
	ErrInvalidStatus          = errors.New("operation not allowed in current submission status")
	ErrTimeLimitExceeded      = errors.New("time limit exceeded")
	ErrAnswerEmpty            = errors.New("answer is required for this question")
	ErrAnswerTooLarge         = errors.New("answer exceeds maximum allowed size")
	ErrAttemptConflict        = errors.New("attempt allocation conflict")
	ErrInvalidQuestionType    = errors.New("unsupported question type")
)

// ErrorStatus maps a use-case error to the HTTP status the transport layer
// should return. Classification is by message substring; controllers and any
// external caller rely on this contract, so wording of the sentinels above is
// load-bearing.
func ErrorStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission denied"):
		return http.StatusForbidden
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "already submitted"):
		return http.StatusConflict
	case strings.Contains(msg, "maximum attempts"),
		strings.Contains(msg, "not allowed in current"),
		strings.Contains(msg, "not available at this time"),
		strings.Contains(msg, "not published"),
		strings.Contains(msg, "time limit exceeded"),
		strings.Contains(msg, "is required"),
		strings.Contains(msg, "exceeds maximum"),
		strings.Contains(msg, "unsupported question type"):
		return http.StatusBadRequest
	case strings.Contains(msg, "allocation conflict"):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
