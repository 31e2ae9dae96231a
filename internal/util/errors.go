package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by the service layer wraps exactly one of
// these; HandleError maps them to status codes.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrAttemptsExceeded = errors.New("allowed attempts exceeded")
	ErrValidation       = errors.New("validation failed")
)

var (
	ErrAssessmentNotFound      = fmt.Errorf("%w: assessment", ErrNotFound)
	ErrQuestionNotFound        = fmt.Errorf("%w: question", ErrNotFound)
	ErrSubmissionNotFound      = fmt.Errorf("%w: submission", ErrNotFound)
	ErrModuleNotFound          = fmt.Errorf("%w: module", ErrNotFound)
	ErrCourseNotFound          = fmt.Errorf("%w: course", ErrNotFound)
	ErrGradeNotFound           = fmt.Errorf("%w: grade", ErrNotFound)
	ErrAnswerNotFound          = fmt.Errorf("%w: answer", ErrNotFound)
	ErrNotSubmissionOwner      = fmt.Errorf("%w: submission belongs to another user", ErrForbidden)
	ErrNotInstructor           = fmt.Errorf("%w: instructor role required", ErrForbidden)
	ErrSubmissionNotInProgress = fmt.Errorf("%w: submission is not in progress", ErrConflict)
	ErrSubmissionNotGradable   = fmt.Errorf("%w: submission has not been submitted", ErrConflict)
	ErrAssessmentHasSubmission = fmt.Errorf("%w: assessment has submissions", ErrConflict)
)

// Validationf builds an ErrValidation with a formatted reason.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// HTTPStatus returns the status code for an error kind and whether err was one
// of the known kinds.
func HTTPStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, ErrAttemptsExceeded):
		return http.StatusConflict, true
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, true
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, true
	}
	return http.StatusInternalServerError, false
}
