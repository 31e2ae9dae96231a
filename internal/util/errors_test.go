package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		known  bool
	}{
		{ErrSubmissionNotFound, http.StatusNotFound, true},
		{fmt.Errorf("load: %w", ErrAssessmentNotFound), http.StatusNotFound, true},
		{ErrNotSubmissionOwner, http.StatusForbidden, true},
		{ErrSubmissionNotInProgress, http.StatusConflict, true},
		{ErrAttemptsExceeded, http.StatusConflict, true},
		{Validationf("points %d out of range", 25), http.StatusBadRequest, true},
		{errors.New("connection reset"), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		status, known := HTTPStatus(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.known, known, tc.err.Error())
	}
}

func TestSpecificErrorsKeepKind(t *testing.T) {
	assert.ErrorIs(t, ErrAssessmentHasSubmission, ErrConflict)
	assert.ErrorIs(t, ErrNotInstructor, ErrForbidden)
	assert.NotErrorIs(t, ErrAttemptsExceeded, ErrConflict)
}
