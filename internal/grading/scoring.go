// Package grading scores answers and aggregates submission totals. Everything
// here is pure: callers load the rows and persist the results.
package grading

import (
	"math"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
)

// ScoreAnswer returns the points for one answer, or nil when the question
// type needs a human grader. A selected option that does not belong to the
// question is a validation error, never a zero score.
func ScoreAnswer(q *model.Question, a *model.AnswerResponse) (*int, error) {
	switch q.QuestionType {
	case model.MultipleChoice, model.TrueFalse:
		if a.SelectedOptionID == nil {
			return nil, util.Validationf("question %d requires selected_option_id", q.ID)
		}
		opt, ok := q.Option(*a.SelectedOptionID)
		if !ok {
			return nil, util.Validationf("option %d does not belong to question %d", *a.SelectedOptionID, q.ID)
		}
		points := 0
		if opt.IsCorrect {
			points = q.Points
		}
		return &points, nil
	case model.ShortAnswer, model.Essay:
		return nil, nil
	}
	return nil, util.Validationf("unknown question type %q", q.QuestionType)
}

// Result is the aggregate of a submission's answers.
type Result struct {
	Score      int
	MaxScore   int
	Percentage float64 // unrounded
	Passed     *bool   // nil when the assessment has no passing score
	// Complete is false while any manual question, answered or not, has no
	// points yet.
	Complete bool
}

// Aggregate totals answers against the assessment's live questions. Answers to
// questions that are no longer on the assessment are ignored. An unanswered
// objective question counts as zero; an unanswered manual question still
// waits for a grader.
func Aggregate(questions []model.Question, answers []model.AnswerResponse, passingScore *int) Result {
	byQuestion := make(map[uint]*model.AnswerResponse, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	res := Result{Complete: true}
	for _, q := range questions {
		res.MaxScore += q.Points
		a, ok := byQuestion[q.ID]
		if !ok {
			if !q.QuestionType.AutoGradable() {
				res.Complete = false
			}
			continue
		}
		if a.PointsAwarded == nil {
			res.Complete = false
			continue
		}
		res.Score += *a.PointsAwarded
	}

	res.Percentage = Percentage(res.Score, res.MaxScore)
	if passingScore != nil {
		passed := res.Score >= *passingScore
		res.Passed = &passed
	}
	return res
}

// Percentage is score/max*100, or 0 when max is 0.
func Percentage(score, max int) float64 {
	if max <= 0 {
		return 0
	}
	return float64(score) / float64(max) * 100
}

// RoundPercentage rounds to one decimal place for display.
func RoundPercentage(p float64) float64 {
	return math.Round(p*10) / 10
}
