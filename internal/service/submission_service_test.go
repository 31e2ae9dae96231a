package service

import (
	"sync"
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/testutil"
	"lms_backend/internal/util"
	"lms_backend/pkg/monitoring"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSubmissionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)

	first := f.start(t, learner, a.ID)
	second := f.start(t, learner, a.ID)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.SubmissionInProgress, first.Status)
	assert.Equal(t, 5, first.MaxScore)
	assert.Equal(t, f.now, first.StartTime)

	var count int64
	require.NoError(t, f.db.Model(&model.Submission{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.metrics.SubmissionEvents.WithLabelValues(monitoring.EventStarted)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.metrics.SubmissionEvents.WithLabelValues(monitoring.EventResumed)))
}

func TestStartSubmissionAttemptsExceeded(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 2)
	testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)

	for i := 0; i < 2; i++ {
		sub := f.start(t, learner, a.ID)
		f.submit(t, learner, sub.ID)
	}

	_, err := f.submissions.StartSubmission(f.ctx, learner, a.ID)
	require.ErrorIs(t, err, util.ErrAttemptsExceeded)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.metrics.SubmissionEvents.WithLabelValues(monitoring.EventAttemptsExceeded)))

	// 其他学生不受影响
	f.start(t, otherLearner, a.ID)
}

func TestStartSubmissionMissingOrHidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.submissions.StartSubmission(f.ctx, learner, 999)
	assert.ErrorIs(t, err, util.ErrNotFound)

	a := testutil.SeedAssessment(t, f.db, 1)
	require.NoError(t, f.db.Model(a).Update("is_published", false).Error)

	_, err = f.submissions.StartSubmission(f.ctx, learner, a.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	// 讲师可以预览未发布的测评
	f.start(t, instructor, a.ID)

	require.NoError(t, f.db.Delete(&model.Assessment{}, a.ID).Error)
	_, err = f.submissions.StartSubmission(f.ctx, instructor, a.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestStartSubmissionConcurrent(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)

	const workers = 8
	ids := make([]uint, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub, err := f.submissions.StartSubmission(f.ctx, learner, a.ID)
			errs[i] = err
			if err == nil {
				ids[i] = sub.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	var count int64
	require.NoError(t, f.db.Model(&model.Submission{}).
		Where("status = ?", model.SubmissionInProgress).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSaveAnswerScoresChoiceEagerly(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	q := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	sub := f.start(t, learner, a.ID)

	correct := f.choose(t, learner, sub.ID, q, testutil.CorrectOption(q))
	require.NotNil(t, correct.PointsAwarded)
	assert.Equal(t, 5, *correct.PointsAwarded)

	for _, o := range q.Options {
		if o.IsCorrect {
			continue
		}
		wrong := f.choose(t, learner, sub.ID, q, o.ID)
		require.NotNil(t, wrong.PointsAwarded)
		assert.Equal(t, 0, *wrong.PointsAwarded)
		// 覆盖而不是新增
		assert.Equal(t, correct.ID, wrong.ID)
	}

	var count int64
	require.NoError(t, f.db.Model(&model.AnswerResponse{}).Where("submission_id = ?", sub.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSaveAnswerManualIsUnscored(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	q := testutil.SeedEssayQuestion(t, f.db, a.ID, 10)
	sub := f.start(t, learner, a.ID)

	ans := f.write(t, learner, sub.ID, q, "balance both sides")
	assert.Nil(t, ans.PointsAwarded)
	require.NotNil(t, ans.TextResponse)
	assert.Equal(t, "balance both sides", *ans.TextResponse)
}

func TestSaveAnswerPayloadValidation(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	choice := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	other := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	essay := testutil.SeedEssayQuestion(t, f.db, a.ID, 10)
	sub := f.start(t, learner, a.ID)

	optionID := testutil.CorrectOption(choice)
	foreignID := testutil.CorrectOption(other)
	text := "four"

	cases := []struct {
		name     string
		question *model.Question
		req      AnswerRequest
	}{
		{"both fields", choice, AnswerRequest{SelectedOptionID: &optionID, TextResponse: &text}},
		{"neither field", choice, AnswerRequest{}},
		{"text on choice", choice, AnswerRequest{TextResponse: &text}},
		{"option on essay", essay, AnswerRequest{SelectedOptionID: &optionID}},
		{"option of another question", choice, AnswerRequest{SelectedOptionID: &foreignID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.submissions.SaveAnswer(f.ctx, learner, sub.ID, tc.question.ID, tc.req)
			assert.ErrorIs(t, err, util.ErrValidation)
		})
	}
}

func TestSaveAnswerWordLimit(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	q := testutil.SeedEssayQuestion(t, f.db, a.ID, 10)
	require.NoError(t, f.db.Model(q).Update("word_limit", 3).Error)
	sub := f.start(t, learner, a.ID)

	text := "one two three four"
	_, err := f.submissions.SaveAnswer(f.ctx, learner, sub.ID, q.ID, AnswerRequest{TextResponse: &text})
	assert.ErrorIs(t, err, util.ErrValidation)

	f.write(t, learner, sub.ID, q, "one two three")
}

func TestSaveAnswerAccess(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	q := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	elsewhere := testutil.SeedAssessment(t, f.db, 1)
	foreignQ := testutil.SeedChoiceQuestion(t, f.db, elsewhere.ID, 5)
	sub := f.start(t, learner, a.ID)
	optionID := testutil.CorrectOption(q)

	_, err := f.submissions.SaveAnswer(f.ctx, otherLearner, sub.ID, q.ID, AnswerRequest{SelectedOptionID: &optionID})
	assert.ErrorIs(t, err, util.ErrForbidden)

	_, err = f.submissions.SaveAnswer(f.ctx, learner, 999, q.ID, AnswerRequest{SelectedOptionID: &optionID})
	assert.ErrorIs(t, err, util.ErrNotFound)

	foreignOption := testutil.CorrectOption(foreignQ)
	_, err = f.submissions.SaveAnswer(f.ctx, learner, sub.ID, foreignQ.ID, AnswerRequest{SelectedOptionID: &foreignOption})
	assert.ErrorIs(t, err, util.ErrNotFound)

	f.submit(t, learner, sub.ID)
	_, err = f.submissions.SaveAnswer(f.ctx, learner, sub.ID, q.ID, AnswerRequest{SelectedOptionID: &optionID})
	assert.ErrorIs(t, err, util.ErrConflict)
}

func TestSubmitObjectiveOnlyIsGraded(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	q1 := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	q2 := testutil.SeedChoiceQuestion(t, f.db, a.ID, 10)
	sub := f.start(t, learner, a.ID)

	f.choose(t, learner, sub.ID, q1, testutil.CorrectOption(q1))
	f.choose(t, learner, sub.ID, q2, testutil.WrongOption(q2))
	f.now = f.now.Add(10 * time.Minute)

	got := f.submit(t, learner, sub.ID)
	assert.Equal(t, model.SubmissionGraded, got.Status)
	require.NotNil(t, got.Score)
	assert.Equal(t, 5, *got.Score)
	assert.Equal(t, 15, got.MaxScore)
	require.NotNil(t, got.Percentage)
	assert.Equal(t, 33.3, *got.Percentage)
	assert.Nil(t, got.Passed)
	require.NotNil(t, got.SubmitTime)
	assert.Equal(t, f.now, *got.SubmitTime)
	assert.False(t, got.IsLate)
	assert.Len(t, got.Answers, 2)

	_, err := f.submissions.SubmitAssessment(f.ctx, learner, sub.ID)
	assert.ErrorIs(t, err, util.ErrConflict)

	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.metrics.SubmissionEvents.WithLabelValues(monitoring.EventGraded)))

	// 提交后 in_progress_key 已清空
	var stored model.Submission
	require.NoError(t, f.db.First(&stored, sub.ID).Error)
	assert.Nil(t, stored.InProgressKey)
}

func TestSubmitUnansweredCountsZero(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	q1 := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	testutil.SeedChoiceQuestion(t, f.db, a.ID, 10)
	sub := f.start(t, learner, a.ID)
	f.choose(t, learner, sub.ID, q1, testutil.CorrectOption(q1))

	got := f.submit(t, learner, sub.ID)
	assert.Equal(t, model.SubmissionGraded, got.Status)
	assert.Equal(t, 5, *got.Score)
	assert.Equal(t, 15, got.MaxScore)
}

func TestSubmitMarksLateAndPassed(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	q := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	due := f.now.Add(time.Hour)
	require.NoError(t, f.db.Model(a).Updates(map[string]interface{}{"due_date": due, "passing_score": 5}).Error)

	sub := f.start(t, learner, a.ID)
	f.choose(t, learner, sub.ID, q, testutil.CorrectOption(q))
	f.now = due.Add(time.Second)

	got := f.submit(t, learner, sub.ID)
	assert.True(t, got.IsLate)
	require.NotNil(t, got.Passed)
	assert.True(t, *got.Passed)
}

func TestSubmitRescoresRemovedOption(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	q := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	sub := f.start(t, learner, a.ID)
	f.choose(t, learner, sub.ID, q, testutil.CorrectOption(q))

	_, err := f.assessments.UpdateQuestion(f.ctx, instructor, q.ID, QuestionUpdateRequest{
		Options: &[]OptionRequest{{OptionText: "four", IsCorrect: true}, {OptionText: "five"}},
	})
	require.NoError(t, err)

	got := f.submit(t, learner, sub.ID)
	assert.Equal(t, model.SubmissionGraded, got.Status)
	assert.Equal(t, 0, *got.Score)
}

func TestSubmitWithEssayThenGrade(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	mc := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	essay := testutil.SeedEssayQuestion(t, f.db, a.ID, 10)
	sub := f.start(t, learner, a.ID)

	// 未提交时不能评分
	_, err := f.submissions.GradeSubmission(f.ctx, instructor, sub.ID, GradeRequest{
		Grades: []AnswerGrade{{QuestionID: essay.ID, Points: 5}},
	})
	assert.ErrorIs(t, err, util.ErrConflict)

	f.choose(t, learner, sub.ID, mc, testutil.CorrectOption(mc))
	f.write(t, learner, sub.ID, essay, "subtract then divide")

	got := f.submit(t, learner, sub.ID)
	assert.Equal(t, model.SubmissionSubmitted, got.Status)
	assert.Nil(t, got.Score)
	assert.Nil(t, got.Percentage)

	_, err = f.submissions.GradeSubmission(f.ctx, learner, sub.ID, GradeRequest{
		Grades: []AnswerGrade{{QuestionID: essay.ID, Points: 5}},
	})
	assert.ErrorIs(t, err, util.ErrForbidden)

	_, err = f.submissions.GradeSubmission(f.ctx, otherTeacher, sub.ID, GradeRequest{
		Grades: []AnswerGrade{{QuestionID: essay.ID, Points: 5}},
	})
	assert.ErrorIs(t, err, util.ErrForbidden)

	_, err = f.submissions.GradeSubmission(f.ctx, instructor, sub.ID, GradeRequest{
		Grades: []AnswerGrade{{QuestionID: essay.ID, Points: 25}},
	})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.submissions.GradeSubmission(f.ctx, instructor, sub.ID, GradeRequest{
		Grades: []AnswerGrade{{QuestionID: essay.ID, Points: -1}},
	})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.submissions.GradeSubmission(f.ctx, instructor, sub.ID, GradeRequest{
		Grades: []AnswerGrade{{QuestionID: 999, Points: 1}},
	})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.submissions.GradeSubmission(f.ctx, instructor, sub.ID, GradeRequest{})
	assert.ErrorIs(t, err, util.ErrValidation)

	feedback := "show the steps"
	graded, err := f.submissions.GradeSubmission(f.ctx, instructor, sub.ID, GradeRequest{
		Grades:   []AnswerGrade{{QuestionID: essay.ID, Points: 7, Feedback: &feedback}},
		Feedback: &feedback,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionGraded, graded.Status)
	require.NotNil(t, graded.Score)
	assert.Equal(t, 12, *graded.Score)
	assert.Equal(t, 15, graded.MaxScore)
	require.NotNil(t, graded.Feedback)
	assert.Equal(t, feedback, *graded.Feedback)

	// 重新评分
	regraded, err := f.submissions.GradeSubmission(f.ctx, admin, sub.ID, GradeRequest{
		Grades: []AnswerGrade{{QuestionID: essay.ID, Points: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionGraded, regraded.Status)
	assert.Equal(t, 15, *regraded.Score)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.metrics.SubmissionEvents.WithLabelValues(monitoring.EventGraded)))
}

func TestSkippedEssayWaitsForGrader(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	q := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	essay := testutil.SeedEssayQuestion(t, f.db, a.ID, 10)
	sub := f.start(t, learner, a.ID)
	f.choose(t, learner, sub.ID, q, testutil.CorrectOption(q))

	submitted := f.submit(t, learner, sub.ID)
	assert.Equal(t, model.SubmissionSubmitted, submitted.Status)
	assert.Nil(t, submitted.Score)

	feedback := "no answer given"
	graded, err := f.submissions.GradeSubmission(f.ctx, instructor, sub.ID, GradeRequest{
		Grades: []AnswerGrade{{QuestionID: essay.ID, Points: 0, Feedback: &feedback}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionGraded, graded.Status)
	require.NotNil(t, graded.Score)
	assert.Equal(t, 5, *graded.Score)

	var stored model.AnswerResponse
	require.NoError(t, f.db.Where("submission_id = ? AND question_id = ?", sub.ID, essay.ID).First(&stored).Error)
	assert.Nil(t, stored.TextResponse)
	require.NotNil(t, stored.PointsAwarded)
	assert.Equal(t, 0, *stored.PointsAwarded)
	require.NotNil(t, stored.Feedback)
	assert.Equal(t, feedback, *stored.Feedback)

	// 再次评分更新同一行
	regraded, err := f.submissions.GradeSubmission(f.ctx, instructor, sub.ID, GradeRequest{
		Grades: []AnswerGrade{{QuestionID: essay.ID, Points: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, *regraded.Score)
	var count int64
	require.NoError(t, f.db.Model(&model.AnswerResponse{}).Where("submission_id = ?", sub.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestGradeUnansweredObjectiveQuestion(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	q := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	essay := testutil.SeedEssayQuestion(t, f.db, a.ID, 10)
	sub := f.start(t, learner, a.ID)
	f.write(t, learner, sub.ID, essay, "answer")
	f.submit(t, learner, sub.ID)

	_, err := f.submissions.GradeSubmission(f.ctx, instructor, sub.ID, GradeRequest{
		Grades: []AnswerGrade{{QuestionID: q.ID, Points: 5}},
	})
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestGetSubmissionAccess(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 1)
	q := testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)
	sub := f.start(t, learner, a.ID)
	f.choose(t, learner, sub.ID, q, testutil.CorrectOption(q))

	own, err := f.submissions.GetSubmission(f.ctx, learner, sub.ID)
	require.NoError(t, err)
	assert.Len(t, own.Answers, 1)

	_, err = f.submissions.GetSubmission(f.ctx, instructor, sub.ID)
	require.NoError(t, err)
	_, err = f.submissions.GetSubmission(f.ctx, admin, sub.ID)
	require.NoError(t, err)

	_, err = f.submissions.GetSubmission(f.ctx, otherLearner, sub.ID)
	assert.ErrorIs(t, err, util.ErrForbidden)
	_, err = f.submissions.GetSubmission(f.ctx, otherTeacher, sub.ID)
	assert.ErrorIs(t, err, util.ErrForbidden)
	_, err = f.submissions.GetSubmission(f.ctx, learner, 999)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestListSubmissions(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedAssessment(t, f.db, 3)
	testutil.SeedChoiceQuestion(t, f.db, a.ID, 5)

	first := f.start(t, learner, a.ID)
	f.submit(t, learner, first.ID)
	f.now = f.now.Add(time.Minute)
	f.start(t, learner, a.ID)
	f.start(t, otherLearner, a.ID)

	mine, err := f.submissions.ListMySubmissions(f.ctx, learner, a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, model.SubmissionInProgress, mine[0].Status)
	assert.Equal(t, first.ID, mine[1].ID)

	all, total, err := f.submissions.ListSubmissionsForAssessment(f.ctx, instructor, a.ID, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	graded, total, err := f.submissions.ListSubmissionsForAssessment(f.ctx, instructor, a.ID, model.SubmissionGraded, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, first.ID, graded[0].ID)

	page, total, err := f.submissions.ListSubmissionsForAssessment(f.ctx, instructor, a.ID, "", 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 1)

	_, _, err = f.submissions.ListSubmissionsForAssessment(f.ctx, instructor, a.ID, "archived", 1, 20)
	assert.ErrorIs(t, err, util.ErrValidation)
	_, _, err = f.submissions.ListSubmissionsForAssessment(f.ctx, learner, a.ID, "", 1, 20)
	assert.ErrorIs(t, err, util.ErrForbidden)
}
