package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lms_backend/internal/grading"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmissionService drives an attempt through in_progress -> submitted -> graded.
type SubmissionService struct {
	DB          *gorm.DB
	Assessments *repository.AssessmentRepository
	Questions   *repository.QuestionRepository
	Submissions *repository.SubmissionRepository
	Courses     *repository.CourseRepository
	Grades      *GradeService
	Metrics     *monitoring.Metrics
	Log         *zap.Logger
	Now         func() time.Time
}

func NewSubmissionService(
	db *gorm.DB,
	assessments *repository.AssessmentRepository,
	questions *repository.QuestionRepository,
	submissions *repository.SubmissionRepository,
	courses *repository.CourseRepository,
	grades *GradeService,
	metrics *monitoring.Metrics,
	log *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		DB:          db,
		Assessments: assessments,
		Questions:   questions,
		Submissions: submissions,
		Courses:     courses,
		Grades:      grades,
		Metrics:     metrics,
		Log:         log,
		Now:         time.Now,
	}
}

// AnswerRequest carries exactly one of the two answer fields.
type AnswerRequest struct {
	SelectedOptionID *uint   `json:"selected_option_id"`
	TextResponse     *string `json:"text_response"`
}

type AnswerGrade struct {
	QuestionID uint    `json:"question_id" binding:"required"`
	Points     int     `json:"points"`
	Feedback   *string `json:"feedback"`
}

type GradeRequest struct {
	Grades   []AnswerGrade `json:"grades" binding:"required,min=1,dive"`
	Feedback *string       `json:"feedback"`
}

// SubmissionView adds the display percentage and pass flag once a score exists.
type SubmissionView struct {
	model.Submission
	Percentage *float64 `json:"percentage,omitempty"`
	Passed     *bool    `json:"passed,omitempty"`
}

func newSubmissionView(sub *model.Submission, passingScore *int) *SubmissionView {
	v := &SubmissionView{Submission: *sub}
	if sub.Score != nil {
		p := grading.RoundPercentage(grading.Percentage(*sub.Score, sub.MaxScore))
		v.Percentage = &p
		if passingScore != nil {
			passed := *sub.Score >= *passingScore
			v.Passed = &passed
		}
	}
	return v
}

// StartSubmission opens an attempt, or returns the one already in progress.
func (s *SubmissionService) StartSubmission(ctx context.Context, actor Actor, assessmentID uint) (*SubmissionView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SubmissionService.StartSubmission")
	defer span.End()
	span.SetAttributes(attribute.Int64("assessment_id", int64(assessmentID)))

	var (
		sub          *model.Submission
		passingScore *int
		resumed      bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assessments := s.Assessments.WithTx(tx)
		submissions := s.Submissions.WithTx(tx)

		a, err := assessments.FindByID(ctx, assessmentID)
		if err != nil {
			return err
		}
		if !a.IsPublished {
			ok, err := canManageAssessment(ctx, s.Courses.WithTx(tx), actor, a.ID)
			if err != nil {
				return err
			}
			if !ok {
				return util.ErrAssessmentNotFound
			}
		}
		passingScore = a.PassingScore

		existing, err := submissions.FindInProgress(ctx, a.ID, actor.UserID)
		if err == nil {
			sub, resumed = existing, true
			return nil
		}
		if !errors.Is(err, util.ErrNotFound) {
			return err
		}

		done, err := submissions.CountCompleted(ctx, a.ID, actor.UserID)
		if err != nil {
			return err
		}
		if done >= int64(a.AllowedAttempts) {
			return fmt.Errorf("%w: %d of %d used", util.ErrAttemptsExceeded, done, a.AllowedAttempts)
		}

		maxScore, err := assessments.SumPoints(ctx, a.ID)
		if err != nil {
			return err
		}
		sub = &model.Submission{
			AssessmentID:  a.ID,
			UserID:        actor.UserID,
			StartTime:     s.Now(),
			MaxScore:      maxScore,
			Status:        model.SubmissionInProgress,
			InProgressKey: model.InProgressKey(a.ID, actor.UserID),
		}
		return submissions.Create(ctx, sub)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// 并发开始：另一个请求已创建进行中的提交
		existing, ferr := s.Submissions.FindInProgress(ctx, assessmentID, actor.UserID)
		if ferr != nil {
			return nil, ferr
		}
		sub, resumed, err = existing, true, nil
	}
	if err != nil {
		if errors.Is(err, util.ErrAttemptsExceeded) {
			s.Metrics.SubmissionEvent(monitoring.EventAttemptsExceeded)
		}
		tracing.RecordError(span, err)
		return nil, err
	}

	if resumed {
		s.Metrics.SubmissionEvent(monitoring.EventResumed)
	} else {
		s.Metrics.SubmissionEvent(monitoring.EventStarted)
		s.Log.Info("Submission started",
			zap.Uint("submission_id", sub.ID),
			zap.Uint("assessment_id", assessmentID),
			zap.Uint("user_id", actor.UserID),
		)
	}
	return newSubmissionView(sub, passingScore), nil
}

// lockOwnInProgress loads the submission for update and checks it is the
// actor's open attempt.
func lockOwnInProgress(ctx context.Context, submissions *repository.SubmissionRepository, actor Actor, submissionID uint) (*model.Submission, error) {
	sub, err := submissions.FindByIDForUpdate(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != actor.UserID {
		return nil, util.ErrNotSubmissionOwner
	}
	if sub.Status != model.SubmissionInProgress {
		return nil, util.ErrSubmissionNotInProgress
	}
	return sub, nil
}

func validateAnswer(q *model.Question, req AnswerRequest) error {
	if (req.SelectedOptionID == nil) == (req.TextResponse == nil) {
		return util.Validationf("exactly one of selected_option_id and text_response is required")
	}
	switch q.QuestionType {
	case model.MultipleChoice, model.TrueFalse:
		if req.SelectedOptionID == nil {
			return util.Validationf("%s question requires selected_option_id", q.QuestionType)
		}
	case model.ShortAnswer, model.Essay:
		if req.TextResponse == nil {
			return util.Validationf("%s question requires text_response", q.QuestionType)
		}
		if q.WordLimit != nil && len(strings.Fields(*req.TextResponse)) > *q.WordLimit {
			return util.Validationf("answer exceeds word limit of %d", *q.WordLimit)
		}
	default:
		return util.Validationf("unknown question type %q", q.QuestionType)
	}
	return nil
}

// SaveAnswer upserts the answer for one question. Objective answers are
// scored immediately.
func (s *SubmissionService) SaveAnswer(ctx context.Context, actor Actor, submissionID, questionID uint, req AnswerRequest) (*model.AnswerResponse, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SubmissionService.SaveAnswer")
	defer span.End()

	var saved *model.AnswerResponse
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		submissions := s.Submissions.WithTx(tx)

		sub, err := lockOwnInProgress(ctx, submissions, actor, submissionID)
		if err != nil {
			return err
		}
		q, err := s.Questions.WithTx(tx).FindByID(ctx, questionID)
		if err != nil {
			return err
		}
		if q.AssessmentID != sub.AssessmentID {
			return util.ErrQuestionNotFound
		}
		if err := validateAnswer(q, req); err != nil {
			return err
		}

		answer := &model.AnswerResponse{
			SubmissionID:     sub.ID,
			QuestionID:       q.ID,
			SelectedOptionID: req.SelectedOptionID,
			TextResponse:     req.TextResponse,
		}
		answer.PointsAwarded, err = grading.ScoreAnswer(q, answer)
		if err != nil {
			return err
		}
		saved, err = submissions.UpsertAnswer(ctx, answer)
		return err
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return saved, nil
}

// SubmitAssessment closes the attempt. Without pending manual answers it is
// graded at once; otherwise it waits in submitted with no score.
func (s *SubmissionService) SubmitAssessment(ctx context.Context, actor Actor, submissionID uint) (*SubmissionView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SubmissionService.SubmitAssessment")
	defer span.End()

	var (
		sub          *model.Submission
		passingScore *int
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		submissions := s.Submissions.WithTx(tx)

		var err error
		sub, err = lockOwnInProgress(ctx, submissions, actor, submissionID)
		if err != nil {
			return err
		}
		a, err := s.Assessments.WithTx(tx).FindByID(ctx, sub.AssessmentID)
		if err != nil {
			return err
		}
		passingScore = a.PassingScore

		questions, err := s.Questions.WithTx(tx).ListByAssessment(ctx, a.ID)
		if err != nil {
			return err
		}
		answers, err := submissions.Answers(ctx, sub.ID)
		if err != nil {
			return err
		}
		if err := rescoreObjective(ctx, submissions, questions, answers); err != nil {
			return err
		}

		now := s.Now()
		res := grading.Aggregate(questions, answers, a.PassingScore)
		sub.SubmitTime = &now
		sub.IsLate = a.IsLate(now)
		sub.InProgressKey = nil
		sub.MaxScore = res.MaxScore
		if res.Complete {
			sub.Status = model.SubmissionGraded
			sub.Score = &res.Score
		} else {
			sub.Status = model.SubmissionSubmitted
			sub.Score = nil
		}
		if err := submissions.Save(ctx, sub); err != nil {
			return err
		}
		sub.Answers = answers

		if sub.Status == model.SubmissionGraded {
			return s.Grades.RecomputeForUser(ctx, tx, sub.UserID, a.ModuleID)
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	s.Metrics.SubmissionEvent(monitoring.EventSubmitted)
	view := newSubmissionView(sub, passingScore)
	if sub.Status == model.SubmissionGraded {
		s.Metrics.SubmissionEvent(monitoring.EventGraded)
		s.Metrics.ObserveScore(*view.Percentage)
	}
	s.Log.Info("Submission submitted",
		zap.Uint("submission_id", sub.ID),
		zap.String("status", string(sub.Status)),
		zap.Bool("late", sub.IsLate),
	)
	return view, nil
}

// rescoreObjective scores objective answers against the current options. An
// option removed since the answer was saved scores zero.
func rescoreObjective(ctx context.Context, submissions *repository.SubmissionRepository, questions []model.Question, answers []model.AnswerResponse) error {
	byID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	for i := range answers {
		a := &answers[i]
		q, ok := byID[a.QuestionID]
		if !ok || !q.QuestionType.AutoGradable() {
			continue
		}
		points, err := grading.ScoreAnswer(q, a)
		if err != nil || points == nil {
			zero := 0
			points = &zero
		}
		if a.PointsAwarded != nil && *a.PointsAwarded == *points {
			continue
		}
		if err := submissions.UpdateAnswerScore(ctx, a.ID, points, a.Feedback); err != nil {
			return err
		}
		a.PointsAwarded = points
	}
	return nil
}

// GradeSubmission records manual scores. Re-grading a graded submission is
// allowed.
func (s *SubmissionService) GradeSubmission(ctx context.Context, actor Actor, submissionID uint, req GradeRequest) (*SubmissionView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SubmissionService.GradeSubmission")
	defer span.End()

	if len(req.Grades) == 0 {
		return nil, util.Validationf("at least one grade is required")
	}

	var (
		sub          *model.Submission
		passingScore *int
		newlyGraded  bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		submissions := s.Submissions.WithTx(tx)

		var err error
		sub, err = submissions.FindByIDForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		ok, err := canManageAssessment(ctx, s.Courses.WithTx(tx), actor, sub.AssessmentID)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrNotInstructor
		}
		switch sub.Status {
		case model.SubmissionSubmitted, model.SubmissionGraded:
		default:
			return util.ErrSubmissionNotGradable
		}

		a, err := s.Assessments.WithTx(tx).FindByID(ctx, sub.AssessmentID)
		if err != nil {
			return err
		}
		passingScore = a.PassingScore
		questions, err := s.Questions.WithTx(tx).ListByAssessment(ctx, a.ID)
		if err != nil {
			return err
		}
		byID := make(map[uint]*model.Question, len(questions))
		for i := range questions {
			byID[questions[i].ID] = &questions[i]
		}

		for _, g := range req.Grades {
			q, ok := byID[g.QuestionID]
			if !ok {
				return util.Validationf("question %d is not on this assessment", g.QuestionID)
			}
			if g.Points < 0 || g.Points > q.Points {
				return util.Validationf("points for question %d must be between 0 and %d", q.ID, q.Points)
			}
			points := g.Points
			answer, err := submissions.FindAnswer(ctx, sub.ID, q.ID)
			switch {
			case errors.Is(err, util.ErrAnswerNotFound):
				if q.QuestionType.AutoGradable() {
					return util.Validationf("question %d has no answer", q.ID)
				}
				// 未作答的主观题，由教师直接记分
				blank := &model.AnswerResponse{
					SubmissionID:  sub.ID,
					QuestionID:    q.ID,
					PointsAwarded: &points,
					Feedback:      g.Feedback,
				}
				if err := submissions.CreateAnswer(ctx, blank); err != nil {
					return err
				}
				continue
			case err != nil:
				return err
			}
			if err := submissions.UpdateAnswerScore(ctx, answer.ID, &points, g.Feedback); err != nil {
				return err
			}
		}

		answers, err := submissions.Answers(ctx, sub.ID)
		if err != nil {
			return err
		}
		res := grading.Aggregate(questions, answers, a.PassingScore)
		sub.MaxScore = res.MaxScore
		if req.Feedback != nil {
			sub.Feedback = req.Feedback
		}
		if res.Complete {
			newlyGraded = sub.Status != model.SubmissionGraded
			sub.Status = model.SubmissionGraded
			sub.Score = &res.Score
		}
		if err := submissions.Save(ctx, sub); err != nil {
			return err
		}
		sub.Answers = answers

		if sub.Status == model.SubmissionGraded {
			return s.Grades.RecomputeForUser(ctx, tx, sub.UserID, a.ModuleID)
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	view := newSubmissionView(sub, passingScore)
	if newlyGraded {
		s.Metrics.SubmissionEvent(monitoring.EventGraded)
		s.Metrics.ObserveScore(*view.Percentage)
	}
	s.Log.Info("Submission graded",
		zap.Uint("submission_id", sub.ID),
		zap.Uint("grader_id", actor.UserID),
		zap.String("status", string(sub.Status)),
	)
	return view, nil
}

// GetSubmission is visible to the owner and to the assessment's instructors.
func (s *SubmissionService) GetSubmission(ctx context.Context, actor Actor, submissionID uint) (*SubmissionView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SubmissionService.GetSubmission")
	defer span.End()

	sub, err := s.Submissions.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != actor.UserID {
		ok, err := canManageAssessment(ctx, s.Courses, actor, sub.AssessmentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrNotSubmissionOwner
		}
	}
	a, err := s.Assessments.FindByID(ctx, sub.AssessmentID)
	if err != nil {
		return nil, err
	}
	sub.Answers, err = s.Submissions.Answers(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return newSubmissionView(sub, a.PassingScore), nil
}

// ListMySubmissions returns the actor's attempts, newest first.
func (s *SubmissionService) ListMySubmissions(ctx context.Context, actor Actor, assessmentID uint) ([]*SubmissionView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SubmissionService.ListMySubmissions")
	defer span.End()

	a, err := s.Assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	subs, err := s.Submissions.ListByUser(ctx, assessmentID, actor.UserID)
	if err != nil {
		return nil, err
	}
	views := make([]*SubmissionView, len(subs))
	for i := range subs {
		views[i] = newSubmissionView(&subs[i], a.PassingScore)
	}
	return views, nil
}

// ListSubmissionsForAssessment pages through all attempts; instructor only.
func (s *SubmissionService) ListSubmissionsForAssessment(ctx context.Context, actor Actor, assessmentID uint, status model.SubmissionStatus, page, limit int) ([]*SubmissionView, int64, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SubmissionService.ListSubmissionsForAssessment")
	defer span.End()

	if status != "" && !status.Valid() {
		return nil, 0, util.Validationf("unknown status %q", status)
	}
	a, err := s.Assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, 0, err
	}
	ok, err := canManageAssessment(ctx, s.Courses, actor, a.ID)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, util.ErrNotInstructor
	}

	subs, total, err := s.Submissions.ListByAssessment(ctx, assessmentID, status, page, limit)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, 0, err
	}
	views := make([]*SubmissionView, len(subs))
	for i := range subs {
		views[i] = newSubmissionView(&subs[i], a.PassingScore)
	}
	return views, total, nil
}
