package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/tracing"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// AssessmentService handles assessment and question authoring and the views
// learners and instructors read.
type AssessmentService struct {
	DB          *gorm.DB
	Assessments *repository.AssessmentRepository
	Questions   *repository.QuestionRepository
	Submissions *repository.SubmissionRepository
	Courses     *repository.CourseRepository
	Cache       repository.AssessmentCache
	Log         *zap.Logger

	loads singleflight.Group
}

func NewAssessmentService(
	db *gorm.DB,
	assessments *repository.AssessmentRepository,
	questions *repository.QuestionRepository,
	submissions *repository.SubmissionRepository,
	courses *repository.CourseRepository,
	cache repository.AssessmentCache,
	log *zap.Logger,
) *AssessmentService {
	if cache == nil {
		cache = repository.NopAssessmentCache{}
	}
	return &AssessmentService{
		DB:          db,
		Assessments: assessments,
		Questions:   questions,
		Submissions: submissions,
		Courses:     courses,
		Cache:       cache,
		Log:         log,
	}
}

const loadTimeout = 10 * time.Second

type AssessmentRequest struct {
	Title           string               `json:"title" binding:"required,max=255"`
	Description     string               `json:"description"`
	Type            model.AssessmentType `json:"type" binding:"required,assessment_type"`
	PassingScore    *int                 `json:"passing_score" binding:"omitempty,min=0"`
	DurationMinutes *int                 `json:"duration_minutes" binding:"omitempty,min=1"`
	DueDate         *time.Time           `json:"due_date"`
	IsPublished     bool                 `json:"is_published"`
	Instructions    string               `json:"instructions"`
	AllowedAttempts int                  `json:"allowed_attempts" binding:"required,min=1"`
}

type OptionRequest struct {
	OptionText string `json:"option_text" binding:"required"`
	IsCorrect  bool   `json:"is_correct"`
	OrderIndex int    `json:"order_index"`
}

type QuestionRequest struct {
	QuestionText string             `json:"question_text" binding:"required"`
	QuestionType model.QuestionType `json:"question_type" binding:"required,question_type"`
	Points       *int               `json:"points" binding:"omitempty,min=0"`
	OrderIndex   int                `json:"order_index"`
	MediaURL     *string            `json:"media_url"`
	AnswerKey    *string            `json:"answer_key"`
	WordLimit    *int               `json:"word_limit" binding:"omitempty,min=0"`
	Options      []OptionRequest    `json:"options" binding:"omitempty,dive"`
}

// QuestionUpdateRequest changes only the fields present. Options, when
// present, replace the whole option set.
type QuestionUpdateRequest struct {
	QuestionText *string             `json:"question_text"`
	QuestionType *model.QuestionType `json:"question_type" binding:"omitempty,question_type"`
	Points       *int                `json:"points" binding:"omitempty,min=0"`
	OrderIndex   *int                `json:"order_index"`
	MediaURL     *string             `json:"media_url"`
	AnswerKey    *string             `json:"answer_key"`
	WordLimit    *int                `json:"word_limit" binding:"omitempty,min=0"`
	Options      *[]OptionRequest    `json:"options"`
}

type OptionView struct {
	ID         uint   `json:"id"`
	OptionText string `json:"option_text"`
	IsCorrect  *bool  `json:"is_correct,omitempty"`
	OrderIndex int    `json:"order_index"`
}

type QuestionView struct {
	ID           uint               `json:"id"`
	AssessmentID uint               `json:"assessment_id"`
	QuestionText string             `json:"question_text"`
	QuestionType model.QuestionType `json:"question_type"`
	Points       int                `json:"points"`
	OrderIndex   int                `json:"order_index"`
	MediaURL     *string            `json:"media_url"`
	AnswerKey    *string            `json:"answer_key,omitempty"`
	WordLimit    *int               `json:"word_limit,omitempty"`
	Options      []OptionView       `json:"options,omitempty"`
}

type AssessmentView struct {
	ID              uint                 `json:"id"`
	ModuleID        uint                 `json:"module_id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Type            model.AssessmentType `json:"type"`
	MaxScore        int                  `json:"max_score"`
	PassingScore    *int                 `json:"passing_score"`
	DurationMinutes *int                 `json:"duration_minutes"`
	DueDate         *time.Time           `json:"due_date"`
	IsPublished     bool                 `json:"is_published"`
	Instructions    string               `json:"instructions"`
	AllowedAttempts int                  `json:"allowed_attempts"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Questions       []QuestionView       `json:"questions,omitempty"`
}

// NewQuestionView hides is_correct and answer_key unless teacherView is set.
func NewQuestionView(q *model.Question, teacherView bool) QuestionView {
	v := QuestionView{
		ID:           q.ID,
		AssessmentID: q.AssessmentID,
		QuestionText: q.QuestionText,
		QuestionType: q.QuestionType,
		Points:       q.Points,
		OrderIndex:   q.OrderIndex,
		MediaURL:     q.MediaURL,
		WordLimit:    q.WordLimit,
	}
	if teacherView {
		v.AnswerKey = q.AnswerKey
	}
	for _, o := range q.Options {
		ov := OptionView{ID: o.ID, OptionText: o.OptionText, OrderIndex: o.OrderIndex}
		if teacherView {
			correct := o.IsCorrect
			ov.IsCorrect = &correct
		}
		v.Options = append(v.Options, ov)
	}
	return v
}

func NewAssessmentView(a *model.Assessment, teacherView bool) *AssessmentView {
	v := &AssessmentView{
		ID:              a.ID,
		ModuleID:        a.ModuleID,
		Title:           a.Title,
		Description:     a.Description,
		Type:            a.Type,
		MaxScore:        a.MaxScore,
		PassingScore:    a.PassingScore,
		DurationMinutes: a.DurationMinutes,
		DueDate:         a.DueDate,
		IsPublished:     a.IsPublished,
		Instructions:    a.Instructions,
		AllowedAttempts: a.AllowedAttempts,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	for i := range a.Questions {
		v.Questions = append(v.Questions, NewQuestionView(&a.Questions[i], teacherView))
	}
	return v
}

func validateAssessment(req *AssessmentRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return util.Validationf("title is required")
	}
	if !req.Type.Valid() {
		return util.Validationf("unknown assessment type %q", req.Type)
	}
	if req.AllowedAttempts < 1 {
		return util.Validationf("allowed_attempts must be at least 1")
	}
	if req.DurationMinutes != nil && *req.DurationMinutes < 1 {
		return util.Validationf("duration_minutes must be at least 1")
	}
	if req.PassingScore != nil && *req.PassingScore < 0 {
		return util.Validationf("passing_score must not be negative")
	}
	return nil
}

func applyAssessment(a *model.Assessment, req *AssessmentRequest) {
	a.Title = req.Title
	a.Description = req.Description
	a.Type = req.Type
	a.PassingScore = req.PassingScore
	a.DurationMinutes = req.DurationMinutes
	a.DueDate = req.DueDate
	a.IsPublished = req.IsPublished
	a.Instructions = req.Instructions
	a.AllowedAttempts = req.AllowedAttempts
}

// validateQuestion checks the question together with the option set it will
// carry.
func validateQuestion(q *model.Question, opts []model.QuestionOption) error {
	if strings.TrimSpace(q.QuestionText) == "" {
		return util.Validationf("question_text is required")
	}
	if q.Points < 0 {
		return util.Validationf("points must not be negative")
	}
	for _, o := range opts {
		if strings.TrimSpace(o.OptionText) == "" {
			return util.Validationf("option_text is required")
		}
	}

	switch q.QuestionType {
	case model.MultipleChoice, model.TrueFalse:
		if len(opts) < 2 {
			return util.Validationf("%s question needs at least 2 options", q.QuestionType)
		}
		correct := 0
		for _, o := range opts {
			if o.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			return util.Validationf("%s question needs a correct option", q.QuestionType)
		}
		if q.AnswerKey != nil {
			return util.Validationf("answer_key is not allowed on %s questions", q.QuestionType)
		}
		if q.WordLimit != nil {
			return util.Validationf("word_limit is only allowed on essay questions")
		}
	case model.ShortAnswer, model.Essay:
		if len(opts) > 0 {
			return util.Validationf("%s question must not have options", q.QuestionType)
		}
		if q.WordLimit != nil {
			if q.QuestionType != model.Essay {
				return util.Validationf("word_limit is only allowed on essay questions")
			}
			if *q.WordLimit < 0 {
				return util.Validationf("word_limit must not be negative")
			}
		}
	default:
		return util.Validationf("unknown question type %q", q.QuestionType)
	}
	return nil
}

func toOptions(reqs []OptionRequest) []model.QuestionOption {
	opts := make([]model.QuestionOption, len(reqs))
	for i, o := range reqs {
		opts[i] = model.QuestionOption{OptionText: o.OptionText, IsCorrect: o.IsCorrect, OrderIndex: o.OrderIndex}
	}
	return opts
}

// loadAssessment reads through the cache; concurrent misses share one query.
// The cache version is read before the database, so a fill that races an
// authoring write lands under a version nobody reads any more.
func (s *AssessmentService) loadAssessment(ctx context.Context, id uint) (*model.Assessment, error) {
	version, err := s.Cache.Version(ctx, id)
	if err != nil {
		s.Log.Warn("Assessment cache version read failed", zap.Uint("assessment_id", id), zap.Error(err))
		version = -1
	}
	key := strconv.FormatUint(uint64(id), 10) + ":" + strconv.FormatInt(version, 10)

	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		// 共享加载不受单个请求取消的影响
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		if version >= 0 {
			cached, err := s.Cache.Get(loadCtx, id, version)
			if err != nil {
				s.Log.Warn("Assessment cache read failed", zap.Uint("assessment_id", id), zap.Error(err))
			}
			if cached != nil {
				return cached, nil
			}
		}
		a, err := s.Assessments.FindWithQuestions(loadCtx, id)
		if err != nil {
			return nil, err
		}
		if version >= 0 {
			if err := s.Cache.Set(loadCtx, a, version); err != nil {
				s.Log.Warn("Assessment cache write failed", zap.Uint("assessment_id", id), zap.Error(err))
			}
		}
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	// 返回副本，调用方可能修改
	a := *v.(*model.Assessment)
	return &a, nil
}

func (s *AssessmentService) invalidate(ctx context.Context, id uint) {
	if err := s.Cache.Invalidate(ctx, id); err != nil {
		s.Log.Warn("Assessment cache invalidation failed", zap.Uint("assessment_id", id), zap.Error(err))
	}
}

func passingScoreError(passing, maxScore int) error {
	return util.Validationf("passing_score %d exceeds max_score %d", passing, maxScore)
}

// refreshMaxScore re-derives max_score after a question change. A change that
// lowers max_score below passing_score is rejected; adding questions only
// raises it, so an assessment still being built is never blocked.
func refreshMaxScore(ctx context.Context, assessments *repository.AssessmentRepository, id uint) error {
	a, err := assessments.FindByID(ctx, id)
	if err != nil {
		return err
	}
	maxScore, err := assessments.RefreshMaxScore(ctx, id)
	if err != nil {
		return err
	}
	if a.PassingScore != nil && maxScore < a.MaxScore && *a.PassingScore > maxScore {
		return passingScoreError(*a.PassingScore, maxScore)
	}
	return nil
}

// GetAssessment returns the assessment with its questions. The teacher view
// is instructor only; learners never see unpublished assessments.
func (s *AssessmentService) GetAssessment(ctx context.Context, actor Actor, id uint, teacherView bool) (*AssessmentView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AssessmentService.GetAssessment")
	defer span.End()

	a, err := s.loadAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if teacherView || !a.IsPublished {
		ok, err := canManageAssessment(ctx, s.Courses, actor, a.ID)
		if err != nil {
			return nil, err
		}
		switch {
		case ok:
		case teacherView:
			return nil, util.ErrNotInstructor
		default:
			return nil, util.ErrAssessmentNotFound
		}
	}
	return NewAssessmentView(a, teacherView), nil
}

// ListModuleAssessments lists a module's assessments without questions.
func (s *AssessmentService) ListModuleAssessments(ctx context.Context, actor Actor, moduleID uint) ([]*AssessmentView, error) {
	if _, err := s.Courses.FindModule(ctx, moduleID); err != nil {
		return nil, err
	}
	ok, err := canManageModule(ctx, s.Courses, actor, moduleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrNotInstructor
	}
	as, err := s.Assessments.ListByModule(ctx, moduleID, false)
	if err != nil {
		return nil, err
	}
	views := make([]*AssessmentView, len(as))
	for i := range as {
		views[i] = NewAssessmentView(&as[i], true)
	}
	return views, nil
}

func (s *AssessmentService) CreateAssessment(ctx context.Context, actor Actor, moduleID uint, req AssessmentRequest) (*AssessmentView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AssessmentService.CreateAssessment")
	defer span.End()

	if err := validateAssessment(&req); err != nil {
		return nil, err
	}
	if _, err := s.Courses.FindModule(ctx, moduleID); err != nil {
		return nil, err
	}
	ok, err := canManageModule(ctx, s.Courses, actor, moduleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrNotInstructor
	}

	a := &model.Assessment{ModuleID: moduleID}
	applyAssessment(a, &req)
	if err := s.Assessments.Create(ctx, a); err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("create assessment: %w", err)
	}
	s.Log.Info("Assessment created", zap.Uint("assessment_id", a.ID), zap.Uint("module_id", moduleID))
	return NewAssessmentView(a, true), nil
}

// UpdateAssessment replaces the editable fields. max_score stays derived from
// the questions.
func (s *AssessmentService) UpdateAssessment(ctx context.Context, actor Actor, id uint, req AssessmentRequest) (*AssessmentView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AssessmentService.UpdateAssessment")
	defer span.End()

	if err := validateAssessment(&req); err != nil {
		return nil, err
	}
	var a *model.Assessment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assessments := s.Assessments.WithTx(tx)
		var err error
		a, err = assessments.FindByID(ctx, id)
		if err != nil {
			return err
		}
		ok, err := canManageAssessment(ctx, s.Courses.WithTx(tx), actor, a.ID)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrNotInstructor
		}
		if req.PassingScore != nil && a.MaxScore > 0 && *req.PassingScore > a.MaxScore {
			return passingScoreError(*req.PassingScore, a.MaxScore)
		}
		applyAssessment(a, &req)
		return assessments.Update(ctx, a)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	s.invalidate(ctx, id)
	return NewAssessmentView(a, true), nil
}

// DeleteAssessment soft-deletes an assessment nobody has attempted.
func (s *AssessmentService) DeleteAssessment(ctx context.Context, actor Actor, id uint) error {
	ctx, span := tracing.Tracer.Start(ctx, "AssessmentService.DeleteAssessment")
	defer span.End()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assessments := s.Assessments.WithTx(tx)
		a, err := assessments.FindByID(ctx, id)
		if err != nil {
			return err
		}
		ok, err := canManageAssessment(ctx, s.Courses.WithTx(tx), actor, a.ID)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrNotInstructor
		}
		count, err := s.Submissions.WithTx(tx).CountByAssessment(ctx, a.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return util.ErrAssessmentHasSubmission
		}
		return assessments.Delete(ctx, a.ID)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	s.invalidate(ctx, id)
	s.Log.Info("Assessment deleted", zap.Uint("assessment_id", id), zap.Uint("actor_id", actor.UserID))
	return nil
}

func (s *AssessmentService) AddQuestion(ctx context.Context, actor Actor, assessmentID uint, req QuestionRequest) (*QuestionView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AssessmentService.AddQuestion")
	defer span.End()

	q := &model.Question{
		AssessmentID: assessmentID,
		QuestionText: req.QuestionText,
		QuestionType: req.QuestionType,
		Points:       1,
		OrderIndex:   req.OrderIndex,
		MediaURL:     req.MediaURL,
		AnswerKey:    req.AnswerKey,
		WordLimit:    req.WordLimit,
		Options:      toOptions(req.Options),
	}
	if req.Points != nil {
		q.Points = *req.Points
	}
	if err := validateQuestion(q, q.Options); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assessments := s.Assessments.WithTx(tx)
		a, err := assessments.FindByID(ctx, assessmentID)
		if err != nil {
			return err
		}
		ok, err := canManageAssessment(ctx, s.Courses.WithTx(tx), actor, a.ID)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrNotInstructor
		}
		if err := s.Questions.WithTx(tx).Create(ctx, q); err != nil {
			return err
		}
		_, err = assessments.RefreshMaxScore(ctx, a.ID)
		return err
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	s.invalidate(ctx, assessmentID)
	v := NewQuestionView(q, true)
	return &v, nil
}

// UpdateQuestion applies a partial update. Switching to a manual type drops
// the options; switching to an objective type drops answer_key and word_limit.
func (s *AssessmentService) UpdateQuestion(ctx context.Context, actor Actor, questionID uint, req QuestionUpdateRequest) (*QuestionView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AssessmentService.UpdateQuestion")
	defer span.End()

	var q *model.Question
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		questions := s.Questions.WithTx(tx)
		var err error
		q, err = questions.FindByID(ctx, questionID)
		if err != nil {
			return err
		}
		ok, err := canManageAssessment(ctx, s.Courses.WithTx(tx), actor, q.AssessmentID)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrNotInstructor
		}

		replaceOptions := applyQuestionUpdate(q, &req)
		if err := validateQuestion(q, q.Options); err != nil {
			return err
		}
		if err := questions.Update(ctx, q); err != nil {
			return err
		}
		if replaceOptions {
			q.Options, err = questions.ReplaceOptions(ctx, q.ID, q.Options)
			if err != nil {
				return err
			}
		}
		return refreshMaxScore(ctx, s.Assessments.WithTx(tx), q.AssessmentID)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	s.invalidate(ctx, q.AssessmentID)
	v := NewQuestionView(q, true)
	return &v, nil
}

// applyQuestionUpdate mutates q and reports whether the option set changed.
func applyQuestionUpdate(q *model.Question, req *QuestionUpdateRequest) bool {
	if req.QuestionText != nil {
		q.QuestionText = *req.QuestionText
	}
	if req.Points != nil {
		q.Points = *req.Points
	}
	if req.OrderIndex != nil {
		q.OrderIndex = *req.OrderIndex
	}
	if req.MediaURL != nil {
		q.MediaURL = req.MediaURL
	}

	replace := false
	if req.QuestionType != nil && *req.QuestionType != q.QuestionType {
		q.QuestionType = *req.QuestionType
		if q.QuestionType.AutoGradable() {
			q.AnswerKey = nil
			q.WordLimit = nil
		} else {
			q.Options = nil
			replace = true
		}
		if q.QuestionType != model.Essay {
			q.WordLimit = nil
		}
	}
	if req.AnswerKey != nil {
		q.AnswerKey = req.AnswerKey
	}
	if req.WordLimit != nil {
		q.WordLimit = req.WordLimit
	}
	if req.Options != nil {
		q.Options = toOptions(*req.Options)
		replace = true
	}
	return replace
}

func (s *AssessmentService) DeleteQuestion(ctx context.Context, actor Actor, questionID uint) error {
	ctx, span := tracing.Tracer.Start(ctx, "AssessmentService.DeleteQuestion")
	defer span.End()

	var assessmentID uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		questions := s.Questions.WithTx(tx)
		q, err := questions.FindByID(ctx, questionID)
		if err != nil {
			return err
		}
		assessmentID = q.AssessmentID
		ok, err := canManageAssessment(ctx, s.Courses.WithTx(tx), actor, q.AssessmentID)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrNotInstructor
		}
		if err := questions.Delete(ctx, q.ID); err != nil {
			return err
		}
		return refreshMaxScore(ctx, s.Assessments.WithTx(tx), q.AssessmentID)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	s.invalidate(ctx, assessmentID)
	return nil
}
