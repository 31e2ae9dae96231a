package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"lms_backend/internal/grading"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GradeService struct {
	Courses     *repository.CourseRepository
	Submissions *repository.SubmissionRepository
	Grades      *repository.GradeRepository
	Log         *zap.Logger
}

func NewGradeService(
	courses *repository.CourseRepository,
	submissions *repository.SubmissionRepository,
	grades *repository.GradeRepository,
	log *zap.Logger,
) *GradeService {
	return &GradeService{
		Courses:     courses,
		Submissions: submissions,
		Grades:      grades,
		Log:         log,
	}
}

// CourseGradeView is a learner's course grade with the per-module rows.
type CourseGradeView struct {
	CourseID   uint                `json:"course_id"`
	UserID     uint                `json:"user_id"`
	Percentage float64             `json:"percentage"`
	Modules    []model.ModuleGrade `json:"modules"`
}

// RecomputeForUser refreshes the learner's ModuleGrade for moduleID and the
// CourseGrade above it. It runs on the caller's transaction.
func (s *GradeService) RecomputeForUser(ctx context.Context, tx *gorm.DB, userID, moduleID uint) error {
	courses := s.Courses.WithTx(tx)
	submissions := s.Submissions.WithTx(tx)
	grades := s.Grades.WithTx(tx)

	module, err := courses.FindModule(ctx, moduleID)
	if err != nil {
		return err
	}
	assessmentIDs, err := courses.AssessmentIDsByModule(ctx, moduleID)
	if err != nil {
		return fmt.Errorf("list module assessments: %w", err)
	}
	graded, err := submissions.GradedByUser(ctx, userID, assessmentIDs)
	if err != nil {
		return fmt.Errorf("list graded submissions: %w", err)
	}

	// 每个测评取最高分
	best := make(map[uint]*model.Submission, len(assessmentIDs))
	for i := range graded {
		sub := &graded[i]
		if sub.Score == nil {
			continue
		}
		if cur, ok := best[sub.AssessmentID]; !ok || *sub.Score > *cur.Score {
			best[sub.AssessmentID] = sub
		}
	}

	mg := &model.ModuleGrade{UserID: userID, ModuleID: moduleID}
	for _, sub := range best {
		mg.Score += *sub.Score
		mg.MaxScore += sub.MaxScore
		mg.AssessmentsGraded++
	}
	mg.Percentage = grading.Percentage(mg.Score, mg.MaxScore)
	if err := grades.UpsertModuleGrade(ctx, mg); err != nil {
		return fmt.Errorf("upsert module grade: %w", err)
	}

	return s.recomputeCourse(ctx, courses, grades, userID, module.CourseID)
}

func (s *GradeService) recomputeCourse(ctx context.Context, courses *repository.CourseRepository, grades *repository.GradeRepository, userID, courseID uint) error {
	modules, err := courses.ListModules(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list modules: %w", err)
	}
	moduleIDs := make([]uint, len(modules))
	for i, m := range modules {
		moduleIDs[i] = m.ID
	}
	mgs, err := grades.ModuleGradesForUser(ctx, userID, moduleIDs)
	if err != nil {
		return fmt.Errorf("list module grades: %w", err)
	}

	breakdown := make(map[string]float64)
	var sum float64
	for _, mg := range mgs {
		if mg.AssessmentsGraded == 0 {
			continue
		}
		breakdown[strconv.FormatUint(uint64(mg.ModuleID), 10)] = grading.RoundPercentage(mg.Percentage)
		sum += mg.Percentage
	}
	cg := &model.CourseGrade{UserID: userID, CourseID: courseID}
	if len(breakdown) > 0 {
		cg.Percentage = sum / float64(len(breakdown))
	}
	raw, err := json.Marshal(breakdown)
	if err != nil {
		return err
	}
	cg.Breakdown = datatypes.JSON(raw)

	if err := grades.UpsertCourseGrade(ctx, cg); err != nil {
		return fmt.Errorf("upsert course grade: %w", err)
	}
	s.Log.Debug("Course grade recomputed",
		zap.Uint("user_id", userID),
		zap.Uint("course_id", courseID),
		zap.Float64("percentage", cg.Percentage),
	)
	return nil
}

// GetCourseGrades returns the actor's own grade for the course. A learner
// with nothing graded yet gets a zero grade, not an error.
func (s *GradeService) GetCourseGrades(ctx context.Context, actor Actor, courseID uint) (*CourseGradeView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "GradeService.GetCourseGrades")
	defer span.End()

	if _, err := s.Courses.FindCourse(ctx, courseID); err != nil {
		return nil, err
	}
	view := &CourseGradeView{CourseID: courseID, UserID: actor.UserID, Modules: []model.ModuleGrade{}}

	cg, err := s.Grades.FindCourseGrade(ctx, actor.UserID, courseID)
	switch {
	case errors.Is(err, util.ErrNotFound):
		return view, nil
	case err != nil:
		tracing.RecordError(span, err)
		return nil, err
	}
	view.Percentage = grading.RoundPercentage(cg.Percentage)

	modules, err := s.Courses.ListModules(ctx, courseID)
	if err != nil {
		return nil, err
	}
	moduleIDs := make([]uint, len(modules))
	for i, m := range modules {
		moduleIDs[i] = m.ID
	}
	mgs, err := s.Grades.ModuleGradesForUser(ctx, actor.UserID, moduleIDs)
	if err != nil {
		return nil, err
	}
	for i := range mgs {
		mgs[i].Percentage = grading.RoundPercentage(mgs[i].Percentage)
	}
	view.Modules = mgs
	return view, nil
}

// ListCourseGrades lists every learner's course grade; instructor only.
func (s *GradeService) ListCourseGrades(ctx context.Context, actor Actor, courseID uint, page, limit int) ([]model.CourseGrade, int64, error) {
	ctx, span := tracing.Tracer.Start(ctx, "GradeService.ListCourseGrades")
	defer span.End()

	course, err := s.Courses.FindCourse(ctx, courseID)
	if err != nil {
		return nil, 0, err
	}
	if !canManageCourse(actor, course) {
		return nil, 0, util.ErrNotInstructor
	}
	gs, total, err := s.Grades.ListCourseGrades(ctx, courseID, page, limit)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, 0, err
	}
	for i := range gs {
		gs[i].Percentage = grading.RoundPercentage(gs[i].Percentage)
	}
	return gs, total, nil
}
