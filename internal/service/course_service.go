package service

import (
	"context"
	"fmt"
	"strings"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"

	"go.uber.org/zap"
)

type CourseService struct {
	Courses *repository.CourseRepository
	Log     *zap.Logger
}

func NewCourseService(courses *repository.CourseRepository, log *zap.Logger) *CourseService {
	return &CourseService{Courses: courses, Log: log}
}

type CourseRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
}

type ModuleRequest struct {
	Title      string `json:"title" binding:"required,max=255"`
	OrderIndex int    `json:"order_index"`
}

// CreateCourse makes the actor the course instructor.
func (s *CourseService) CreateCourse(ctx context.Context, actor Actor, req CourseRequest) (*model.Course, error) {
	if !actor.Role.IsStaff() {
		return nil, util.ErrNotInstructor
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, util.Validationf("title is required")
	}
	c := &model.Course{
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: actor.UserID,
	}
	if err := s.Courses.CreateCourse(ctx, c); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.Log.Info("Course created", zap.Uint("course_id", c.ID), zap.Uint("instructor_id", c.InstructorID))
	return c, nil
}

func (s *CourseService) CreateModule(ctx context.Context, actor Actor, courseID uint, req ModuleRequest) (*model.Module, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, util.Validationf("title is required")
	}
	course, err := s.Courses.FindCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(actor, course) {
		return nil, util.ErrNotInstructor
	}
	m := &model.Module{CourseID: course.ID, Title: req.Title, OrderIndex: req.OrderIndex}
	if err := s.Courses.CreateModule(ctx, m); err != nil {
		return nil, fmt.Errorf("create module: %w", err)
	}
	return m, nil
}

func (s *CourseService) ListModules(ctx context.Context, courseID uint) ([]model.Module, error) {
	if _, err := s.Courses.FindCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.Courses.ListModules(ctx, courseID)
}
