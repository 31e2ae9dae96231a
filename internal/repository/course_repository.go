package repository

import (
	"context"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func (r *CourseRepository) CreateCourse(ctx context.Context, c *model.Course) error {
	return r.DB.WithContext(ctx).Omit("Modules").Create(c).Error
}

func (r *CourseRepository) FindCourse(ctx context.Context, id uint) (*model.Course, error) {
	var c model.Course
	if err := r.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err, util.ErrCourseNotFound)
	}
	return &c, nil
}

func (r *CourseRepository) CreateModule(ctx context.Context, m *model.Module) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

func (r *CourseRepository) FindModule(ctx context.Context, id uint) (*model.Module, error) {
	var m model.Module
	if err := r.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err, util.ErrModuleNotFound)
	}
	return &m, nil
}

func (r *CourseRepository) ListModules(ctx context.Context, courseID uint) ([]model.Module, error) {
	var ms []model.Module
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("order_index asc, id asc").
		Find(&ms).Error
	return ms, err
}

// InstructorOfModule 返回模块所属课程的讲师
func (r *CourseRepository) InstructorOfModule(ctx context.Context, moduleID uint) (uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Course{}).
		Joins("JOIN modules ON modules.course_id = courses.id AND modules.deleted_at IS NULL").
		Where("modules.id = ?", moduleID).
		Pluck("courses.instructor_id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, util.ErrModuleNotFound
	}
	return ids[0], nil
}

// InstructorOfAssessment resolves assessment -> module -> course.
func (r *CourseRepository) InstructorOfAssessment(ctx context.Context, assessmentID uint) (uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Course{}).
		Joins("JOIN modules ON modules.course_id = courses.id AND modules.deleted_at IS NULL").
		Joins("JOIN assessments ON assessments.module_id = modules.id AND assessments.deleted_at IS NULL").
		Where("assessments.id = ?", assessmentID).
		Pluck("courses.instructor_id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, util.ErrAssessmentNotFound
	}
	return ids[0], nil
}

// AssessmentIDsByModule lists non-deleted assessment ids of a module.
func (r *CourseRepository) AssessmentIDsByModule(ctx context.Context, moduleID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Assessment{}).
		Where("module_id = ?", moduleID).
		Order("id asc").
		Pluck("id", &ids).Error
	return ids, err
}
