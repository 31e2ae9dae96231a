package repository

import (
	"context"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GradeRepository struct {
	DB *gorm.DB
}

func NewGradeRepository(db *gorm.DB) *GradeRepository {
	return &GradeRepository{DB: db}
}

func (r *GradeRepository) WithTx(tx *gorm.DB) *GradeRepository {
	return &GradeRepository{DB: tx}
}

func (r *GradeRepository) UpsertModuleGrade(ctx context.Context, g *model.ModuleGrade) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "max_score", "percentage", "assessments_graded", "updated_at",
		}),
	}).Create(g).Error
}

func (r *GradeRepository) UpsertCourseGrade(ctx context.Context, g *model.CourseGrade) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"percentage", "breakdown", "updated_at"}),
	}).Create(g).Error
}

// ModuleGradesForUser returns the user's grades for the given modules.
func (r *GradeRepository) ModuleGradesForUser(ctx context.Context, userID uint, moduleIDs []uint) ([]model.ModuleGrade, error) {
	var gs []model.ModuleGrade
	if len(moduleIDs) == 0 {
		return gs, nil
	}
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND module_id IN ?", userID, moduleIDs).
		Order("module_id asc").
		Find(&gs).Error
	return gs, err
}

func (r *GradeRepository) FindCourseGrade(ctx context.Context, userID, courseID uint) (*model.CourseGrade, error) {
	var g model.CourseGrade
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&g).Error
	if err != nil {
		return nil, translate(err, util.ErrGradeNotFound)
	}
	return &g, nil
}

func (r *GradeRepository) ListCourseGrades(ctx context.Context, courseID uint, page, limit int) ([]model.CourseGrade, int64, error) {
	var gs []model.CourseGrade
	var total int64
	query := r.DB.WithContext(ctx).Model(&model.CourseGrade{}).Where("course_id = ?", courseID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("user_id asc").Offset(offset(page, limit)).Limit(limit).Find(&gs).Error
	return gs, total, err
}
