package repository

import (
	"context"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) WithTx(tx *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: tx}
}

func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	return r.DB.WithContext(ctx).Omit("Questions").Create(a).Error
}

func (r *AssessmentRepository) Update(ctx context.Context, a *model.Assessment) error {
	return r.DB.WithContext(ctx).Omit("Questions").Save(a).Error
}

func (r *AssessmentRepository) FindByID(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	if err := r.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, translate(err, util.ErrAssessmentNotFound)
	}
	return &a, nil
}

// FindWithQuestions loads the assessment with its live questions and options
// in display order.
func (r *AssessmentRepository) FindWithQuestions(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index asc, id asc")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index asc, id asc")
		}).
		First(&a, id).Error
	if err != nil {
		return nil, translate(err, util.ErrAssessmentNotFound)
	}
	return &a, nil
}

func (r *AssessmentRepository) ListByModule(ctx context.Context, moduleID uint, publishedOnly bool) ([]model.Assessment, error) {
	var as []model.Assessment
	query := r.DB.WithContext(ctx).Where("module_id = ?", moduleID)
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	err := query.Order("created_at asc, id asc").Find(&as).Error
	return as, err
}

// Delete soft-deletes the assessment together with its questions.
func (r *AssessmentRepository) Delete(ctx context.Context, id uint) error {
	db := r.DB.WithContext(ctx)
	var questionIDs []uint
	if err := db.Model(&model.Question{}).Where("assessment_id = ?", id).Pluck("id", &questionIDs).Error; err != nil {
		return err
	}
	if len(questionIDs) > 0 {
		if err := db.Where("question_id IN ?", questionIDs).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		if err := db.Where("id IN ?", questionIDs).Delete(&model.Question{}).Error; err != nil {
			return err
		}
	}
	return db.Delete(&model.Assessment{}, id).Error
}

// SumPoints totals the points of the assessment's live questions.
func (r *AssessmentRepository) SumPoints(ctx context.Context, id uint) (int, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("assessment_id = ?", id).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return int(total), err
}

// RefreshMaxScore recomputes max_score from the live questions and returns it.
func (r *AssessmentRepository) RefreshMaxScore(ctx context.Context, id uint) (int, error) {
	total, err := r.SumPoints(ctx, id)
	if err != nil {
		return 0, err
	}
	err = r.DB.WithContext(ctx).Model(&model.Assessment{}).Where("id = ?", id).Update("max_score", total).Error
	return total, err
}
