package repository

import (
	"context"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) WithTx(tx *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: tx}
}

// Create inserts the question and its options.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

// Update saves the question's own columns; options are managed separately.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Save(q).Error
}

func (r *QuestionRepository) FindByID(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index asc, id asc")
		}).
		First(&q, id).Error
	if err != nil {
		return nil, translate(err, util.ErrQuestionNotFound)
	}
	return &q, nil
}

func (r *QuestionRepository) ListByAssessment(ctx context.Context, assessmentID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index asc, id asc")
		}).
		Order("order_index asc, id asc").
		Find(&qs).Error
	return qs, err
}

// ReplaceOptions drops the question's current options and inserts opts.
func (r *QuestionRepository) ReplaceOptions(ctx context.Context, questionID uint, opts []model.QuestionOption) ([]model.QuestionOption, error) {
	if err := r.DeleteOptions(ctx, questionID); err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		return nil, nil
	}
	for i := range opts {
		opts[i].ID = 0
		opts[i].QuestionID = questionID
	}
	if err := r.DB.WithContext(ctx).Create(&opts).Error; err != nil {
		return nil, err
	}
	return opts, nil
}

func (r *QuestionRepository) DeleteOptions(ctx context.Context, questionID uint) error {
	return r.DB.WithContext(ctx).Where("question_id = ?", questionID).Delete(&model.QuestionOption{}).Error
}

func (r *QuestionRepository) Delete(ctx context.Context, id uint) error {
	if err := r.DeleteOptions(ctx, id); err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Delete(&model.Question{}, id).Error
}
