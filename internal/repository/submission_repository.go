package repository

import (
	"context"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) WithTx(tx *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: tx}
}

func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(s).Error
}

// Save writes every column, including NULLs (cleared in_progress_key, score).
func (r *SubmissionRepository) Save(ctx context.Context, s *model.Submission) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Save(s).Error
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id uint) (*model.Submission, error) {
	var s model.Submission
	if err := r.DB.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, translate(err, util.ErrSubmissionNotFound)
	}
	return &s, nil
}

// FindByIDForUpdate reads the row with a write lock held until the
// surrounding transaction ends. SQLite has no row locks and ignores the clause.
func (r *SubmissionRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, id).Error
	if err != nil {
		return nil, translate(err, util.ErrSubmissionNotFound)
	}
	return &s, nil
}

func (r *SubmissionRepository) FindInProgress(ctx context.Context, assessmentID, userID uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.WithContext(ctx).
		Where("in_progress_key = ?", *model.InProgressKey(assessmentID, userID)).
		First(&s).Error
	if err != nil {
		return nil, translate(err, util.ErrSubmissionNotFound)
	}
	return &s, nil
}

// CountCompleted counts the user's attempts that have left in_progress.
func (r *SubmissionRepository) CountCompleted(ctx context.Context, assessmentID, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Submission{}).
		Where("assessment_id = ? AND user_id = ? AND status <> ?", assessmentID, userID, model.SubmissionInProgress).
		Count(&count).Error
	return count, err
}

func (r *SubmissionRepository) CountByAssessment(ctx context.Context, assessmentID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Submission{}).
		Where("assessment_id = ?", assessmentID).
		Count(&count).Error
	return count, err
}

func (r *SubmissionRepository) ListByUser(ctx context.Context, assessmentID, userID uint) ([]model.Submission, error) {
	var ss []model.Submission
	err := r.DB.WithContext(ctx).
		Where("assessment_id = ? AND user_id = ?", assessmentID, userID).
		Order("start_time desc, id desc").
		Find(&ss).Error
	return ss, err
}

func (r *SubmissionRepository) ListByAssessment(ctx context.Context, assessmentID uint, status model.SubmissionStatus, page, limit int) ([]model.Submission, int64, error) {
	var ss []model.Submission
	var total int64
	query := r.DB.WithContext(ctx).Model(&model.Submission{}).Where("assessment_id = ?", assessmentID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("start_time desc, id desc").Offset(offset(page, limit)).Limit(limit).Find(&ss).Error
	return ss, total, err
}

// GradedByUser returns the user's graded submissions for the given
// assessments.
func (r *SubmissionRepository) GradedByUser(ctx context.Context, userID uint, assessmentIDs []uint) ([]model.Submission, error) {
	var ss []model.Submission
	if len(assessmentIDs) == 0 {
		return ss, nil
	}
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND status = ? AND assessment_id IN ?", userID, model.SubmissionGraded, assessmentIDs).
		Find(&ss).Error
	return ss, err
}

func (r *SubmissionRepository) Answers(ctx context.Context, submissionID uint) ([]model.AnswerResponse, error) {
	var as []model.AnswerResponse
	err := r.DB.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("question_id asc").
		Find(&as).Error
	return as, err
}

func (r *SubmissionRepository) FindAnswer(ctx context.Context, submissionID, questionID uint) (*model.AnswerResponse, error) {
	var a model.AnswerResponse
	err := r.DB.WithContext(ctx).
		Where("submission_id = ? AND question_id = ?", submissionID, questionID).
		First(&a).Error
	if err != nil {
		return nil, translate(err, util.ErrAnswerNotFound)
	}
	return &a, nil
}

// CreateAnswer inserts a grader-made row for a question the learner skipped.
func (r *SubmissionRepository) CreateAnswer(ctx context.Context, a *model.AnswerResponse) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

// UpsertAnswer inserts the answer or overwrites the existing row for the same
// (submission, question). The unique index makes concurrent saves collapse
// into one row.
func (r *SubmissionRepository) UpsertAnswer(ctx context.Context, a *model.AnswerResponse) (*model.AnswerResponse, error) {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"selected_option_id", "text_response", "points_awarded", "feedback", "updated_at",
		}),
	}).Create(a).Error
	if err != nil {
		return nil, err
	}
	return r.FindAnswer(ctx, a.SubmissionID, a.QuestionID)
}

// UpdateAnswerScore stores points and feedback for one answer.
func (r *SubmissionRepository) UpdateAnswerScore(ctx context.Context, answerID uint, points *int, feedback *string) error {
	return r.DB.WithContext(ctx).Model(&model.AnswerResponse{}).
		Where("id = ?", answerID).
		Updates(map[string]interface{}{
			"points_awarded": points,
			"feedback":       feedback,
		}).Error
}
