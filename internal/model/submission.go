package model

import (
	"fmt"
	"time"
)

type SubmissionStatus string

const (
	SubmissionInProgress SubmissionStatus = "in_progress"
	SubmissionSubmitted  SubmissionStatus = "submitted"
	SubmissionGraded     SubmissionStatus = "graded"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionInProgress, SubmissionSubmitted, SubmissionGraded:
		return true
	}
	return false
}

// swagger:model Submission
type Submission struct {
	BaseModel
	AssessmentID uint             `gorm:"index;not null" json:"assessment_id"`
	UserID       uint             `gorm:"index;not null" json:"user_id"`
	StartTime    time.Time        `gorm:"not null" json:"start_time"`
	SubmitTime   *time.Time       `json:"submit_time"`
	Score        *int             `json:"score"`
	MaxScore     int              `gorm:"default:0" json:"max_score"`
	Status       SubmissionStatus `gorm:"size:20;not null;index" json:"status"`
	IsLate       bool             `gorm:"default:false" json:"is_late"`
	Feedback     *string          `gorm:"type:text" json:"feedback"`
	// InProgressKey is set only while the submission is in progress; the unique
	// index on it allows one open attempt per (assessment, user).
	InProgressKey *string          `gorm:"size:64;uniqueIndex" json:"-"`
	Answers       []AnswerResponse `gorm:"foreignKey:SubmissionID" json:"answers,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

func InProgressKey(assessmentID, userID uint) *string {
	k := fmt.Sprintf("%d:%d", assessmentID, userID)
	return &k
}

// swagger:model AnswerResponse
type AnswerResponse struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	SubmissionID     uint      `gorm:"not null;uniqueIndex:idx_answer_submission_question,priority:1" json:"submission_id"`
	QuestionID       uint      `gorm:"not null;uniqueIndex:idx_answer_submission_question,priority:2" json:"question_id"`
	SelectedOptionID *uint     `json:"selected_option_id"`
	TextResponse     *string   `gorm:"type:text" json:"text_response"`
	PointsAwarded    *int      `json:"points_awarded"`
	Feedback         *string   `gorm:"type:text" json:"feedback"`
}

func (AnswerResponse) TableName() string {
	return "answer_responses"
}
