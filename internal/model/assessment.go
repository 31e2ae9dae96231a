package model

import "time"

type AssessmentType string

const (
	AssessmentQuiz       AssessmentType = "quiz"
	AssessmentAssignment AssessmentType = "assignment"
	AssessmentExam       AssessmentType = "exam"
)

func (t AssessmentType) Valid() bool {
	switch t {
	case AssessmentQuiz, AssessmentAssignment, AssessmentExam:
		return true
	}
	return false
}

// swagger:model Assessment
type Assessment struct {
	BaseModel
	ModuleID        uint           `gorm:"index;not null" json:"module_id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	Type            AssessmentType `gorm:"size:20;not null;default:'quiz'" json:"type"`
	MaxScore        int            `gorm:"default:0" json:"max_score"` // sum of live question points
	PassingScore    *int           `json:"passing_score"`
	DurationMinutes *int           `json:"duration_minutes"`
	DueDate         *time.Time     `json:"due_date"`
	IsPublished     bool           `gorm:"default:false" json:"is_published"`
	Instructions    string         `gorm:"type:text" json:"instructions"`
	AllowedAttempts int            `gorm:"not null;default:1" json:"allowed_attempts"`
	Questions       []Question     `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// IsLate reports whether a submission made at t misses the due date.
func (a *Assessment) IsLate(t time.Time) bool {
	return a.DueDate != nil && t.After(*a.DueDate)
}
