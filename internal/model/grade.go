package model

import "gorm.io/datatypes"

// ModuleGrade is a learner's aggregate over the best graded attempt of every
// assessment in a module.
type ModuleGrade struct {
	BaseModel
	UserID            uint    `gorm:"not null;uniqueIndex:idx_module_grade_user_module,priority:1" json:"user_id"`
	ModuleID          uint    `gorm:"not null;uniqueIndex:idx_module_grade_user_module,priority:2" json:"module_id"`
	Score             int     `json:"score"`
	MaxScore          int     `json:"max_score"`
	Percentage        float64 `json:"percentage"`
	AssessmentsGraded int     `json:"assessments_graded"`
}

func (ModuleGrade) TableName() string {
	return "module_grades"
}

type CourseGrade struct {
	BaseModel
	UserID     uint           `gorm:"not null;uniqueIndex:idx_course_grade_user_course,priority:1" json:"user_id"`
	CourseID   uint           `gorm:"not null;uniqueIndex:idx_course_grade_user_course,priority:2" json:"course_id"`
	Percentage float64        `json:"percentage"`
	Breakdown  datatypes.JSON `json:"breakdown"` // module id -> module percentage
}

func (CourseGrade) TableName() string {
	return "course_grades"
}
