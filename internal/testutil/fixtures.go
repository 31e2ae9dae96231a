package testutil

import (
	"testing"

	"lms_backend/internal/model"

	"gorm.io/gorm"
)

const (
	InstructorID uint = 100
	LearnerID    uint = 200
	OtherID      uint = 300
)

func SeedCourse(tb testing.TB, db *gorm.DB, instructorID uint) *model.Course {
	tb.Helper()
	c := &model.Course{Title: "Algebra", InstructorID: instructorID}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedModule(tb testing.TB, db *gorm.DB, courseID uint) *model.Module {
	tb.Helper()
	m := &model.Module{CourseID: courseID, Title: "Linear equations"}
	if err := db.Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

// SeedAssessment creates a published quiz in a fresh course owned by
// InstructorID.
func SeedAssessment(tb testing.TB, db *gorm.DB, allowedAttempts int) *model.Assessment {
	tb.Helper()
	course := SeedCourse(tb, db, InstructorID)
	module := SeedModule(tb, db, course.ID)
	return SeedAssessmentInModule(tb, db, module.ID, allowedAttempts)
}

func SeedAssessmentInModule(tb testing.TB, db *gorm.DB, moduleID uint, allowedAttempts int) *model.Assessment {
	tb.Helper()
	a := &model.Assessment{
		ModuleID:        moduleID,
		Title:           "Quiz 1",
		Type:            model.AssessmentQuiz,
		IsPublished:     true,
		AllowedAttempts: allowedAttempts,
	}
	if err := db.Create(a).Error; err != nil {
		tb.Fatalf("seed assessment: %v", err)
	}
	return a
}

// SeedChoiceQuestion adds a multiple choice question with options
// "3", "4" (correct) and "5", and refreshes the assessment max score.
func SeedChoiceQuestion(tb testing.TB, db *gorm.DB, assessmentID uint, points int) *model.Question {
	tb.Helper()
	q := &model.Question{
		AssessmentID: assessmentID,
		QuestionText: "2 + 2 = ?",
		QuestionType: model.MultipleChoice,
		Points:       points,
		Options: []model.QuestionOption{
			{OptionText: "3", OrderIndex: 0},
			{OptionText: "4", IsCorrect: true, OrderIndex: 1},
			{OptionText: "5", OrderIndex: 2},
		},
	}
	if err := db.Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	bumpMaxScore(tb, db, assessmentID, points)
	return q
}

func SeedEssayQuestion(tb testing.TB, db *gorm.DB, assessmentID uint, points int) *model.Question {
	tb.Helper()
	q := &model.Question{
		AssessmentID: assessmentID,
		QuestionText: "Explain the method.",
		QuestionType: model.Essay,
		Points:       points,
	}
	if err := db.Create(q).Error; err != nil {
		tb.Fatalf("seed essay question: %v", err)
	}
	bumpMaxScore(tb, db, assessmentID, points)
	return q
}

func bumpMaxScore(tb testing.TB, db *gorm.DB, assessmentID uint, points int) {
	tb.Helper()
	err := db.Model(&model.Assessment{}).Where("id = ?", assessmentID).
		Update("max_score", gorm.Expr("max_score + ?", points)).Error
	if err != nil {
		tb.Fatalf("update max score: %v", err)
	}
}

// CorrectOption returns the first correct option of q.
func CorrectOption(q *model.Question) uint {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o.ID
		}
	}
	return 0
}

// WrongOption returns the first incorrect option of q.
func WrongOption(q *model.Question) uint {
	for _, o := range q.Options {
		if !o.IsCorrect {
			return o.ID
		}
	}
	return 0
}
