package service

import (
	"context"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
)

// Actor is the authenticated principal behind a request.
type Actor struct {
	UserID uint
	Role   model.UserRole
}

func ActorFromClaims(c *util.Claims) Actor {
	return Actor{UserID: c.UserID, Role: c.Role}
}

// canManageCourse reports whether actor is the course instructor or an admin.
func canManageCourse(actor Actor, course *model.Course) bool {
	switch actor.Role {
	case model.Admin:
		return true
	case model.Teacher:
		return course.InstructorID == actor.UserID
	case model.Student:
		return false
	}
	return false
}

func canManageModule(ctx context.Context, courses *repository.CourseRepository, actor Actor, moduleID uint) (bool, error) {
	switch actor.Role {
	case model.Admin:
		return true, nil
	case model.Teacher:
		instructorID, err := courses.InstructorOfModule(ctx, moduleID)
		if err != nil {
			return false, err
		}
		return instructorID == actor.UserID, nil
	case model.Student:
		return false, nil
	}
	return false, nil
}

// canManageAssessment resolves assessment -> module -> course instructor.
func canManageAssessment(ctx context.Context, courses *repository.CourseRepository, actor Actor, assessmentID uint) (bool, error) {
	switch actor.Role {
	case model.Admin:
		return true, nil
	case model.Teacher:
		instructorID, err := courses.InstructorOfAssessment(ctx, assessmentID)
		if err != nil {
			return false, err
		}
		return instructorID == actor.UserID, nil
	case model.Student:
		return false, nil
	}
	return false, nil
}
