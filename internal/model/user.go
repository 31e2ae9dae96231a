package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Student, Teacher, Admin:
		return true
	}
	return false
}

// IsStaff reports whether the role may author and grade at all. Per-course
// instructor checks still apply to teachers.
func (r UserRole) IsStaff() bool {
	switch r {
	case Teacher, Admin:
		return true
	case Student:
		return false
	}
	return false
}
