package repository

import (
	"errors"

	"gorm.io/gorm"
)

// translate maps gorm's not-found error to the caller's domain error.
func translate(err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

func offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
