package store

import (
	"errors"
	"fmt"

	"coursemarket/models"

	"gorm.io/gorm"
)

// ErrCourseNotFound means the catalog has no such course.
var ErrCourseNotFound = errors.New("course not found")

// CourseCatalog is the read side of the course catalog that the enrollment
// service depends on: which course exists, which lessons it has, and each
// lesson's canonical duration.
type CourseCatalog interface {
	Course(courseID uint) (models.Course, error)
	CourseLessons(courseID uint) ([]models.Lesson, error)
}

type GormCourseCatalog struct {
	DB *gorm.DB
}

func NewCourseCatalog(db *gorm.DB) *GormCourseCatalog {
	return &GormCourseCatalog{DB: db}
}

func (c *GormCourseCatalog) Course(courseID uint) (models.Course, error) {
	var course models.Course
	if err := c.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return course, nil
}

func (c *GormCourseCatalog) CourseLessons(courseID uint) ([]models.Lesson, error) {
	if _, err := c.Course(courseID); err != nil {
		return nil, err
	}

	var lessons []models.Lesson
	err := c.DB.Where("course_id = ?", courseID).
		Order("sequence_order asc").
		Find(&lessons).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return lessons, nil
}
