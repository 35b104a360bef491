package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PaymentStatusFree = "free"
	PaymentStatusPaid = "paid"

	EnrollmentActive     = "active"
	EnrollmentUnenrolled = "unenrolled"
)

// Enrollment is one user's relationship to one course. There is at most one
// row per (user_id, course_id); unenrolling flips Status instead of deleting
// the row so watch history survives.
type Enrollment struct {
	gorm.Model
	PublicID        string           `json:"enrollment_id" gorm:"uniqueIndex;size:36"`
	UserID          uint             `json:"user_id" gorm:"uniqueIndex:idx_user_course;not null"`
	CourseID        uint             `json:"course_id" gorm:"uniqueIndex:idx_user_course;not null"`
	PaymentStatus   string           `json:"payment_status" gorm:"default:free"` // free, paid
	Status          string           `json:"status" gorm:"default:active"`       // active, unenrolled
	EnrolledAt      time.Time        `json:"enrolled_at"`
	ProgressPercent int              `json:"progress_percent" gorm:"default:0"`
	Version         int64            `json:"-" gorm:"default:0"` // optimistic-lock token, bumped on every Put
	LessonsProgress []LessonProgress `json:"lessons_progress"`
}

// LessonProgress is one lesson's watch state within an enrollment.
// WatchedDurationMs never decreases and Completed never reverts to false;
// both rules live in the progress package.
type LessonProgress struct {
	gorm.Model
	EnrollmentID      uint  `json:"-" gorm:"uniqueIndex:idx_enrollment_lesson;not null"`
	LessonID          uint  `json:"lesson_id" gorm:"uniqueIndex:idx_enrollment_lesson;not null"`
	WatchedDurationMs int64 `json:"watched_duration_ms" gorm:"default:0"`
	Completed         bool  `json:"completed" gorm:"default:false"`
}

// Active reports whether the enrollment still accepts progress reports.
func (e *Enrollment) Active() bool {
	return e.Status == EnrollmentActive
}

// Lesson returns the progress entry for lessonID, or nil if the lesson has
// never been reported on.
func (e *Enrollment) Lesson(lessonID uint) *LessonProgress {
	for i := range e.LessonsProgress {
		if e.LessonsProgress[i].LessonID == lessonID {
			return &e.LessonsProgress[i]
		}
	}
	return nil
}

// CompletedLessons counts lessons with the completed flag set.
func (e *Enrollment) CompletedLessons() int {
	count := 0
	for i := range e.LessonsProgress {
		if e.LessonsProgress[i].Completed {
			count++
		}
	}
	return count
}

// Clone returns a deep copy so merges can stay pure value transforms.
func (e Enrollment) Clone() Enrollment {
	clone := e
	clone.LessonsProgress = make([]LessonProgress, len(e.LessonsProgress))
	copy(clone.LessonsProgress, e.LessonsProgress)
	return clone
}
