// Package services owns the enrollment workflows: enroll, unenroll, progress
// reporting, and listing. It serializes everything touching one enrollment
// behind a per-key lock so bursts of progress reports cannot interleave into
// a lost update.
package services

import (
	"errors"
	"time"

	"coursemarket/models"
	"coursemarket/progress"
	"coursemarket/store"

	"github.com/google/uuid"
)

var (
	// ErrNotEnrolled means no active enrollment exists for the pair.
	ErrNotEnrolled = errors.New("not enrolled in this course")
	// ErrAlreadyEnrolled means an active enrollment already exists.
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	// ErrUnknownLesson means the reported lesson does not belong to the course.
	ErrUnknownLesson = errors.New("lesson does not belong to this course")
)

// putRetries bounds re-runs of the load-merge-put cycle after a version
// conflict from another service instance. Safe because merges are idempotent.
const putRetries = 3

type EnrollmentService struct {
	Enrollments store.EnrollmentStore
	Catalog     store.CourseCatalog

	locks *keyedMutex
}

func NewEnrollmentService(enrollments store.EnrollmentStore, catalog store.CourseCatalog) *EnrollmentService {
	return &EnrollmentService{
		Enrollments: enrollments,
		Catalog:     catalog,
		locks:       newKeyedMutex(),
	}
}

// Enroll creates the enrollment for (userID, courseID), or reactivates a
// previously unenrolled one, keeping its watch history. Payment itself
// happens upstream; by the time this runs, access has been granted, and the
// course price only decides the recorded payment status.
func (s *EnrollmentService) Enroll(userID, courseID uint) (models.Enrollment, error) {
	course, err := s.Catalog.Course(courseID)
	if err != nil {
		return models.Enrollment{}, err
	}

	key := enrollmentKey(userID, courseID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	existing, err := s.Enrollments.Get(userID, courseID)
	switch {
	case err == nil:
		if existing.Active() {
			return models.Enrollment{}, ErrAlreadyEnrolled
		}
		existing.Status = models.EnrollmentActive
		if err := s.Enrollments.Put(&existing); err != nil {
			return models.Enrollment{}, err
		}
		return existing, nil
	case errors.Is(err, store.ErrNotFound):
		// fall through to create
	default:
		return models.Enrollment{}, err
	}

	paymentStatus := models.PaymentStatusPaid
	if course.Free() {
		paymentStatus = models.PaymentStatusFree
	}

	enrollment := models.Enrollment{
		PublicID:      uuid.NewString(),
		UserID:        userID,
		CourseID:      courseID,
		PaymentStatus: paymentStatus,
		Status:        models.EnrollmentActive,
		EnrolledAt:    time.Now().UTC(),
	}
	if err := s.Enrollments.Create(&enrollment); err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

// Unenroll flips the enrollment to unenrolled. The row and its lesson
// progress stay put, so re-enrolling later resumes where the user left off.
func (s *EnrollmentService) Unenroll(userID, courseID uint) (models.Enrollment, error) {
	key := enrollmentKey(userID, courseID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	enrollment, err := s.Enrollments.Get(userID, courseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Enrollment{}, ErrNotEnrolled
		}
		return models.Enrollment{}, err
	}
	if !enrollment.Active() {
		return models.Enrollment{}, ErrNotEnrolled
	}

	enrollment.Status = models.EnrollmentUnenrolled
	if err := s.Enrollments.Put(&enrollment); err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

// ReportProgress runs one load-merge-persist cycle for a playback report.
// Duplicate and out-of-order reports are harmless: the merge is idempotent
// and monotonic, and the per-key lock keeps concurrent reports for the same
// enrollment from racing each other.
func (s *EnrollmentService) ReportProgress(userID, courseID uint, report progress.Report) (models.Enrollment, error) {
	lessons, err := s.Catalog.CourseLessons(courseID)
	if err != nil {
		return models.Enrollment{}, err
	}

	canonical, err := canonicalDuration(lessons, report.LessonID)
	if err != nil {
		return models.Enrollment{}, err
	}
	if canonical > 0 {
		// Trust the catalog over the client for the lesson length.
		report.DurationMs = canonical
	}

	key := enrollmentKey(userID, courseID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	var lastErr error
	for attempt := 0; attempt < putRetries; attempt++ {
		enrollment, err := s.Enrollments.Get(userID, courseID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.Enrollment{}, ErrNotEnrolled
			}
			return models.Enrollment{}, err
		}

		merged, err := progress.Merge(enrollment, report, len(lessons))
		if err != nil {
			return models.Enrollment{}, err
		}

		err = s.Enrollments.Put(&merged)
		if err == nil {
			return merged, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return models.Enrollment{}, err
		}
		lastErr = err
	}
	return models.Enrollment{}, lastErr
}

// ListMyEnrollments is a read-only passthrough to the store.
func (s *EnrollmentService) ListMyEnrollments(userID uint) ([]models.Enrollment, error) {
	return s.Enrollments.ListByUser(userID)
}

func canonicalDuration(lessons []models.Lesson, lessonID uint) (int64, error) {
	for i := range lessons {
		if lessons[i].ID == lessonID {
			return lessons[i].DurationMs, nil
		}
	}
	return 0, ErrUnknownLesson
}
