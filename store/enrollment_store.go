// Package store provides durable access to enrollments and read access to
// the course catalog, on top of GORM.
package store

import (
	"errors"
	"fmt"

	"coursemarket/models"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means no enrollment exists for the requested key.
	ErrNotFound = errors.New("enrollment not found")
	// ErrConflict means a concurrent writer bumped the version token between
	// our load and our put. The caller may re-run its load-merge-put cycle.
	ErrConflict = errors.New("enrollment version conflict")
	// ErrStorage wraps infrastructure failures; retrying the whole request is
	// safe because merges are idempotent.
	ErrStorage = errors.New("storage error")
)

// EnrollmentStore is the durable home of enrollment records, keyed by
// (userID, courseID) and by the opaque public id.
type EnrollmentStore interface {
	Get(userID, courseID uint) (models.Enrollment, error)
	GetByPublicID(publicID string) (models.Enrollment, error)
	Create(enrollment *models.Enrollment) error
	Put(enrollment *models.Enrollment) error
	ListByUser(userID uint) ([]models.Enrollment, error)
}

type GormEnrollmentStore struct {
	DB *gorm.DB
}

func NewEnrollmentStore(db *gorm.DB) *GormEnrollmentStore {
	return &GormEnrollmentStore{DB: db}
}

func (s *GormEnrollmentStore) Get(userID, courseID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	err := s.DB.Preload("LessonsProgress").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, ErrNotFound
		}
		return models.Enrollment{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return enrollment, nil
}

func (s *GormEnrollmentStore) GetByPublicID(publicID string) (models.Enrollment, error) {
	var enrollment models.Enrollment
	err := s.DB.Preload("LessonsProgress").
		Where("public_id = ?", publicID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, ErrNotFound
		}
		return models.Enrollment{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return enrollment, nil
}

func (s *GormEnrollmentStore) Create(enrollment *models.Enrollment) error {
	if err := s.DB.Create(enrollment).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// Put replaces the stored enrollment with the caller's complete record, in
// one transaction. The enrollment row is guarded by a version token: the
// update only matches the version the caller loaded, so a concurrent writer
// surfaces as ErrConflict instead of a silently lost update. Works across
// service instances, not just in-process.
func (s *GormEnrollmentStore) Put(enrollment *models.Enrollment) error {
	loadedVersion := enrollment.Version

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Enrollment{}).
			Where("id = ? AND version = ?", enrollment.ID, loadedVersion).
			Updates(map[string]interface{}{
				"payment_status":   enrollment.PaymentStatus,
				"status":           enrollment.Status,
				"progress_percent": enrollment.ProgressPercent,
				"version":          loadedVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		for i := range enrollment.LessonsProgress {
			entry := &enrollment.LessonsProgress[i]
			entry.EnrollmentID = enrollment.ID
			err := tx.Where("enrollment_id = ? AND lesson_id = ?", enrollment.ID, entry.LessonID).
				Assign(map[string]interface{}{
					"watched_duration_ms": entry.WatchedDurationMs,
					"completed":           entry.Completed,
				}).
				FirstOrCreate(entry).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	enrollment.Version = loadedVersion + 1
	return nil
}

func (s *GormEnrollmentStore) ListByUser(userID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := s.DB.Preload("LessonsProgress").
		Where("user_id = ?", userID).
		Order("enrolled_at desc").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return enrollments, nil
}
