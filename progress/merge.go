// Package progress holds the merge rules that turn a stream of repeated,
// possibly stale, possibly duplicated playback reports into a single
// authoritative enrollment state. Everything here is pure: no I/O, no clocks,
// value in, value out.
package progress

import (
	"errors"
	"math"

	"coursemarket/models"
)

// CompletionThreshold marks a lesson completed once the playback position
// reaches this fraction of the lesson duration.
const CompletionThreshold = 0.90

var (
	// ErrInvalidReport rejects malformed input without touching state.
	ErrInvalidReport = errors.New("invalid progress report")
	// ErrEnrollmentNotActive rejects reports for unenrolled enrollments.
	ErrEnrollmentNotActive = errors.New("enrollment is not active")
)

// Report is one client observation of playback position for a lesson. The
// client sends these on lesson open, on a periodic tick, once when crossing
// the completion threshold, and on view close; any of them may arrive late,
// twice, or out of order.
type Report struct {
	LessonID      uint  `json:"lesson_id"`
	PositionMs    int64 `json:"position_ms"`
	DurationMs    int64 `json:"duration_ms"`
	CompletedHint bool  `json:"completed_hint"`
}

// Complete reports whether the report on its own crosses the completion
// threshold or carries the client's completion hint.
func (r Report) Complete() bool {
	if r.CompletedHint {
		return true
	}
	return float64(r.PositionMs)/float64(r.DurationMs) >= CompletionThreshold
}

// Merge applies one report to an enrollment and returns the next state.
// The merge is commutative and idempotent: watched duration is max-merged,
// the completed flag is OR-merged, so replaying the same or an older report
// never changes the outcome. totalLessons comes from the course catalog and
// drives the aggregate percentage.
func Merge(enrollment models.Enrollment, report Report, totalLessons int) (models.Enrollment, error) {
	if report.DurationMs <= 0 || report.PositionMs < 0 {
		return models.Enrollment{}, ErrInvalidReport
	}
	if !enrollment.Active() {
		return models.Enrollment{}, ErrEnrollmentNotActive
	}

	if report.PositionMs > report.DurationMs {
		report.PositionMs = report.DurationMs
	}

	next := enrollment.Clone()

	entry := next.Lesson(report.LessonID)
	if entry == nil {
		next.LessonsProgress = append(next.LessonsProgress, models.LessonProgress{
			EnrollmentID: next.ID,
			LessonID:     report.LessonID,
		})
		entry = &next.LessonsProgress[len(next.LessonsProgress)-1]
	}

	if report.PositionMs > entry.WatchedDurationMs {
		entry.WatchedDurationMs = report.PositionMs
	}
	entry.Completed = entry.Completed || report.Complete()

	next.ProgressPercent = Percent(next.CompletedLessons(), totalLessons)
	return next, nil
}

// Percent derives the aggregate course completion percentage.
func Percent(completedLessons, totalLessons int) int {
	if totalLessons <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completedLessons) / float64(totalLessons)))
}
