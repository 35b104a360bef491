package progress

import (
	"testing"

	"coursemarket/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeEnrollment() models.Enrollment {
	return models.Enrollment{
		UserID:   1,
		CourseID: 1,
		Status:   models.EnrollmentActive,
	}
}

func mustMerge(t *testing.T, e models.Enrollment, r Report, totalLessons int) models.Enrollment {
	t.Helper()
	next, err := Merge(e, r, totalLessons)
	require.NoError(t, err)
	return next
}

func TestMergeRejectsMalformedReports(t *testing.T) {
	cases := []struct {
		name   string
		report Report
	}{
		{"zero duration", Report{LessonID: 1, PositionMs: 100, DurationMs: 0}},
		{"negative duration", Report{LessonID: 1, PositionMs: 100, DurationMs: -5}},
		{"negative position", Report{LessonID: 1, PositionMs: -1, DurationMs: 6000}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Merge(activeEnrollment(), tc.report, 4)
			assert.ErrorIs(t, err, ErrInvalidReport)
		})
	}
}

func TestMergeRejectsUnenrolled(t *testing.T) {
	e := activeEnrollment()
	e.Status = models.EnrollmentUnenrolled

	_, err := Merge(e, Report{LessonID: 1, PositionMs: 100, DurationMs: 6000}, 4)
	assert.ErrorIs(t, err, ErrEnrollmentNotActive)
}

func TestMergeCompletesAtNinetyPercent(t *testing.T) {
	// 5400/6000 is exactly 90%: the lesson completes and a 4-lesson course
	// lands at 25%.
	next := mustMerge(t, activeEnrollment(), Report{LessonID: 1, PositionMs: 5400, DurationMs: 6000}, 4)

	entry := next.Lesson(1)
	require.NotNil(t, entry)
	assert.True(t, entry.Completed)
	assert.Equal(t, int64(5400), entry.WatchedDurationMs)
	assert.Equal(t, 25, next.ProgressPercent)
}

func TestMergeIsMonotonicAndSticky(t *testing.T) {
	e := mustMerge(t, activeEnrollment(), Report{LessonID: 1, PositionMs: 5400, DurationMs: 6000}, 4)

	// A stray low-position report (seek back to the start) must not regress
	// the watched duration or clear the completed flag.
	e = mustMerge(t, e, Report{LessonID: 1, PositionMs: 100, DurationMs: 6000}, 4)

	entry := e.Lesson(1)
	require.NotNil(t, entry)
	assert.Equal(t, int64(5400), entry.WatchedDurationMs)
	assert.True(t, entry.Completed)
	assert.Equal(t, 25, e.ProgressPercent)
}

func TestMergeIsIdempotent(t *testing.T) {
	report := Report{LessonID: 2, PositionMs: 3000, DurationMs: 6000}

	once := mustMerge(t, activeEnrollment(), report, 4)
	twice := mustMerge(t, once, report, 4)

	assert.Equal(t, once.LessonsProgress, twice.LessonsProgress)
	assert.Equal(t, once.ProgressPercent, twice.ProgressPercent)
}

func TestMergeIsCommutative(t *testing.T) {
	a := Report{LessonID: 1, PositionMs: 2000, DurationMs: 6000}
	b := Report{LessonID: 1, PositionMs: 5500, DurationMs: 6000, CompletedHint: false}

	ab := mustMerge(t, mustMerge(t, activeEnrollment(), a, 4), b, 4)
	ba := mustMerge(t, mustMerge(t, activeEnrollment(), b, 4), a, 4)

	assert.Equal(t, ab.Lesson(1).WatchedDurationMs, ba.Lesson(1).WatchedDurationMs)
	assert.Equal(t, ab.Lesson(1).Completed, ba.Lesson(1).Completed)
	assert.Equal(t, ab.ProgressPercent, ba.ProgressPercent)
}

func TestMergeFinalWatchedDurationIsMaxOfReports(t *testing.T) {
	positions := []int64{1200, 4800, 300, 4700, 0}

	e := activeEnrollment()
	for _, pos := range positions {
		e = mustMerge(t, e, Report{LessonID: 3, PositionMs: pos, DurationMs: 6000}, 4)
	}

	assert.Equal(t, int64(4800), e.Lesson(3).WatchedDurationMs)
}

func TestMergeHonorsCompletedHint(t *testing.T) {
	// The client may declare completion independent of position; the flag is
	// OR-merged and stays sticky afterwards.
	e := mustMerge(t, activeEnrollment(), Report{LessonID: 1, PositionMs: 500, DurationMs: 6000, CompletedHint: true}, 2)
	assert.True(t, e.Lesson(1).Completed)
	assert.Equal(t, 50, e.ProgressPercent)

	e = mustMerge(t, e, Report{LessonID: 1, PositionMs: 0, DurationMs: 6000}, 2)
	assert.True(t, e.Lesson(1).Completed)
}

func TestMergeClampsPositionToDuration(t *testing.T) {
	e := mustMerge(t, activeEnrollment(), Report{LessonID: 1, PositionMs: 9000, DurationMs: 6000}, 1)

	assert.Equal(t, int64(6000), e.Lesson(1).WatchedDurationMs)
	assert.True(t, e.Lesson(1).Completed)
}

func TestMergeNeverDuplicatesLessonEntries(t *testing.T) {
	e := activeEnrollment()
	for i := 0; i < 5; i++ {
		e = mustMerge(t, e, Report{LessonID: 7, PositionMs: int64(i * 1000), DurationMs: 6000}, 4)
	}

	assert.Len(t, e.LessonsProgress, 1)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	original := activeEnrollment()
	original.LessonsProgress = []models.LessonProgress{{LessonID: 1, WatchedDurationMs: 100}}

	_, err := Merge(original, Report{LessonID: 1, PositionMs: 5000, DurationMs: 6000}, 4)
	require.NoError(t, err)

	assert.Equal(t, int64(100), original.LessonsProgress[0].WatchedDurationMs)
	assert.False(t, original.LessonsProgress[0].Completed)
}

func TestPercent(t *testing.T) {
	cases := []struct {
		name      string
		completed int
		total     int
		want      int
	}{
		{"empty course", 0, 0, 0},
		{"nothing watched", 0, 4, 0},
		{"one of four", 1, 4, 25},
		{"two of four", 2, 4, 50},
		{"rounds up", 2, 3, 67},
		{"rounds down", 1, 3, 33},
		{"all done", 4, 4, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Percent(tc.completed, tc.total))
		})
	}
}
