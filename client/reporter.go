package client

import (
	"context"
	"sync"
	"time"

	"coursemarket/models"
	"coursemarket/progress"
)

// ProgressAPI is the slice of Client the reporter needs; tests can stub it.
type ProgressAPI interface {
	ReportProgress(ctx context.Context, courseID uint, report progress.Report) (models.Enrollment, error)
}

// Reporter watches one lesson's playback and sends reports on the schedule
// the server contract describes: once on lesson open, on every interval tick,
// once when the completion threshold is first crossed, and once on Close.
// The local view of the enrollment is disposable; whatever the server returns
// replaces it wholesale.
type Reporter struct {
	API        ProgressAPI
	CourseID   uint
	LessonID   uint
	DurationMs int64
	Interval   time.Duration

	// Position returns the current playback position in milliseconds.
	Position func() int64

	mu             sync.Mutex
	last           models.Enrollment
	sentCompletion bool
	stop           context.CancelFunc
	done           chan struct{}
}

// Start sends the lesson-open report and begins the periodic ticker. The
// open report carries position 0 so it can never regress server state; its
// response tells the UI where to seek (the stored watched duration).
func (r *Reporter) Start(ctx context.Context) (models.Enrollment, error) {
	if r.Interval <= 0 {
		r.Interval = 15 * time.Second
	}

	enrollment, err := r.send(ctx, 0, false)
	if err != nil {
		return models.Enrollment{}, err
	}

	tickCtx, cancel := context.WithCancel(ctx)
	r.stop = cancel
	r.done = make(chan struct{})
	go r.run(tickCtx)

	return enrollment, nil
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A failed tick is fine; the next one catches up.
			r.report(ctx)
		}
	}
}

// report sends the current position, adding the completion hint exactly once
// when the threshold is first crossed.
func (r *Reporter) report(ctx context.Context) {
	position := r.Position()

	r.mu.Lock()
	hint := false
	if !r.sentCompletion && r.DurationMs > 0 &&
		float64(position)/float64(r.DurationMs) >= progress.CompletionThreshold {
		hint = true
		r.sentCompletion = true
	}
	r.mu.Unlock()

	r.send(ctx, position, hint)
}

// Close sends the final report and stops the ticker. Safe to call even if
// the final send fails: reports are idempotent and nothing is lost beyond
// the tail of this session.
func (r *Reporter) Close(ctx context.Context) (models.Enrollment, error) {
	if r.stop != nil {
		r.stop()
		<-r.done
	}
	return r.send(ctx, r.Position(), false)
}

// Last returns the most recent authoritative enrollment from the server.
func (r *Reporter) Last() models.Enrollment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Reporter) send(ctx context.Context, positionMs int64, hint bool) (models.Enrollment, error) {
	enrollment, err := r.API.ReportProgress(ctx, r.CourseID, progress.Report{
		LessonID:      r.LessonID,
		PositionMs:    positionMs,
		DurationMs:    r.DurationMs,
		CompletedHint: hint,
	})
	if err != nil {
		return models.Enrollment{}, err
	}

	r.mu.Lock()
	r.last = enrollment
	r.mu.Unlock()
	return enrollment, nil
}
