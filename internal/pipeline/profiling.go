package pipeline

import "time"

// TimeRecorder measures one named scope of work and writes the elapsed time
// onto a ConversionResult when stopped. Timings are informational only and
// never influence control flow.
//
//	rec := pipeline.NewTimeRecorder(res, "ocr")
//	defer rec.Stop()
type TimeRecorder struct {
	res   *ConversionResult
	scope string
	start time.Time
}

// NewTimeRecorder starts measuring the named scope.
func NewTimeRecorder(res *ConversionResult, scope string) *TimeRecorder {
	return &TimeRecorder{res: res, scope: scope, start: time.Now()}
}

// Stop ends the measurement, records it, and returns the elapsed time.
// Stopping a recorder more than once records multiple spans.
func (t *TimeRecorder) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.res != nil {
		t.res.RecordTiming(t.scope, elapsed)
	}
	return elapsed
}
