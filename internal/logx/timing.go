package logx

import (
	"time"
)

// Timer logs how long an operation took. Use as defer logx.Start(...).End().
type Timer struct {
	start time.Time
	id    string
	comp  string
	op    string
}

func Start(id, comp, op string) *Timer {
	return &Timer{
		start: time.Now(),
		id:    id,
		comp:  comp,
		op:    op,
	}
}

// Elapsed returns the time since Start.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

func (t *Timer) End() {
	Debug(t.comp, "[%s][TIMING] %s = %v", t.id, t.op, t.Elapsed())
}
