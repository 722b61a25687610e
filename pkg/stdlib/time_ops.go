package stdlib

import (
	"fmt"
	"time"

	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
)

func loadTime(_ *evaluator.Interpreter) *evaluator.Object {
	return evaluator.NewObject(map[string]evaluator.Value{
		"now":    native("time.now", 0, 0, stdlibTimeNow),
		"millis": native("time.millis", 0, 0, stdlibTimeMillis),
		"sleep":  native("time.sleep", 1, 1, stdlibTimeSleep),
	})
}

// time.now() → seconds since the Unix epoch, fractional
func stdlibTimeNow(_ *evaluator.Interpreter, _ args) (evaluator.Value, error) {
	return num(float64(time.Now().UnixNano()) / 1e9), nil
}

// time.millis() → milliseconds since the Unix epoch
func stdlibTimeMillis(_ *evaluator.Interpreter, _ args) (evaluator.Value, error) {
	return num(float64(time.Now().UnixMilli())), nil
}

// time.sleep(ms) blocks the interpreter until the duration passes or the
// run is cancelled.
func stdlibTimeSleep(in *evaluator.Interpreter, a args) (evaluator.Value, error) {
	ms, err := a.number(0)
	if err != nil {
		return nil, err
	}
	if ms < 0 {
		return nil, evaluator.Errorf(diagnostics.EOutOfRange, "time.sleep: duration must not be negative")
	}
	timer := time.NewTimer(time.Duration(ms * float64(time.Millisecond)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return evaluator.Nil{}, nil
	case <-in.Context().Done():
		return nil, fmt.Errorf("time.sleep: %w", in.Context().Err())
	}
}
