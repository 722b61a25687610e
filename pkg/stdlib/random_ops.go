package stdlib

import (
	"math/rand"
	"time"

	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
)

// loadRandom gives each import its own source so seed() stays local to
// the importing program.
func loadRandom(_ *evaluator.Interpreter) *evaluator.Object {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return evaluator.NewObject(map[string]evaluator.Value{
		"int": native("random.int", 2, 2, func(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
			lo, err := a.integer(0)
			if err != nil {
				return nil, err
			}
			hi, err := a.integer(1)
			if err != nil {
				return nil, err
			}
			if hi <= lo {
				return nil, evaluator.Errorf(diagnostics.EInvalidRange, "random.int: empty range [%d, %d)", lo, hi)
			}
			return num(float64(lo + rng.Intn(hi-lo))), nil
		}),
		"float": native("random.float", 0, 0, func(_ *evaluator.Interpreter, _ args) (evaluator.Value, error) {
			return num(rng.Float64()), nil
		}),
		"choice": native("random.choice", 1, 1, func(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
			arr, err := a.array(0)
			if err != nil {
				return nil, err
			}
			if len(arr.Elements) == 0 {
				return nil, evaluator.Errorf(diagnostics.EIndexOutOfBounds, "random.choice: array is empty")
			}
			return arr.Elements[rng.Intn(len(arr.Elements))], nil
		}),
		"seed": native("random.seed", 1, 1, func(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
			n, err := a.integer(0)
			if err != nil {
				return nil, err
			}
			rng.Seed(int64(n))
			return evaluator.Nil{}, nil
		}),
	})
}
