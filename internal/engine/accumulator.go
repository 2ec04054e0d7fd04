package engine

import (
	"math"

	"github.com/omniql-engine/esql/internal/ast"
	"github.com/omniql-engine/esql/internal/schema"
)

// Accumulator is the tagged per-function accumulator variant spec §9
// calls for ("Model with a tagged variant per function kind... AvgAcc
// finalisation collapses to a scalar"). An Accumulator only exists in
// an H-row's map once a row has actually touched it; there is no
// "uninitialised" state to track explicitly, since absence from the
// map IS the uninitialised/absent state (spec §4.4's accumulator
// state machine).
type Accumulator struct {
	fn    ast.AggFunc
	sum   float64
	count int
	min   float64
	max   float64
}

func newAccumulator(fn ast.AggFunc) *Accumulator {
	return &Accumulator{fn: fn, min: math.Inf(1), max: math.Inf(-1)}
}

// Update folds one row's value into the accumulator. min/max never
// special-case the first touch: seeding them at +Inf/-Inf makes the
// first comparison set the value verbatim automatically.
func (a *Accumulator) Update(v schema.Value) {
	switch a.fn {
	case ast.Sum:
		a.sum += v.Num
	case ast.Count:
		a.count++
	case ast.Min:
		if v.Num < a.min {
			a.min = v.Num
		}
	case ast.Max:
		if v.Num > a.max {
			a.max = v.Num
		}
	case ast.Avg:
		a.sum += v.Num
		a.count++
	}
}

// Value finalises the accumulator to its displayed scalar (spec §4.4
// phase 3): avg collapses (sum, count) to sum/count rounded to two
// decimals.
func (a *Accumulator) Value() schema.Value {
	switch a.fn {
	case ast.Sum:
		return schema.NumberValue(a.sum)
	case ast.Count:
		return schema.NumberValue(float64(a.count))
	case ast.Min:
		return schema.NumberValue(a.min)
	case ast.Max:
		return schema.NumberValue(a.max)
	case ast.Avg:
		return schema.NumberValue(round2(a.sum / float64(a.count)))
	default:
		return schema.NumberValue(0)
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
