package gait

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gaitworks/plantar.report/internal/insole"
)

// Display range for CoP coordinates. The weighted centroid is computed in
// normalized [0,1] field coordinates and rescaled so the foot centre maps
// to (0,0) and the extremes to ±10 per axis.
const (
	displayHalfRange = 10.0
	displayScale     = 2 * displayHalfRange
)

// CenterOfPressure is the pressure-weighted centroid of a sample in
// display coordinates, paired with a normalized aggregate pressure.
// Pressure is total loading relative to the single heaviest point spread
// across all 18 sensors, in [0,1].
type CenterOfPressure struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure"`
}

// ComputeCoP computes the Center of Pressure for a sample. All-zero
// samples return the degenerate centre point (0,0) with zero pressure;
// this case is handled explicitly so the weighted mean never divides by
// zero. Intermediate math stays in float64; rounding happens only at the
// presentation boundary.
func ComputeCoP(sample insole.PressureSample) CenterOfPressure {
	coords := Coordinates(sample.Side)

	var (
		weights = make([]float64, insole.PointCount)
		xs      = make([]float64, insole.PointCount)
		ys      = make([]float64, insole.PointCount)
		maxP    float64
	)
	for i, p := range sample.Points {
		weights[i] = float64(p)
		xs[i] = coords[i].X
		ys[i] = coords[i].Y
		if float64(p) > maxP {
			maxP = float64(p)
		}
	}

	total := floats.Sum(weights)
	if total == 0 {
		return CenterOfPressure{}
	}

	rawX := stat.Mean(xs, weights)
	rawY := stat.Mean(ys, weights)

	return CenterOfPressure{
		X:        (rawX - 0.5) * displayScale,
		Y:        (rawY - 0.5) * displayScale,
		Pressure: total / (maxP * insole.PointCount),
	}
}

// PressurePercent returns the aggregate pressure on a 0-100 integer
// scale.
func (c CenterOfPressure) PressurePercent() int {
	return int(math.Round(c.Pressure * 100))
}

// String renders the coordinates rounded to two decimal places.
func (c CenterOfPressure) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", c.X, c.Y)
}

// StringWithPressure renders coordinates to two decimal places and the
// pressure as a percentage with one decimal place.
func (c CenterOfPressure) StringWithPressure() string {
	return fmt.Sprintf("(%.2f, %.2f) %.1f%%", c.X, c.Y, c.Pressure*100)
}
