package gait

import (
	"math"
	"testing"

	"github.com/gaitworks/plantar.report/internal/insole"
)

const copTolerance = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < copTolerance
}

func TestComputeCoPZeroSample(t *testing.T) {
	cop := ComputeCoP(insole.PressureSample{Side: insole.FootLeft})

	if cop.X != 0 || cop.Y != 0 || cop.Pressure != 0 {
		t.Errorf("zero sample CoP = %+v, want the degenerate centre", cop)
	}
}

func TestComputeCoPSinglePoint(t *testing.T) {
	// All load on one sensor puts the CoP exactly at that sensor's
	// display position.
	var points [insole.PointCount]uint16
	points[0] = 1000 // hallux, left coords (0.30, 0.95)

	cop := ComputeCoP(insole.PressureSample{Side: insole.FootLeft, Points: points})

	if !approxEqual(cop.X, (0.30-0.5)*20) {
		t.Errorf("X = %v, want %v", cop.X, (0.30-0.5)*20)
	}
	if !approxEqual(cop.Y, (0.95-0.5)*20) {
		t.Errorf("Y = %v, want %v", cop.Y, (0.95-0.5)*20)
	}
	// total == max for a single loaded point
	if !approxEqual(cop.Pressure, 1.0/insole.PointCount) {
		t.Errorf("Pressure = %v, want %v", cop.Pressure, 1.0/insole.PointCount)
	}
}

func TestComputeCoPScaleInvariance(t *testing.T) {
	var points, doubled [insole.PointCount]uint16
	for i := range points {
		points[i] = uint16(50 + 13*i)
		doubled[i] = points[i] * 2
	}

	a := ComputeCoP(insole.PressureSample{Side: insole.FootLeft, Points: points})
	b := ComputeCoP(insole.PressureSample{Side: insole.FootLeft, Points: doubled})

	if !approxEqual(a.X, b.X) || !approxEqual(a.Y, b.Y) {
		t.Errorf("doubling all points moved the CoP: %v vs %v", a, b)
	}
	// pressure is a ratio against the sample max, so it is also invariant
	if !approxEqual(a.Pressure, b.Pressure) {
		t.Errorf("doubling all points changed Pressure: %v vs %v", a.Pressure, b.Pressure)
	}
}

func TestComputeCoPMirrorAntisymmetry(t *testing.T) {
	var points [insole.PointCount]uint16
	for i := range points {
		points[i] = uint16(100 + 31*i)
	}

	left := ComputeCoP(insole.PressureSample{Side: insole.FootLeft, Points: points})
	right := ComputeCoP(insole.PressureSample{Side: insole.FootRight, Points: points})

	if !approxEqual(left.X, -right.X) {
		t.Errorf("mirror: left X = %v, right X = %v, want negatives", left.X, right.X)
	}
	if !approxEqual(left.Y, right.Y) {
		t.Errorf("mirror: left Y = %v, right Y = %v, want equal", left.Y, right.Y)
	}
	if !approxEqual(left.Pressure, right.Pressure) {
		t.Errorf("mirror: pressures differ, %v vs %v", left.Pressure, right.Pressure)
	}
}

func TestComputeCoPHandComputed(t *testing.T) {
	// Two loaded points with known weights: hallux (0.30, 0.95) at 300
	// and posterior heel 17 (0.42, 0.12) at 100.
	var points [insole.PointCount]uint16
	points[0] = 300
	points[16] = 100

	cop := ComputeCoP(insole.PressureSample{Side: insole.FootLeft, Points: points})

	rawX := (0.30*300 + 0.42*100) / 400
	rawY := (0.95*300 + 0.12*100) / 400
	if !approxEqual(cop.X, (rawX-0.5)*20) {
		t.Errorf("X = %v, want %v", cop.X, (rawX-0.5)*20)
	}
	if !approxEqual(cop.Y, (rawY-0.5)*20) {
		t.Errorf("Y = %v, want %v", cop.Y, (rawY-0.5)*20)
	}
	if !approxEqual(cop.Pressure, 400.0/(300*insole.PointCount)) {
		t.Errorf("Pressure = %v, want %v", cop.Pressure, 400.0/(300*insole.PointCount))
	}
}

func TestComputeCoPWithinDisplayRange(t *testing.T) {
	var maxed [insole.PointCount]uint16
	for i := range maxed {
		maxed[i] = 0xFFFF
	}

	cop := ComputeCoP(insole.PressureSample{Side: insole.FootLeft, Points: maxed})

	if cop.X < -10 || cop.X > 10 || cop.Y < -10 || cop.Y > 10 {
		t.Errorf("CoP (%v, %v) outside the ±10 display range", cop.X, cop.Y)
	}
	if !approxEqual(cop.Pressure, 1.0) {
		t.Errorf("uniform max load Pressure = %v, want 1", cop.Pressure)
	}
}

func TestPressurePercent(t *testing.T) {
	cases := []struct {
		pressure float64
		want     int
	}{
		{0, 0},
		{0.004, 0},
		{0.005, 1},
		{0.5, 50},
		{0.996, 100},
		{1, 100},
	}
	for _, tc := range cases {
		c := CenterOfPressure{Pressure: tc.pressure}
		if got := c.PressurePercent(); got != tc.want {
			t.Errorf("PressurePercent(%v) = %d, want %d", tc.pressure, got, tc.want)
		}
	}
}

func TestCoPStrings(t *testing.T) {
	c := CenterOfPressure{X: 1.234, Y: -5.678, Pressure: 0.4321}

	if got := c.String(); got != "(1.23, -5.68)" {
		t.Errorf("String() = %q, want %q", got, "(1.23, -5.68)")
	}
	if got := c.StringWithPressure(); got != "(1.23, -5.68) 43.2%" {
		t.Errorf("StringWithPressure() = %q, want %q", got, "(1.23, -5.68) 43.2%")
	}
}
