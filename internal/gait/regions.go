package gait

import (
	"fmt"
	"math"

	"github.com/gaitworks/plantar.report/internal/insole"
)

// PointRange selects a subset of the 18 points as an inclusive
// {start, end, step} descriptor over zero-based indices.
type PointRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Step  int `json:"step"`
}

// Validate checks that the descriptor addresses points within the fixed
// 18-point layout.
func (r PointRange) Validate() error {
	if r.Step < 1 {
		return fmt.Errorf("step must be >= 1, got %d", r.Step)
	}
	if r.Start < 0 || r.Start >= insole.PointCount {
		return fmt.Errorf("start %d out of range [0,%d)", r.Start, insole.PointCount)
	}
	if r.End < r.Start || r.End >= insole.PointCount {
		return fmt.Errorf("end %d out of range [%d,%d)", r.End, r.Start, insole.PointCount)
	}
	return nil
}

// Count returns the number of points the descriptor selects.
func (r PointRange) Count() int {
	if r.End < r.Start || r.Step < 1 {
		return 0
	}
	return (r.End-r.Start)/r.Step + 1
}

// RegionStats aggregates a point subset of one sample. The reducers are
// pure: they hold no state between samples.
type RegionStats struct {
	Sum           int     `json:"sum"`
	Average       int     `json:"average"`
	Max           uint16  `json:"max"`
	NormalizedSum float64 `json:"normalized_sum"`
}

// Aggregate reduces the selected points to sum, integer-rounded average,
// max, and a sum normalized by the overall sample maximum:
// sum / (overallMax * count). Both normalizations are 0 when the sample
// is all zero. An empty selection yields zeroes (predefined groups always
// have at least two members).
func Aggregate(points [insole.PointCount]uint16, r PointRange) RegionStats {
	count := r.Count()
	if count == 0 {
		return RegionStats{}
	}

	var stats RegionStats
	for i := r.Start; i <= r.End; i += r.Step {
		v := points[i]
		stats.Sum += int(v)
		if v > stats.Max {
			stats.Max = v
		}
	}
	stats.Average = int(math.Round(float64(stats.Sum) / float64(count)))

	var overallMax uint16
	for _, v := range points {
		if v > overallMax {
			overallMax = v
		}
	}
	if overallMax > 0 {
		stats.NormalizedSum = float64(stats.Sum) / (float64(overallMax) * float64(count))
	}
	return stats
}

// AggregateRegion reduces a named anatomical region.
func AggregateRegion(points [insole.PointCount]uint16, region Region) RegionStats {
	return Aggregate(points, region.Range())
}
