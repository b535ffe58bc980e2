// Package gait derives biomechanical metrics from plantar pressure
// samples: the fixed sensor-to-coordinate field model, the pressure-
// weighted Center of Pressure, and anatomical region aggregation.
package gait

import (
	"fmt"
	"strings"

	"github.com/gaitworks/plantar.report/internal/insole"
)

// Coordinate is a normalized position on the foot surface. X runs
// medial→lateral for the left foot, Y runs heel(0)→toe(1). Both axes are
// in [0,1].
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// leftFootCoords maps sensor positions 1..18 (index 0..17) onto the left
// foot surface. The layout follows the insole silkscreen: three toe
// sensors, seven across the forefoot, two midfoot, two under the arch,
// and four on the heel. The table is immutable and process-wide.
var leftFootCoords = [insole.PointCount]Coordinate{
	{X: 0.30, Y: 0.95}, // 1  hallux
	{X: 0.50, Y: 0.93}, // 2  second/third toes
	{X: 0.68, Y: 0.91}, // 3  lateral toes
	{X: 0.22, Y: 0.82}, // 4  first metatarsal head
	{X: 0.40, Y: 0.83}, // 5
	{X: 0.58, Y: 0.82}, // 6
	{X: 0.75, Y: 0.80}, // 7  fifth metatarsal head
	{X: 0.30, Y: 0.70}, // 8
	{X: 0.52, Y: 0.70}, // 9
	{X: 0.72, Y: 0.68}, // 10
	{X: 0.35, Y: 0.55}, // 11 medial midfoot
	{X: 0.60, Y: 0.55}, // 12 lateral midfoot
	{X: 0.40, Y: 0.42}, // 13 arch
	{X: 0.62, Y: 0.42}, // 14
	{X: 0.38, Y: 0.28}, // 15 anterior heel
	{X: 0.60, Y: 0.28}, // 16
	{X: 0.42, Y: 0.12}, // 17 posterior heel
	{X: 0.58, Y: 0.12}, // 18
}

// Coordinates returns the field coordinates for the given foot side.
// Left and Unknown use the base table; Right mirrors laterally with
// x' = 1 - x.
func Coordinates(side insole.FootSide) [insole.PointCount]Coordinate {
	if side != insole.FootRight {
		return leftFootCoords
	}
	var mirrored [insole.PointCount]Coordinate
	for i, c := range leftFootCoords {
		mirrored[i] = Coordinate{X: 1 - c.X, Y: c.Y}
	}
	return mirrored
}

// Region names a fixed anatomical subset of the 18 sensor positions.
type Region int

const (
	RegionToe Region = iota
	RegionForefoot
	RegionMidfoot
	RegionArch
	RegionHeel
)

// regionIndices holds zero-based point indices per region. Every region
// has at least two members and the regions partition all 18 points.
var regionIndices = map[Region][]int{
	RegionToe:      {0, 1, 2},
	RegionForefoot: {3, 4, 5, 6, 7, 8, 9},
	RegionMidfoot:  {10, 11},
	RegionArch:     {12, 13},
	RegionHeel:     {14, 15, 16, 17},
}

var regionNames = map[Region]string{
	RegionToe:      "toe",
	RegionForefoot: "forefoot",
	RegionMidfoot:  "midfoot",
	RegionArch:     "arch",
	RegionHeel:     "heel",
}

// Regions lists all named regions in anatomical order, toe to heel.
var Regions = []Region{RegionToe, RegionForefoot, RegionMidfoot, RegionArch, RegionHeel}

func (r Region) String() string {
	if name, ok := regionNames[r]; ok {
		return name
	}
	return fmt.Sprintf("region(%d)", int(r))
}

// Indices returns a copy of the zero-based point indices in the region.
func (r Region) Indices() []int {
	src := regionIndices[r]
	out := make([]int, len(src))
	copy(out, src)
	return out
}

// Range returns the region as a contiguous {start, end, step} descriptor.
// All named regions occupy contiguous index runs in the sensor layout.
func (r Region) Range() PointRange {
	idx := regionIndices[r]
	return PointRange{Start: idx[0], End: idx[len(idx)-1], Step: 1}
}

// RegionByName resolves an API/config region name.
func RegionByName(name string) (Region, error) {
	for r, n := range regionNames {
		if n == strings.ToLower(strings.TrimSpace(name)) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown region %q: expected toe, forefoot, midfoot, arch, or heel", name)
}

// Ad hoc point groups over the 18 positions, expressed as range/step
// descriptors: thirds of the foot and parity subsets.
var (
	FrontThird  = PointRange{Start: 0, End: 5, Step: 1}
	MiddleThird = PointRange{Start: 6, End: 11, Step: 1}
	HeelThird   = PointRange{Start: 12, End: 17, Step: 1}
	EvenPoints  = PointRange{Start: 0, End: 17, Step: 2}
	OddPoints   = PointRange{Start: 1, End: 17, Step: 2}
)
