// ABOUTME: Deterministic stress-strain simulation standing in for the external FEM solver.
// ABOUTME: Parabolic softening model: stress = strength * strain * (1 - strain/peakStrain), clamped at zero.
package simulation

import (
	"fmt"
)

const (
	// DefaultPoints is the number of strain samples in a computed curve.
	DefaultPoints = 100
	// MaxStrain is the upper bound of the sampled strain range.
	MaxStrain = 0.1
	// PeakStrain is the strain at which the material reaches peak stress.
	PeakStrain = 0.05
)

// Point is one strain/stress sample on the computed curve. Stress is in the
// same unit as the input strength (kPa by convention).
type Point struct {
	Strain float64 `json:"strain"`
	Stress float64 `json:"stress"`
}

// StressStrain computes a softening stress-strain curve for the given
// material strength over n evenly spaced strain values in [0, MaxStrain].
// Past the softening branch the stress is clamped at zero so the curve
// never reports tension the model cannot represent.
func StressStrain(strength float64, n int) ([]Point, error) {
	if strength <= 0 {
		return nil, fmt.Errorf("material strength must be positive, got %g", strength)
	}
	if n <= 1 {
		n = DefaultPoints
	}

	points := make([]Point, n)
	step := MaxStrain / float64(n-1)
	for i := range points {
		strain := float64(i) * step
		stress := strength * strain * (1 - strain/PeakStrain)
		if stress < 0 {
			stress = 0
		}
		points[i] = Point{Strain: strain, Stress: stress}
	}
	return points, nil
}

// Rows converts a curve to the row-table form stored in session state.
func Rows(points []Point) []map[string]any {
	rows := make([]map[string]any, len(points))
	for i, p := range points {
		rows[i] = map[string]any{"strain": p.Strain, "stress": p.Stress}
	}
	return rows
}
