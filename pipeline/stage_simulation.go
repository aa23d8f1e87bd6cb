// ABOUTME: Simulation stage adapter: stress-strain curve from material strength.
// ABOUTME: Strength comes from stored processed CPT relative density or material_input; with neither it skips.
package pipeline

import (
	"context"
	"log"

	"github.com/snu-geoshm/geotwin/geotech"
	"github.com/snu-geoshm/geotwin/simulation"
)

// SimulationStage wraps the stress-strain solver. When the native FEM
// backend is unavailable it falls back to the closed-form softening model,
// logged rather than silent, since the substitute is deterministic and
// documented.
type SimulationStage struct {
	// StrainPoints overrides the number of curve samples (0 = default 100).
	StrainPoints int
	// NativeAvailable marks the external FEM backend as importable. The
	// fallback substitute runs either way; the flag only changes logging.
	NativeAvailable bool
}

func (s *SimulationStage) Descriptor() Descriptor {
	return Descriptor{
		Name: "simulation",
		// material_input is the nominal precondition; processed CPT records
		// stored by an earlier run substitute for it, checked in Run.
		RequiredKeys: []string{KeyMaterialInput},
		ProducedKeys: []string{KeySimulationResult},
		Available:    true, // substitute always present
	}
}

func (s *SimulationStage) Run(ctx context.Context, state State) Result {
	var strength float64

	// Measured relative density from processed CPT records stored by a
	// previous run takes precedence over the manual material input,
	// matching the processing interop the dashboard exposes.
	if rows := state.Rows(KeyProcessedCPT); len(rows) > 0 {
		if dr, ok := geotech.MeanRelativeDensity(rows); ok && dr > 0 {
			strength = dr
		}
	}

	if strength <= 0 {
		if _, ok := state[KeyMaterialInput]; !ok {
			return SkipMissing([]string{KeyMaterialInput})
		}
		// The key is present, so the precondition holds; an unusable value
		// is the collaborator's rejection, not a skip.
		strength = state.Float(KeyMaterialInput, 0)
	}

	if !s.NativeAvailable {
		log.Printf("simulation: native FEM backend unavailable, using closed-form substitute")
	}

	points, err := simulation.StressStrain(strength, s.StrainPoints)
	if err != nil {
		return Failed("simulation: strength input %g rejected: %v", strength, err)
	}

	return Success(map[string]any{
		KeySimulationResult: simulation.Rows(points),
	})
}
