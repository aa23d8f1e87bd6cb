// ABOUTME: Default stage wiring for the digital-twin pipeline in its fixed run order.
// ABOUTME: Simulation -> SoilProcessing -> GeoModel -> ModalAnalysis.
package pipeline

// StageConfig carries the tuning knobs the stage adapters accept.
type StageConfig struct {
	StrainPoints int            // simulation curve samples (0 = 100)
	SampleRate   float64        // modal sampling frequency in Hz (0 = 100)
	Refinement   int            // geomodel grid refinement (0 = 4)
	Artifacts    *ArtifactStore // destination for rendered scene artifacts
}

// DefaultStages builds the four built-in stage adapters in run order. All
// collaborators here are the in-process substitutes, so soil and geomodel
// are available; the simulation and modal adapters log their fallback.
func DefaultStages(cfg StageConfig) []Stage {
	return []Stage{
		&SimulationStage{StrainPoints: cfg.StrainPoints},
		&SoilStage{Available: true},
		&GeoModelStage{Available: true, Artifacts: cfg.Artifacts, Refinement: cfg.Refinement},
		&ModalStage{SampleRate: cfg.SampleRate},
	}
}
