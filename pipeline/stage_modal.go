// ABOUTME: ModalAnalysis stage adapter over the operational modal analysis solver.
// ABOUTME: Falls back to the FFT spectrum substitute, logged, when the native solver is absent.
package pipeline

import (
	"context"
	"log"

	"github.com/snu-geoshm/geotwin/modal"
)

// ModalStage wraps operational modal analysis. The native solver is an
// optional dependency; the documented fallback is the FFT amplitude
// spectrum, which runs whenever the solver is missing.
type ModalStage struct {
	// NativeAvailable marks the external OMA solver as importable.
	NativeAvailable bool
	// SampleRate in Hz (0 = modal.DefaultSampleRate).
	SampleRate float64
}

func (s *ModalStage) Descriptor() Descriptor {
	return Descriptor{
		Name:         "modal",
		RequiredKeys: []string{KeyTimeSeries},
		ProducedKeys: []string{KeyModalResult},
		Available:    true, // fallback substitute always present
	}
}

func (s *ModalStage) Run(ctx context.Context, state State) Result {
	desc := s.Descriptor()
	if missing := state.MissingKeys(desc.RequiredKeys); len(missing) > 0 {
		return SkipMissing(missing)
	}

	if !s.NativeAvailable {
		log.Printf("modal: native OMA solver unavailable, using FFT spectrum substitute")
	}

	analysis, err := modal.Analyze(state.Rows(KeyTimeSeries), s.SampleRate)
	if err != nil {
		return Failed("modal: analyzing %s: %v", KeyTimeSeries, err)
	}

	pairs := make([]map[string]any, len(analysis.Pairs))
	for i, p := range analysis.Pairs {
		pairs[i] = map[string]any{"frequency": p.Frequency, "amplitude": p.Amplitude}
	}

	return Success(map[string]any{
		KeyModalResult: map[string]any{
			"pairs":          pairs,
			"fs":             analysis.SampleRate,
			"n_channels":     analysis.Channels,
			"n_samples":      analysis.Samples,
			"resolution_hz":  analysis.Resolution,
			"peak_frequency": analysis.PeakFrequency,
		},
	})
}
