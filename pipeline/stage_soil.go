// ABOUTME: SoilProcessing stage adapter over the CPT normalization and layering library.
// ABOUTME: Requires both raw CPT and layering tables; produces processed records and the soil profile.
package pipeline

import (
	"context"

	"github.com/snu-geoshm/geotwin/geotech"
)

// SoilStage wraps CPT processing. There is no meaningful closed-form
// substitute for the correlations, so an unavailable collaborator skips.
type SoilStage struct {
	Available bool
}

func (s *SoilStage) Descriptor() Descriptor {
	return Descriptor{
		Name:         "soil",
		RequiredKeys: []string{KeyRawCPT, KeyRawLayering},
		ProducedKeys: []string{KeyProcessedCPT, KeySoilProfile},
		Available:    s.Available,
	}
}

func (s *SoilStage) Run(ctx context.Context, state State) Result {
	desc := s.Descriptor()
	if missing := state.MissingKeys(desc.RequiredKeys); len(missing) > 0 {
		return SkipMissing(missing)
	}
	if !s.Available {
		return SkipUnavailable()
	}

	records, err := geotech.ParseRecords(state.Rows(KeyRawCPT))
	if err != nil {
		return Failed("soil: parsing %s: %v", KeyRawCPT, err)
	}
	profile, err := geotech.ParseProfile(state.Rows(KeyRawLayering))
	if err != nil {
		return Failed("soil: parsing %s: %v", KeyRawLayering, err)
	}

	processed, err := geotech.Process(records, profile)
	if err != nil {
		return Failed("soil: processing cpt records: %v", err)
	}

	return Success(map[string]any{
		KeyProcessedCPT: processed,
		KeySoilProfile:  profile.Rows(),
	})
}
