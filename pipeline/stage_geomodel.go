// ABOUTME: GeoModel stage adapter over the structural-model builder.
// ABOUTME: Stores only the serializable summary plus the HTML artifact reference, never the native model.
package pipeline

import (
	"context"

	"github.com/snu-geoshm/geotwin/geomodel"
	"github.com/snu-geoshm/geotwin/geotech"
)

// GeoModelStage wraps geological model computation. The model's structural
// grid never enters session state; only the summary and the rendered HTML
// artifact path do. No substitute exists, so unavailability skips.
type GeoModelStage struct {
	Available  bool
	Artifacts  *ArtifactStore
	Refinement int
}

func (s *GeoModelStage) Descriptor() Descriptor {
	return Descriptor{
		Name:          "geomodel",
		RequiredKeys:  []string{KeySurfacePoints, KeyOrientations},
		ProducedKeys:  []string{KeyGeoModelSummary},
		ConsumesFresh: []string{KeySoilProfile},
		Available:     s.Available,
	}
}

func (s *GeoModelStage) Run(ctx context.Context, state State) Result {
	desc := s.Descriptor()
	if missing := state.MissingKeys(desc.RequiredKeys); len(missing) > 0 {
		return SkipMissing(missing)
	}
	if !s.Available {
		return SkipUnavailable()
	}

	surfaces, err := geomodel.ParsePoints(state.Rows(KeySurfacePoints))
	if err != nil {
		return Failed("geomodel: parsing %s: %v", KeySurfacePoints, err)
	}
	orientations, err := geomodel.ParsePoints(state.Rows(KeyOrientations))
	if err != nil {
		return Failed("geomodel: parsing %s: %v", KeyOrientations, err)
	}

	// When a soil profile exists (including one produced earlier in this
	// run), its soil types define the formation stack.
	var formations []string
	if profileRows := state.Rows(KeySoilProfile); len(profileRows) > 0 {
		if profile, perr := geotech.ParseProfile(profileRows); perr == nil {
			formations = profile.SoilTypes()
		}
	}

	summary, err := geomodel.Build(surfaces, orientations, formations, s.Refinement)
	if err != nil {
		return Failed("geomodel: building model: %v", err)
	}

	artifactPath := ""
	if s.Artifacts != nil {
		html, rerr := geomodel.RenderHTML(summary, surfaces)
		if rerr != nil {
			return Failed("geomodel: rendering scene: %v", rerr)
		}
		info, serr := s.Artifacts.Store("geomodel-scene", "html", html)
		if serr != nil {
			return Failed("geomodel: storing scene artifact: %v", serr)
		}
		artifactPath = info.Path
	}

	return Success(map[string]any{
		KeyGeoModelSummary: summary.Map(artifactPath),
	})
}
