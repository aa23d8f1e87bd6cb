// ABOUTME: Material presets for the stress-strain simulation when no measured input is available.
// ABOUTME: Strengths are undrained/drained shear strength estimates in kPa for typical offshore soils.
package simulation

// Material holds the constitutive parameters the simulation needs.
type Material struct {
	Name              string
	Strength          float64 // kPa
	ElasticityModulus float64 // MPa
	PoissonsRatio     float64
}

// DefaultMaterial is the preset the dashboard's material picker starts on.
var DefaultMaterial = Material{
	Name:              "Dense Sand",
	Strength:          150,
	ElasticityModulus: 60,
	PoissonsRatio:     0.3,
}

// Presets returns the built-in material catalog keyed by name.
func Presets() map[string]Material {
	r := make(map[string]Material)

	r[DefaultMaterial.Name] = DefaultMaterial

	looseSand := Material{Name: "Loose Sand"}
	looseSand.Strength = 80
	looseSand.ElasticityModulus = 25
	looseSand.PoissonsRatio = 0.25
	r[looseSand.Name] = looseSand

	softClay := Material{Name: "Soft Clay"}
	softClay.Strength = 40
	softClay.ElasticityModulus = 8
	softClay.PoissonsRatio = 0.45
	r[softClay.Name] = softClay

	stiffClay := Material{Name: "Stiff Clay"}
	stiffClay.Strength = 120
	stiffClay.ElasticityModulus = 30
	stiffClay.PoissonsRatio = 0.4
	r[stiffClay.Name] = stiffClay

	return r
}
