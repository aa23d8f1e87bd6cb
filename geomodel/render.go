// ABOUTME: Self-contained HTML rendering of a computed geological model for iframe embedding.
// ABOUTME: Embeds the surface points as JSON and draws a simple elevation-colored projection on a canvas.
package geomodel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
)

var sceneTemplate = template.Must(template.New("scene").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Geological Model</title>
<style>
body { font-family: sans-serif; margin: 1rem; background: #111; color: #ddd; }
canvas { background: #1a1a2a; border: 1px solid #333; }
</style>
</head>
<body>
<h3>Geological Model ({{.Formations}} formations, {{.GridCells}} cells)</h3>
<canvas id="scene" width="760" height="520"></canvas>
<script>
const points = {{.PointsJSON}};
const extent = {{.ExtentJSON}};
const ctx = document.getElementById("scene").getContext("2d");
const sx = 740 / Math.max(extent[1] - extent[0], 1e-9);
const sy = 500 / Math.max(extent[3] - extent[2], 1e-9);
const zs = Math.max(extent[5] - extent[4], 1e-9);
for (const p of points) {
  const t = (p.z - extent[4]) / zs;
  ctx.fillStyle = "hsl(" + Math.round(240 - 200 * t) + ", 80%, 55%)";
  ctx.beginPath();
  ctx.arc(10 + (p.x - extent[0]) * sx, 510 - (p.y - extent[2]) * sy, 3, 0, 2 * Math.PI);
  ctx.fill();
}
</script>
</body>
</html>
`))

type sceneData struct {
	Formations int
	GridCells  int
	PointsJSON template.JS
	ExtentJSON template.JS
}

// RenderHTML produces the model's HTML scene artifact from its summary and
// surface points.
func RenderHTML(summary Summary, surfaces []Point) ([]byte, error) {
	type jsPoint struct {
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
		Z         float64 `json:"z"`
		Formation string  `json:"formation"`
	}
	pts := make([]jsPoint, len(surfaces))
	for i, p := range surfaces {
		pts[i] = jsPoint{X: p.X, Y: p.Y, Z: p.Z, Formation: p.Formation}
	}

	pointsJSON, err := json.Marshal(pts)
	if err != nil {
		return nil, fmt.Errorf("marshal scene points: %w", err)
	}
	extentJSON, err := json.Marshal(summary.Extent)
	if err != nil {
		return nil, fmt.Errorf("marshal scene extent: %w", err)
	}

	var buf bytes.Buffer
	err = sceneTemplate.Execute(&buf, sceneData{
		Formations: len(summary.Formations),
		GridCells:  summary.GridCells,
		PointsJSON: template.JS(pointsJSON),
		ExtentJSON: template.JS(extentJSON),
	})
	if err != nil {
		return nil, fmt.Errorf("render scene: %w", err)
	}
	return buf.Bytes(), nil
}
