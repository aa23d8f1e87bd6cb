// ABOUTME: Report presenter: renders the pipeline report's markdown summary as an HTML page.
// ABOUTME: Uses goldmark for the markdown body wrapped in a minimal dashboard-styled shell.
package server

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"

	"github.com/snu-geoshm/geotwin/pipeline"
)

var reportPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Pipeline Report</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; color: #222; }
li { margin: 0.25rem 0; }
.failed { color: #b00020; }
</style>
</head>
<body>
{{.Body}}
<p><a href="/state">state</a> | <a href="/runs">run history</a></p>
</body>
</html>
`))

// RenderReportHTML converts a pipeline report to a standalone HTML page.
func RenderReportHTML(report *pipeline.Report) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(report.Markdown()), &body); err != nil {
		return nil, fmt.Errorf("render report markdown: %w", err)
	}

	var page bytes.Buffer
	err := reportPage.Execute(&page, struct{ Body template.HTML }{Body: template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("render report page: %w", err)
	}
	return page.Bytes(), nil
}
