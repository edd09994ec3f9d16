// Package mappings bundles the default source-name to node-name mappings
// for each format.
package mappings

import "embed"

// FS holds the bundled mapping files.
//
//go:embed *.yaml
var FS embed.FS

// Paths of the bundled mapping files within FS.
const (
	FMP   = "fmp.yaml"
	Excel = "excel.yaml"
	CSV   = "csv.yaml"
	HTML  = "html.yaml"
)
