package bindery

import _ "embed"

// Version is the release of the bindery module.
//
//go:embed VERSION
var Version string
