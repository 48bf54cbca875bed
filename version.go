package conserje

import _ "embed"

// Version is the release of the engine, read from the VERSION file.
//
//go:embed VERSION
var Version string
